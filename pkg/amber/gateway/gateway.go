// Package gateway provides a small local HTTP API for Amber: injecting
// messages into the pipeline and checking status without going through
// WhatsApp.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/amberlabs/amber/pkg/amber/bot"
)

const version = "1.0.0"

// Answerer is the slice of the responder the gateway needs.
type Answerer interface {
	Respond(ctx context.Context, userID, message string) string
}

// Gateway is the HTTP API server.
type Gateway struct {
	responder Answerer
	config    bot.GatewayConfig
	server    *http.Server
	logger    *slog.Logger
	startedAt time.Time
}

// New creates a Gateway over the responder.
func New(responder Answerer, cfg bot.GatewayConfig, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8970"
	}
	return &Gateway{
		responder: responder,
		config:    cfg,
		logger:    logger.With("component", "gateway"),
	}
}

// Start starts the HTTP server in the background.
func (g *Gateway) Start(ctx context.Context) error {
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:    g.config.Addr,
		Handler: g.Handler(),
	}

	if g.config.Token == "" {
		host, _, _ := net.SplitHostPort(g.config.Addr)
		ip := net.ParseIP(host)
		if host != "localhost" && (ip == nil || !ip.IsLoopback()) {
			g.logger.Warn("gateway has no auth token and is bound to a non-loopback address",
				"addr", g.config.Addr)
		}
	}

	go func() {
		if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			g.logger.Error("gateway server error", "error", err)
		}
	}()
	g.logger.Info("gateway started", "addr", g.config.Addr)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}

// Handler builds the route table with middleware applied. Exposed for
// tests.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/webhook/message", g.handleWebhookMessage)
	mux.HandleFunc("/api/status", g.handleStatus)
	return g.authMiddleware(mux)
}

// ---------- Handlers ----------

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version,
	})
}

// webhookMessageRequest is the inject-a-message payload.
type webhookMessageRequest struct {
	From string `json:"from"`
	Body string `json:"body"`
}

// handleWebhookMessage runs one message through the response pipeline and
// returns the reply. The sender is identified by "from", so webhook users
// share memory with their WhatsApp conversations.
func (g *Gateway) handleWebhookMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		g.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req webhookMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.From == "" || req.Body == "" {
		g.writeError(w, "from and body are required", http.StatusBadRequest)
		return
	}

	reply := g.responder.Respond(r.Context(), req.From, req.Body)
	g.writeJSON(w, http.StatusOK, map[string]any{
		"reply": reply,
	})
}

func (g *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, map[string]any{
		"status":     "running",
		"version":    version,
		"uptime_sec": int(time.Since(g.startedAt).Seconds()),
	})
}

// ---------- Helpers ----------

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Warn("writing response failed", "error", err)
	}
}

func (g *Gateway) writeError(w http.ResponseWriter, msg string, code int) {
	g.writeJSON(w, code, map[string]any{"error": msg})
}
