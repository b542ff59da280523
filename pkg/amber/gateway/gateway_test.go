package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amberlabs/amber/pkg/amber/bot"
)

// echoResponder replies with a fixed prefix plus the question.
type echoResponder struct{}

func (echoResponder) Respond(ctx context.Context, userID, message string) string {
	return "echo:" + userID + ":" + message
}

func newTestGateway(t *testing.T, cfg bot.GatewayConfig) *httptest.Server {
	t.Helper()
	g := New(echoResponder{}, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(g.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthIsPublic(t *testing.T) {
	srv := newTestGateway(t, bot.GatewayConfig{Token: "secret"})

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 without auth", resp.StatusCode)
	}
}

func TestWebhookMessage(t *testing.T) {
	srv := newTestGateway(t, bot.GatewayConfig{Token: "secret"})

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/webhook/message",
		strings.NewReader(`{"from":"5511912345678","body":"oi"}`))
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Reply string `json:"reply"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Reply != "echo:5511912345678:oi" {
		t.Errorf("reply = %q", body.Reply)
	}
}

func TestWebhookValidation(t *testing.T) {
	srv := newTestGateway(t, bot.GatewayConfig{})

	t.Run("missing fields", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/webhook/message", "application/json",
			strings.NewReader(`{"from":"","body":""}`))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/webhook/message")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", resp.StatusCode)
		}
	})
}

func TestAuthMiddleware(t *testing.T) {
	srv := newTestGateway(t, bot.GatewayConfig{Token: "secret"})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer secret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/status", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestCompareTokens(t *testing.T) {
	if !compareTokens("abc", "abc") {
		t.Error("equal tokens must compare true")
	}
	if compareTokens("abc", "abd") || compareTokens("abc", "abcd") {
		t.Error("different tokens must compare false")
	}
}
