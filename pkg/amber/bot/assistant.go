// Package bot – assistant.go ties the channels, the responder and the
// audio transcription together into the running assistant.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/amberlabs/amber/pkg/amber/bot/memory"
	"github.com/amberlabs/amber/pkg/amber/channels"
)

// Transcriber converts voice-note audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Assistant is the running bot: it consumes the channel manager's message
// stream and answers through the responder.
type Assistant struct {
	cfg       *Config
	manager   *channels.Manager
	responder *Responder
	queue     *WriteQueue
	access    *AccessList
	stt       Transcriber
	logger    *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewAssistant builds the assistant from already-constructed parts.
func NewAssistant(cfg *Config, manager *channels.Manager, responder *Responder, queue *WriteQueue, stt Transcriber, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		cfg:       cfg,
		manager:   manager,
		responder: responder,
		queue:     queue,
		access:    NewAccessList(cfg.Access),
		stt:       stt,
		logger:    logger.With("component", "assistant"),
	}
}

// Start connects the channels and begins processing messages. It returns
// once the message loop is running.
func (a *Assistant) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	if err := a.manager.Start(ctx); err != nil {
		return fmt.Errorf("starting channels: %w", err)
	}

	a.wg.Add(1)
	go a.messageLoop(ctx)

	a.logger.Info("assistant started", "name", a.cfg.Name)
	return nil
}

// Stop shuts down the message loop and disconnects the channels.
func (a *Assistant) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.manager.Stop()
	a.wg.Wait()
	a.queue.Wait()
	a.logger.Info("assistant stopped")
}

// messageLoop consumes the aggregate incoming stream. Each message is
// handled on its own goroutine so a slow LLM call never blocks the next
// user.
func (a *Assistant) messageLoop(ctx context.Context) {
	defer a.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-a.manager.Messages():
			if !ok {
				return
			}
			a.wg.Add(1)
			go func() {
				defer a.wg.Done()
				a.handleMessage(ctx, msg)
			}()
		}
	}
}

// handleMessage runs the full pipeline for one incoming message.
func (a *Assistant) handleMessage(ctx context.Context, msg *channels.IncomingMessage) {
	if !a.access.IsAllowed(msg.From) {
		// Unknown numbers get no reply and no hint that a bot exists.
		a.logger.Debug("ignoring message from unlisted sender", "from", msg.From)
		return
	}

	content := msg.Content
	if msg.Type == channels.MessageAudio {
		text, err := a.transcribeAudio(ctx, msg)
		if err != nil {
			a.logger.Warn("transcription failed", "from", msg.From, "error", err)
			a.sendReply(ctx, msg, "Desculpe, não consegui ouvir o áudio. Pode escrever?")
			return
		}
		content = text
	}
	if msg.Type == channels.MessageUnknown {
		return
	}

	if ch, ok := a.manager.Get(msg.Channel).(channels.PresenceChannel); ok {
		_ = ch.SendTyping(ctx, msg.ChatID)
	}

	reply := a.responder.Respond(ctx, userIDFrom(msg), content)
	a.sendReply(ctx, msg, reply)
}

// transcribeAudio downloads the voice note and runs it through Whisper.
func (a *Assistant) transcribeAudio(ctx context.Context, msg *channels.IncomingMessage) (string, error) {
	ch, ok := a.manager.Get(msg.Channel).(channels.AudioChannel)
	if !ok {
		return "", channels.ErrAudioNotSupported
	}
	audio, mimeType, err := ch.DownloadAudio(ctx, msg)
	if err != nil {
		return "", err
	}
	return a.stt.Transcribe(ctx, audio, mimeType)
}

func (a *Assistant) sendReply(ctx context.Context, msg *channels.IncomingMessage, reply string) {
	if reply == "" {
		return
	}
	out := &channels.OutgoingMessage{Content: reply}
	if msg.IsGroup {
		out.ReplyTo = msg.ID
	}
	if err := a.manager.Send(ctx, msg.Channel, msg.ChatID, out); err != nil {
		a.logger.Error("sending reply failed", "to", msg.ChatID, "error", err)
	}
}

// userIDFrom derives the memory user ID from a message: the bare phone
// number, so the same person maps to one memory log across chats.
func userIDFrom(msg *channels.IncomingMessage) string {
	if n := normalizeNumber(msg.From); n != "" {
		return n
	}
	return msg.From
}

// BuildAssistant constructs the full component graph from configuration.
// It is the composition root used by serve and the CLI commands.
func BuildAssistant(cfg *Config, logger *slog.Logger) (*Assistant, *Responder, error) {
	embedder := memory.NewOpenAIEmbedder(cfg.Memory.Embedding)
	store, err := memory.NewSQLiteStore(cfg.Memory.Path, embedder, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening memory store: %w", err)
	}

	queue := NewWriteQueue(store, logger)
	if cfg.Queue.MaxRetries > 0 {
		queue.MaxRetries = cfg.Queue.MaxRetries
	}
	queue.Backoff = cfg.Queue.BackoffDuration()

	dataset := DefaultDataset()
	if cfg.Dataset.Path != "" {
		dataset, err = LoadDataset(cfg.Dataset.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("loading dataset: %w", err)
		}
	}

	llm := NewLLMClient(cfg.LLM, logger)
	responder := NewResponder(dataset, store, queue, llm, logger)
	responder.SetSystemPrompt(cfg.LLM.SystemPrompt)
	manager := channels.NewManager(logger)

	assistant := NewAssistant(cfg, manager, responder, queue, llm, logger)
	return assistant, responder, nil
}

// Manager exposes the channel manager so callers can register channels
// before Start.
func (a *Assistant) Manager() *channels.Manager {
	return a.manager
}

// NewLogger builds the slog logger described by cfg.
func NewLogger(cfg LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
