package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/amberlabs/amber/pkg/amber/bot/memory"
)

// fakeLLM returns a canned reply, counts calls and keeps the last messages.
type fakeLLM struct {
	reply string
	err   error
	calls atomic.Int32
	last  []ChatMessage
}

func (f *fakeLLM) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	f.calls.Add(1)
	f.last = messages
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// stubStore serves canned query results and records writes.
type stubStore struct {
	recordingStore
	results []memory.Record
}

func (s *stubStore) Query(ctx context.Context, text, userID string, limit int) ([]memory.Record, error) {
	return s.results, nil
}

func newTestResponder(store memory.Store, llm Completer) (*Responder, *WriteQueue) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	queue := NewWriteQueue(store, logger)
	queue.Backoff = 0
	return NewResponder(DefaultDataset(), store, queue, llm, logger), queue
}

func TestRespondEndToEnd(t *testing.T) {
	store := &stubStore{}
	llm := &fakeLLM{reply: "Vai chover."}
	r, queue := newTestResponder(store, llm)

	got := r.Respond(context.Background(), "u1", "vai chover amanhã?")
	if got != "Vai chover." {
		t.Fatalf("Respond() = %q", got)
	}
	queue.Wait()

	adds := store.calls()
	if len(adds) != 2 {
		t.Fatalf("persisted %d records, want 2 (user + assistant)", len(adds))
	}
	if adds[0] != "vai chover amanhã?" || adds[1] != "Vai chover." {
		t.Errorf("persisted = %v", adds)
	}

	// Second identical request is served from cache without touching the LLM
	// or writing again.
	got = r.Respond(context.Background(), "u1", "vai chover amanhã?")
	if got != "Vai chover." {
		t.Errorf("cached Respond() = %q", got)
	}
	queue.Wait()
	if n := llm.calls.Load(); n != 1 {
		t.Errorf("llm called %d times, want 1", n)
	}
	if n := len(store.calls()); n != 2 {
		t.Errorf("persisted %d records after cached reply, want still 2", n)
	}
}

func TestRespondEmptyMessage(t *testing.T) {
	r, _ := newTestResponder(&stubStore{}, &fakeLLM{reply: "x"})
	if got := r.Respond(context.Background(), "u1", "   "); got != emptyReply {
		t.Errorf("Respond(blank) = %q", got)
	}
}

func TestRespondDatasetShortCircuit(t *testing.T) {
	llm := &fakeLLM{reply: "nunca"}
	r, _ := newTestResponder(&stubStore{}, llm)

	got := r.Respond(context.Background(), "u1", "oi, tudo bem?")
	if got != "Olá! Como posso ajudar?" {
		t.Errorf("Respond() = %q", got)
	}
	if llm.calls.Load() != 0 {
		t.Error("dataset hit must not reach the llm")
	}
}

func TestRespondLearnsAndRecallsName(t *testing.T) {
	store := &stubStore{}
	r, queue := newTestResponder(store, &fakeLLM{reply: "x"})

	got := r.Respond(context.Background(), "u1", "meu nome é Maria")
	if !strings.Contains(got, "Maria") {
		t.Errorf("learn reply = %q, want acknowledgment with name", got)
	}
	queue.Wait()

	adds := store.calls()
	if len(adds) != 1 || adds[0] != "O nome do usuário é Maria" {
		t.Errorf("persisted = %v, want the name fact", adds)
	}

	// Recall goes through the store query.
	store.results = []memory.Record{{Content: "O nome do usuário é Maria", UserID: "u1", Role: memory.RoleUser}}
	got = r.Respond(context.Background(), "u1", "qual é o meu nome?")
	if got != "Seu nome é Maria!" {
		t.Errorf("recall reply = %q", got)
	}
}

func TestRespondDoesNotRelearnKnownName(t *testing.T) {
	store := &stubStore{results: []memory.Record{
		{Content: "O nome do usuário é Maria", UserID: "u1", Role: memory.RoleUser},
	}}
	r, queue := newTestResponder(store, &fakeLLM{reply: "x"})

	// A second introduction must not re-acknowledge nor stack a second,
	// conflicting name fact.
	got := r.Respond(context.Background(), "u1", "meu nome é João")
	if strings.Contains(got, "Prazer em te conhecer") {
		t.Errorf("reply = %q, want no acknowledgment while a name is known", got)
	}
	queue.Wait()
	if adds := store.calls(); len(adds) != 0 {
		t.Errorf("persisted = %v, want no duplicate name fact", adds)
	}

	// The original name still answers the question.
	got = r.Respond(context.Background(), "u1", "qual é o meu nome?")
	if got != "Seu nome é Maria!" {
		t.Errorf("recall reply = %q, want the stored name", got)
	}
}

func TestRespondSystemPrompt(t *testing.T) {
	llm := &fakeLLM{reply: "descansa e toma bastante água"}
	r, _ := newTestResponder(&stubStore{}, llm)

	r.Respond(context.Background(), "u1", "como tratar uma gripe?")
	if len(llm.last) != 2 || llm.last[0].Role != "system" || llm.last[1].Role != "user" {
		t.Fatalf("llm messages = %+v, want system + user", llm.last)
	}
	if !strings.Contains(llm.last[0].Content, "não substitui um profissional") {
		t.Errorf("default system prompt = %q, want the health disclaimer rule", llm.last[0].Content)
	}

	r2, _ := newTestResponder(&stubStore{}, llm)
	r2.SetSystemPrompt("Você é um papagaio.")
	r2.Respond(context.Background(), "u2", "fala alguma coisa")
	if llm.last[0].Content != "Você é um papagaio." {
		t.Errorf("system prompt = %q, want the configured override", llm.last[0].Content)
	}

	// Blank overrides keep the current prompt.
	r2.SetSystemPrompt("   ")
	r2.Respond(context.Background(), "u2", "fala outra coisa")
	if llm.last[0].Content != "Você é um papagaio." {
		t.Errorf("system prompt after blank override = %q", llm.last[0].Content)
	}
}

func TestRespondUnknownName(t *testing.T) {
	r, _ := newTestResponder(&stubStore{}, &fakeLLM{reply: "x"})
	got := r.Respond(context.Background(), "u1", "qual meu nome?")
	if !strings.Contains(got, "não sei seu nome") {
		t.Errorf("reply = %q, want unknown-name prompt", got)
	}
}

func TestRespondMemoryShortCircuit(t *testing.T) {
	store := &stubStore{results: []memory.Record{
		{Content: "O aniversário da Júlia é dia 12", UserID: "u1", Role: memory.RoleUser},
	}}
	llm := &fakeLLM{reply: "nunca"}
	r, _ := newTestResponder(store, llm)

	got := r.Respond(context.Background(), "u1", "quando é o aniversário da Júlia?")
	if got != "O aniversário da Júlia é dia 12" {
		t.Errorf("Respond() = %q, want the stored memory verbatim", got)
	}
	if llm.calls.Load() != 0 {
		t.Error("memory hit must not reach the llm")
	}
}

func TestRespondLLMFailure(t *testing.T) {
	store := &stubStore{}
	llm := &fakeLLM{err: errors.New("boom")}
	r, queue := newTestResponder(store, llm)

	got := r.Respond(context.Background(), "u1", "pergunta difícil")
	if got != apologyReply {
		t.Errorf("Respond() = %q, want apology", got)
	}
	queue.Wait()

	if n := len(store.calls()); n != 0 {
		t.Errorf("persisted %d records on failure, want 0", n)
	}

	// The apology is never cached: once the llm recovers, a real answer
	// comes through.
	llm.err = nil
	llm.reply = "Resposta de verdade."
	if got := r.Respond(context.Background(), "u1", "pergunta difícil"); got != "Resposta de verdade." {
		t.Errorf("post-recovery Respond() = %q", got)
	}
}
