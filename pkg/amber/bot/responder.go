// Package bot – responder.go is the response orchestrator. It runs the
// pipeline for one inbound message: cache, canned dataset, name intents,
// semantic memory, and finally the LLM, persisting both turns through the
// write queue.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/amberlabs/amber/pkg/amber/bot/memory"
)

// ---------- Responder ----------

const (
	emptyReply   = "Desculpe, não entendi. Pode repetir?"
	apologyReply = "Desculpe, não consegui pensar em uma resposta agora. Tenta de novo daqui a pouco?"

	personaPrompt = "Você é a Amber, uma assistente pessoal no WhatsApp. " +
		"Responda em português, de forma curta, direta e simpática, sem " +
		"formatação markdown. Você ajuda com lembretes, recados e perguntas " +
		"do dia a dia. Quando o assunto envolver saúde, inclua um aviso de " +
		"que você não substitui um profissional."
)

// Completer is the slice of the LLM client the responder needs.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// Responder answers one user message at a time. Steps run in a fixed order
// and the first one that produces an answer wins.
type Responder struct {
	cache        *ResponseCache
	dataset      *Dataset
	store        memory.Store
	queue        *WriteQueue
	llm          Completer
	systemPrompt string
	logger       *slog.Logger
}

// NewResponder wires the pipeline components together.
func NewResponder(dataset *Dataset, store memory.Store, queue *WriteQueue, llm Completer, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{
		cache:        NewResponseCache(),
		dataset:      dataset,
		store:        store,
		queue:        queue,
		llm:          llm,
		systemPrompt: personaPrompt,
		logger:       logger.With("component", "responder"),
	}
}

// SetSystemPrompt replaces the default persona instructions sent to the LLM.
func (r *Responder) SetSystemPrompt(prompt string) {
	if strings.TrimSpace(prompt) != "" {
		r.systemPrompt = prompt
	}
}

// Respond produces the reply for message. It always returns something to
// send back; failures downstream degrade to a fixed apology.
func (r *Responder) Respond(ctx context.Context, userID, message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return emptyReply
	}

	key := CacheKey(userID, message)
	if cached, ok := r.cache.Get(key); ok {
		r.logger.Debug("cache hit", "user", userID)
		return cached
	}

	if answer, ok := r.dataset.Lookup(message); ok {
		r.cache.Set(key, answer)
		return answer
	}

	if name, ok := ExtractName(message); ok {
		// Learn only when no name is known yet; a second introduction falls
		// through to the remaining steps instead of piling up facts.
		if _, known := r.knownName(ctx, userID); !known {
			r.queue.Enqueue("fact", NameFact(name), userID, memory.RoleUser)
			return fmt.Sprintf("Prazer em te conhecer, %s!", name)
		}
		r.logger.Debug("name already known, skipping learn", "user", userID)
	}

	if IsNameQuestion(message) {
		return r.answerNameQuestion(ctx, userID)
	}

	if reply, ok := r.recallMemory(ctx, userID, message); ok {
		r.cache.Set(key, reply)
		return reply
	}

	reply, err := r.llm.Complete(ctx, []ChatMessage{
		{Role: "system", Content: r.systemPrompt},
		{Role: "user", Content: message},
	})
	if err != nil || reply == "" {
		r.logger.Warn("llm failed, sending apology", "user", userID, "error", err)
		return apologyReply
	}

	r.queue.Enqueue("chat", message, userID, memory.RoleUser)
	r.queue.Enqueue("chat", reply, userID, memory.RoleAssistant)
	r.cache.Set(key, reply)
	return reply
}

// answerNameQuestion looks for a stored name fact for userID.
func (r *Responder) answerNameQuestion(ctx context.Context, userID string) string {
	if name, ok := r.knownName(ctx, userID); ok {
		return fmt.Sprintf("Seu nome é %s!", name)
	}
	return "Ainda não sei seu nome. Me conta: \"meu nome é ...\""
}

// knownName queries the memory log for a stored name fact.
func (r *Responder) knownName(ctx context.Context, userID string) (string, bool) {
	records, err := r.store.Query(ctx, nameSentinel, userID, 3)
	if err != nil {
		r.logger.Warn("name lookup failed", "user", userID, "error", err)
		return "", false
	}
	for _, rec := range records {
		if name, ok := NameFromFact(rec.Content); ok {
			return name, true
		}
	}
	return "", false
}

// recallMemory queries semantic memory and returns the best record's content
// verbatim. Any non-empty result counts as an answer; there is no similarity
// threshold.
func (r *Responder) recallMemory(ctx context.Context, userID, message string) (string, bool) {
	records, err := r.store.Query(ctx, message, userID, 3)
	if err != nil {
		r.logger.Warn("memory query failed", "user", userID, "error", err)
		return "", false
	}
	for _, rec := range records {
		if content := strings.TrimSpace(rec.Content); content != "" {
			return content, true
		}
	}
	return "", false
}
