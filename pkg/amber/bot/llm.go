// Package bot – llm.go implements the OpenAI-compatible chat client used as
// the pipeline's last resort, plus Whisper transcription for voice notes.
package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"
)

// ---------- LLM client ----------

// ErrLLMUnavailable marks any failure talking to the completion API. The
// responder substitutes a fixed apology when it sees this error.
var ErrLLMUnavailable = errors.New("llm unavailable")

const (
	defaultLLMBaseURL     = "https://api.openai.com/v1"
	defaultChatModel      = "gpt-4o-mini"
	defaultWhisperModel   = "whisper-1"
	defaultTemperature    = 0.7
	defaultMaxTokens      = 200
	defaultReplyMaxChars  = 150
	llmRequestTimeout     = 10 * time.Second
	whisperRequestTimeout = 30 * time.Second
)

// LLMConfig configures the completion client.
type LLMConfig struct {
	BaseURL      string  `yaml:"base_url"`
	APIKey       string  `yaml:"api_key"`
	Model        string  `yaml:"model"`
	WhisperModel string  `yaml:"whisper_model"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	// SystemPrompt overrides the default persona instructions.
	SystemPrompt string `yaml:"system_prompt"`
}

// LLMClient calls an OpenAI-compatible /chat/completions endpoint. Replies
// are truncated and cached per prompt so repeated questions skip the API.
type LLMClient struct {
	cfg    LLMConfig
	http   *http.Client
	logger *slog.Logger

	cache *ResponseCache
}

// ChatMessage is one message in a completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewLLMClient returns a client over cfg. Missing fields fall back to
// defaults, and the API key falls back to OPENAI_API_KEY.
func NewLLMClient(cfg LLMConfig, logger *slog.Logger) *LLMClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultLLMBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultChatModel
	}
	if cfg.WhisperModel == "" {
		cfg.WhisperModel = defaultWhisperModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: llmRequestTimeout},
		logger: logger.With("component", "llm"),
		cache:  NewResponseCache(),
	}
}

// Complete sends messages to the chat API and returns the first choice,
// truncated to the reply limit. The reply is cached keyed on the last user
// message; a hit never touches the network.
func (c *LLMClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	prompt := lastUserContent(messages)
	if prompt != "" {
		if cached, ok := c.cache.Get(CacheKey("llm", prompt)); ok {
			return cached, nil
		}
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encoding request: %v", ErrLLMUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(c.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrLLMUnavailable, err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrLLMUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("%w: api error: %s", ErrLLMUnavailable, msg)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrLLMUnavailable)
	}

	reply := TruncateReply(strings.TrimSpace(parsed.Choices[0].Message.Content))
	if prompt != "" && reply != "" {
		c.cache.Set(CacheKey("llm", prompt), reply)
	}
	return reply, nil
}

// Transcribe sends audio to the Whisper endpoint and returns the text.
func (c *LLMClient) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", "audio"+extForMime(mimeType))
	if err != nil {
		return "", fmt.Errorf("building transcription request: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("building transcription request: %w", err)
	}
	if err := w.WriteField("model", c.cfg.WhisperModel); err != nil {
		return "", fmt.Errorf("building transcription request: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("building transcription request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(c.cfg.BaseURL, "/")+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("building transcription request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	client := &http.Client{Timeout: whisperRequestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading transcription response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription api error: %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decoding transcription response: %w", err)
	}
	return strings.TrimSpace(parsed.Text), nil
}

// TruncateReply caps a reply at the configured character limit, rune-safe.
func TruncateReply(s string) string {
	runes := []rune(s)
	if len(runes) <= defaultReplyMaxChars {
		return s
	}
	return string(runes[:defaultReplyMaxChars])
}

func lastUserContent(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

func extForMime(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "ogg"):
		return ".ogg"
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return ".mp3"
	case strings.Contains(mimeType, "wav"):
		return ".wav"
	case strings.Contains(mimeType, "mp4"), strings.Contains(mimeType, "m4a"):
		return ".m4a"
	default:
		return ".ogg"
	}
}
