// Package bot – config.go defines the assistant configuration structures.
package bot

import (
	"fmt"
	"time"

	"github.com/amberlabs/amber/pkg/amber/bot/memory"
	"github.com/amberlabs/amber/pkg/amber/channels/whatsapp"
)

// Config holds all assistant configuration.
type Config struct {
	// Name is the assistant name shown in responses.
	Name string `yaml:"name"`

	// Timezone is the user's timezone (e.g. "America/Sao_Paulo").
	Timezone string `yaml:"timezone"`

	// Language is the preferred response language (e.g. "pt-BR").
	Language string `yaml:"language"`

	// LLM configures the chat-completion provider.
	LLM LLMConfig `yaml:"llm"`

	// Memory configures the semantic memory store.
	Memory MemoryConfig `yaml:"memory"`

	// Dataset is an optional JSON file with extra canned exchanges.
	Dataset DatasetConfig `yaml:"dataset"`

	// Queue configures the memory write queue.
	Queue QueueConfig `yaml:"queue"`

	// Access configures who can talk to the bot.
	Access AccessConfig `yaml:"access"`

	// WhatsApp configures the WhatsApp channel.
	WhatsApp whatsapp.Config `yaml:"whatsapp"`

	// Gateway configures the local HTTP gateway.
	Gateway GatewayConfig `yaml:"gateway"`

	// Scheduler configures cron-style reminders.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Logging configures the slog handler.
	Logging LoggingConfig `yaml:"logging"`
}

// MemoryConfig configures the semantic memory store.
type MemoryConfig struct {
	// Path is the SQLite database file.
	Path string `yaml:"path"`

	// Embedding configures the vector provider.
	Embedding memory.EmbeddingConfig `yaml:"embedding"`
}

// DatasetConfig configures the canned-exchange matcher.
type DatasetConfig struct {
	// Path is an optional JSON file appended after the built-in entries.
	Path string `yaml:"path"`
}

// QueueConfig configures the memory write queue.
type QueueConfig struct {
	MaxRetries     int `yaml:"max_retries"`
	BackoffSeconds int `yaml:"backoff_seconds"`
}

// Backoff returns the retry pause as a duration.
func (c QueueConfig) BackoffDuration() time.Duration {
	return time.Duration(c.BackoffSeconds) * time.Second
}

// AccessConfig restricts who the bot answers. Empty AllowedNumbers means
// everyone is allowed.
type AccessConfig struct {
	AllowedNumbers []string `yaml:"allowed_numbers"`
}

// GatewayConfig configures the local HTTP gateway.
type GatewayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`

	// Token protects the gateway endpoints (Bearer auth). Supports ${VAR}
	// references resolved at load time.
	Token string `yaml:"token"`
}

// SchedulerConfig configures cron-style reminder jobs.
type SchedulerConfig struct {
	Enabled bool `yaml:"enabled"`

	// Storage is the SQLite file holding persisted jobs.
	Storage string `yaml:"storage"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults. Loaded YAML
// overlays on top of it.
func DefaultConfig() *Config {
	return &Config{
		Name:     "Amber",
		Timezone: "America/Sao_Paulo",
		Language: "pt-BR",
		LLM: LLMConfig{
			BaseURL:     defaultLLMBaseURL,
			Model:       defaultChatModel,
			Temperature: defaultTemperature,
			MaxTokens:   defaultMaxTokens,
		},
		Memory: MemoryConfig{
			Path:      "amber-memory.db",
			Embedding: memory.DefaultEmbeddingConfig(),
		},
		Queue: QueueConfig{
			MaxRetries:     defaultMaxRetries,
			BackoffSeconds: int(defaultBackoff / time.Second),
		},
		WhatsApp: whatsapp.DefaultConfig(),
		Gateway: GatewayConfig{
			Enabled: false,
			Addr:    "127.0.0.1:8970",
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
			Storage: "amber-jobs.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the fields serve needs up front, so startup fails fast
// instead of mid-conversation.
func (c *Config) Validate() error {
	if c.Memory.Path == "" {
		return fmt.Errorf("memory.path must be set")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key must be set (or OPENAI_API_KEY in the environment)")
	}
	if c.Gateway.Enabled && c.Gateway.Token == "" {
		return fmt.Errorf("gateway.token must be set when the gateway is enabled")
	}
	return nil
}
