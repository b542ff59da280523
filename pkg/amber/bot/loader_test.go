package bot

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "amber.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseConfigOverlaysDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("name: Donna\nllm:\n  model: gpt-4o\n"))
	if err != nil {
		t.Fatalf("ParseConfig() error: %v", err)
	}
	if cfg.Name != "Donna" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("LLM.Model = %q", cfg.LLM.Model)
	}
	// Untouched fields keep their defaults.
	if cfg.Language != "pt-BR" {
		t.Errorf("Language = %q, want default pt-BR", cfg.Language)
	}
	if cfg.Queue.MaxRetries != 5 {
		t.Errorf("Queue.MaxRetries = %d, want default 5", cfg.Queue.MaxRetries)
	}
}

func TestLoadConfigExpandsEnvVars(t *testing.T) {
	t.Setenv("AMBER_TEST_TOKEN", "s3cret")

	path := writeConfigFile(t, "gateway:\n  enabled: true\n  token: ${AMBER_TEST_TOKEN}\n")
	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile() error: %v", err)
	}
	if cfg.Gateway.Token != "s3cret" {
		t.Errorf("Gateway.Token = %q", cfg.Gateway.Token)
	}
}

func TestLoadConfigEnvDefault(t *testing.T) {
	path := writeConfigFile(t, "gateway:\n  addr: ${AMBER_UNSET_ADDR:-127.0.0.1:9999}\n")
	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Gateway.Addr != "127.0.0.1:9999" {
		t.Errorf("Gateway.Addr = %q", cfg.Gateway.Addr)
	}
}

func TestLoadConfigResolvesRelativePaths(t *testing.T) {
	path := writeConfigFile(t, "memory:\n  path: data/memory.db\n")
	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(filepath.Dir(path), "data", "memory.db")
	if cfg.Memory.Path != want {
		t.Errorf("Memory.Path = %q, want %q", cfg.Memory.Path, want)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = "sk-test"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	cfg.LLM.APIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail without an API key")
	}

	cfg.LLM.APIKey = "sk-test"
	cfg.Gateway.Enabled = true
	cfg.Gateway.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail with gateway enabled and no token")
	}
}

func TestIsEnvReference(t *testing.T) {
	if !IsEnvReference("${FOO}") {
		t.Error("${FOO} should be a reference")
	}
	if IsEnvReference("plain-value") {
		t.Error("plain value is not a reference")
	}
}
