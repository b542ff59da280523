// Package bot – loader.go loads configuration from YAML with .env loading
// and environment variable expansion.
package bot

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR} and ${VAR:-default} references in config
// values.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// LoadConfigFromFile reads and parses a YAML configuration file.
// .env files are loaded first, then ${VAR} references are expanded, then
// the YAML overlays DefaultConfig.
func LoadConfigFromFile(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := ParseConfig([]byte(expandEnvVars(string(data))))
	if err != nil {
		return nil, err
	}

	resolveSecrets(cfg)
	resolveRelativePaths(cfg, path)
	return cfg, nil
}

// ParseConfig parses YAML bytes, overlaying DefaultConfig.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return cfg, nil
}

// FindConfigFile searches for config files in standard locations.
func FindConfigFile() string {
	candidates := []string{
		"amber.yaml",
		"amber.yml",
		"config.yaml",
		"config.yml",
		"configs/amber.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ---------- Internal ----------

// loadEnvFiles loads .env files from standard locations. godotenv does not
// overwrite variables already set in the environment.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} references with their
// environment values. An unset variable without a default keeps the
// placeholder, so a missing secret stays visible in error messages.
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		name, def := sub[1], sub[2]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		if strings.Contains(match, ":-") {
			return def
		}
		return match
	})
}

// IsEnvReference reports whether a value is an unexpanded ${VAR} placeholder.
func IsEnvReference(value string) bool {
	return strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}")
}

// resolveSecrets fills config secrets from the keyring and environment when
// the config value is empty or an unexpanded placeholder.
func resolveSecrets(cfg *Config) {
	if cfg.LLM.APIKey == "" || IsEnvReference(cfg.LLM.APIKey) {
		if key := ResolveAPIKey(); key != "" {
			cfg.LLM.APIKey = key
		}
	}
	if cfg.Memory.Embedding.APIKey == "" || IsEnvReference(cfg.Memory.Embedding.APIKey) {
		cfg.Memory.Embedding.APIKey = cfg.LLM.APIKey
	}
	if cfg.Gateway.Token != "" && IsEnvReference(cfg.Gateway.Token) {
		cfg.Gateway.Token = ""
	}
}

// resolveRelativePaths anchors relative file paths at the config file's
// directory, so startup works regardless of the current working directory.
func resolveRelativePaths(cfg *Config, configPath string) {
	dir := filepath.Dir(configPath)
	cfg.Memory.Path = resolvePath(cfg.Memory.Path, dir)
	cfg.Dataset.Path = resolvePath(cfg.Dataset.Path, dir)
	cfg.Scheduler.Storage = resolvePath(cfg.Scheduler.Storage, dir)
	cfg.WhatsApp.SessionPath = resolvePath(cfg.WhatsApp.SessionPath, dir)
}

func resolvePath(path, dir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return filepath.Join(dir, path)
}
