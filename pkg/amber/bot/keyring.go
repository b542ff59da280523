// Package bot – keyring.go stores the API key in the operating system's
// native keyring (Linux: Secret Service, macOS: Keychain, Windows:
// Credential Manager).
//
// Secret resolution order: OS keyring → environment variable → config value.
package bot

import (
	"os"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "amber"
	keyringAPIKey  = "api_key"
)

// StoreKeyring saves a secret to the OS keyring.
func StoreKeyring(key, value string) error {
	return keyring.Set(keyringService, key, value)
}

// GetKeyring retrieves a secret from the OS keyring. Returns empty string
// when not found.
func GetKeyring(key string) string {
	val, err := keyring.Get(keyringService, key)
	if err != nil {
		return ""
	}
	return val
}

// DeleteKeyring removes a secret from the OS keyring.
func DeleteKeyring(key string) error {
	return keyring.Delete(keyringService, key)
}

// KeyringAvailable checks if the OS keyring is accessible.
func KeyringAvailable() bool {
	testKey := "__amber_test__"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, testKey)
	return true
}

// ResolveAPIKey resolves the LLM API key: keyring first, then the AMBER and
// OpenAI environment variables. Returns empty when nothing is set.
func ResolveAPIKey() string {
	if val := GetKeyring(keyringAPIKey); val != "" {
		return val
	}
	if val := os.Getenv("AMBER_API_KEY"); val != "" {
		return val
	}
	return os.Getenv("OPENAI_API_KEY")
}

// StoreAPIKey saves the LLM API key in the keyring.
func StoreAPIKey(value string) error {
	return StoreKeyring(keyringAPIKey, value)
}
