// Package bot – cache.go implements the per-process response cache.
// It is a plain memoization map: no TTL, no eviction. Identical repeated
// input within one process lifetime is answered without recomputation;
// a restart clears it. Growth is bounded only by process lifetime, which is
// acceptable for a single-user assistant.
package bot

import (
	"strings"
	"sync"
)

// ResponseCache memoizes answers keyed by normalized user+message.
type ResponseCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewResponseCache creates an empty response cache.
func NewResponseCache() *ResponseCache {
	return &ResponseCache{entries: make(map[string]string)}
}

// Get returns the cached answer for key, if present.
func (c *ResponseCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Set stores an answer under key, overwriting any previous value.
func (c *ResponseCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// Len returns the number of cached entries.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CacheKey builds the canonical cache key for a user+message pair.
func CacheKey(userID, message string) string {
	return "user:" + userID + ":msg:" + strings.ToLower(strings.TrimSpace(message))
}
