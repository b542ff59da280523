package bot

import "testing"

func TestResponseCache(t *testing.T) {
	t.Parallel()

	c := NewResponseCache()

	t.Run("get on unset key is absent", func(t *testing.T) {
		if _, ok := c.Get("user:u1:msg:oi"); ok {
			t.Error("expected absent for unset key")
		}
	})

	t.Run("set then get returns exact value", func(t *testing.T) {
		c.Set("user:u1:msg:oi", "olá!")
		v, ok := c.Get("user:u1:msg:oi")
		if !ok {
			t.Fatal("expected hit after Set")
		}
		if v != "olá!" {
			t.Errorf("Get = %q, want %q", v, "olá!")
		}
	})

	t.Run("set overwrites", func(t *testing.T) {
		c.Set("k", "a")
		c.Set("k", "b")
		if v, _ := c.Get("k"); v != "b" {
			t.Errorf("Get = %q, want %q", v, "b")
		}
	})
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		userID, message, want string
	}{
		{"5511999999999", "Bom Dia", "user:5511999999999:msg:bom dia"},
		{"u1", "  oi  ", "user:u1:msg:oi"},
		{"u1", "OI", "user:u1:msg:oi"},
	}
	for _, tt := range tests {
		if got := CacheKey(tt.userID, tt.message); got != tt.want {
			t.Errorf("CacheKey(%q, %q) = %q, want %q", tt.userID, tt.message, got, tt.want)
		}
	}
}
