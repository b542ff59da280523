package bot

import "testing"

func TestAccessList(t *testing.T) {
	t.Parallel()

	t.Run("empty list allows everyone", func(t *testing.T) {
		a := NewAccessList(AccessConfig{})
		if !a.IsAllowed("5511912345678") {
			t.Error("empty allow-list must allow everyone")
		}
	})

	t.Run("normalized matching", func(t *testing.T) {
		a := NewAccessList(AccessConfig{AllowedNumbers: []string{"+55 11 91234-5678"}})

		if !a.IsAllowed("5511912345678") {
			t.Error("bare digits should match formatted entry")
		}
		if !a.IsAllowed("5511912345678@s.whatsapp.net") {
			t.Error("jid should match after stripping server")
		}
		if a.IsAllowed("5511900000000") {
			t.Error("unknown number must be rejected")
		}
	})
}
