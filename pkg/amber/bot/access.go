// Package bot – access.go gates who the assistant answers. Messages from
// numbers outside the allow-list are ignored silently; the sender gets no
// feedback that a bot exists.
package bot

import "strings"

// AccessList answers membership checks against the configured allow-list.
// An empty list allows everyone.
type AccessList struct {
	allowed map[string]struct{}
}

// NewAccessList builds an AccessList from cfg. Numbers are normalized to
// digits only, so "+55 11 91234-5678" and "5511912345678" compare equal.
func NewAccessList(cfg AccessConfig) *AccessList {
	a := &AccessList{allowed: make(map[string]struct{}, len(cfg.AllowedNumbers))}
	for _, n := range cfg.AllowedNumbers {
		if norm := normalizeNumber(n); norm != "" {
			a.allowed[norm] = struct{}{}
		}
	}
	return a
}

// IsAllowed reports whether sender may talk to the assistant.
func (a *AccessList) IsAllowed(sender string) bool {
	if len(a.allowed) == 0 {
		return true
	}
	_, ok := a.allowed[normalizeNumber(sender)]
	return ok
}

// normalizeNumber strips everything but digits. WhatsApp JIDs like
// "5511912345678@s.whatsapp.net" reduce to the bare number.
func normalizeNumber(s string) string {
	if at := strings.IndexByte(s, '@'); at >= 0 {
		s = s[:at]
	}
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
