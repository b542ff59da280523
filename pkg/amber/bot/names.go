package bot

import (
	"fmt"
	"regexp"
	"strings"
)

// ---------- Name extraction ----------

// nameSentinel prefixes the memory record written when the user tells us
// their name, so asking later can fetch it back with a targeted query.
const nameSentinel = "O nome do usuário é"

var (
	// "meu nome é Maria", "o meu nome e joão", "meu nome é a Ana"
	nameStatementRe = regexp.MustCompile(`(?i)meu\s+nome\s+[eé]\s+(?:[oa]\s+)?(\S+)`)

	// "qual é o meu nome", "qual meu nome?", "você sabe qual é meu nome"
	nameQuestionRe = regexp.MustCompile(`(?i)qual\s+(?:[eé]\s+)?(?:o\s+)?meu\s+nome`)
)

// ExtractName returns the single-token name from a "meu nome é X" statement.
// Trailing punctuation is stripped from the captured token.
func ExtractName(message string) (string, bool) {
	m := nameStatementRe.FindStringSubmatch(message)
	if m == nil {
		return "", false
	}
	name := strings.Trim(m[1], ".,!?;:")
	if name == "" {
		return "", false
	}
	return name, true
}

// IsNameQuestion reports whether the message asks what the user's name is.
func IsNameQuestion(message string) bool {
	return nameQuestionRe.MatchString(message)
}

// NameFact formats the memory record content for a learned name.
func NameFact(name string) string {
	return fmt.Sprintf("%s %s", nameSentinel, name)
}

// NameFromFact extracts the name back out of a stored name fact. Returns
// ("", false) when content is not a name fact.
func NameFromFact(content string) (string, bool) {
	if !strings.HasPrefix(content, nameSentinel) {
		return "", false
	}
	name := strings.TrimSpace(strings.TrimPrefix(content, nameSentinel))
	if name == "" {
		return "", false
	}
	return name, true
}
