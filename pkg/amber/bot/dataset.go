// Package bot – dataset.go implements the static Q/A dataset matcher.
// A small list of canned exchanges (greetings, who-are-you, etc.) is checked
// before memory and the LLM. Matching is case-insensitive substring
// containment: the incoming message must CONTAIN the stored user utterance.
// First match in load order wins.
package bot

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// DatasetEntry is one canned user/assistant exchange.
type DatasetEntry struct {
	Messages []DatasetMessage `json:"messages"`
}

// DatasetMessage is one side of a canned exchange.
type DatasetMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Dataset holds the preloaded canned exchanges.
type Dataset struct {
	entries []datasetPair
}

// datasetPair is a normalized entry ready for matching.
type datasetPair struct {
	userLower string
	answer    string
}

// defaultDataset are the built-in canned exchanges, in pt-BR like the rest
// of Amber's voice.
var defaultDataset = []DatasetEntry{
	{Messages: []DatasetMessage{
		{Role: "user", Content: "oi"},
		{Role: "assistant", Content: "Olá! Como posso ajudar?"},
	}},
	{Messages: []DatasetMessage{
		{Role: "user", Content: "bom dia"},
		{Role: "assistant", Content: "Bom dia! Em que posso ajudar hoje?"},
	}},
	{Messages: []DatasetMessage{
		{Role: "user", Content: "quem é você"},
		{Role: "assistant", Content: "Eu sou a Amber, sua assistente pessoal."},
	}},
	{Messages: []DatasetMessage{
		{Role: "user", Content: "obrigado"},
		{Role: "assistant", Content: "De nada! Qualquer coisa é só chamar."},
	}},
}

// NewDataset builds a matcher from entries. Entries without a user and an
// assistant message are skipped.
func NewDataset(entries []DatasetEntry) *Dataset {
	d := &Dataset{}
	for _, e := range entries {
		var user, assistant string
		for _, m := range e.Messages {
			switch m.Role {
			case "user":
				if user == "" {
					user = m.Content
				}
			case "assistant":
				if assistant == "" {
					assistant = m.Content
				}
			}
		}
		if user == "" || assistant == "" {
			continue
		}
		d.entries = append(d.entries, datasetPair{
			userLower: strings.ToLower(user),
			answer:    assistant,
		})
	}
	return d
}

// DefaultDataset returns the matcher built from the embedded entries.
func DefaultDataset() *Dataset {
	return NewDataset(defaultDataset)
}

// LoadDataset reads entries from a JSON file and appends them after the
// built-in ones (built-ins keep first-match priority).
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset file: %w", err)
	}

	var entries []DatasetEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing dataset file: %w", err)
	}

	return NewDataset(append(append([]DatasetEntry{}, defaultDataset...), entries...)), nil
}

// Lookup returns the canned answer for message, if any entry's user
// utterance is contained in it. Returns ("", false) when nothing matches.
func (d *Dataset) Lookup(message string) (string, bool) {
	lower := strings.ToLower(message)
	for _, e := range d.entries {
		if strings.Contains(lower, e.userLower) {
			return e.answer, true
		}
	}
	return "", false
}

// Len returns the number of loaded entries.
func (d *Dataset) Len() int {
	return len(d.entries)
}
