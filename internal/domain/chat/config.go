package chat

import "github.com/yanqian/faq-chat/internal/domain/language"

// MessageSet holds the user-facing texts for one language. Greeting and
// NoAnswer act as defaults when the tenant authored no override.
type MessageSet struct {
	Greeting    string
	NoCategory  string
	Suggestions string // format string, %s receives the category list
	NoAnswer    string
	Exhausted   string
	Fallback    string
}

// Config holds runtime knobs for the conversation engine.
type Config struct {
	// EscalationThreshold is the negative-feedback streak at which retrieval
	// escalates from the lexical to the vector strategy.
	EscalationThreshold int
	// MaxSuggestions caps category hints on a classification miss.
	MaxSuggestions int
	Messages       map[language.Tag]MessageSet
}

func (c Config) messages(tag language.Tag) MessageSet {
	if set, ok := c.Messages[tag]; ok {
		return set
	}
	return c.Messages[language.Portuguese]
}
