package chat

import (
	"context"

	"github.com/yanqian/faq-chat/internal/domain/language"
)

// Request is the single operation the core exposes to its transport.
type Request struct {
	TenantID    string `json:"tenantId"`
	SessionID   string `json:"sessionId"`
	Message     string `json:"message"`
	ForceReload bool   `json:"forceReload"`
}

// Response is returned to the HTTP transport.
type Response struct {
	Text        string       `json:"responseText"`
	Language    language.Tag `json:"language"`
	SessionID   string       `json:"sessionId"`
	Suggestions []string     `json:"suggestedCategories,omitempty"`
}

// Session is the per-conversation record. Candidates hold the ranked answers
// of the last routed question; Cursor indexes the answer currently shown.
// Invariant: Cursor is a valid index into Candidates, or Candidates is empty
// and Cursor is 0.
type Session struct {
	Language       language.Tag `json:"language"`
	LastQuestion   string       `json:"lastQuestion"`
	LastCategories []int64      `json:"lastCategories,omitempty"`
	Candidates     []string     `json:"candidates,omitempty"`
	Cursor         int          `json:"cursor"`
	NegativeStreak int          `json:"negativeStreak"`
	Escalated      bool         `json:"escalated,omitempty"`
}

// SessionStore persists conversation sessions. Implementations may evict by
// capacity or TTL; a lost session simply behaves like a fresh one.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (Session, bool, error)
	Save(ctx context.Context, sessionID string, session Session) error
}

// Service answers free-text questions against a tenant's knowledge base.
type Service interface {
	Answer(ctx context.Context, req Request) (Response, error)
}
