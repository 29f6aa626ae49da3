package sessionstore

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/yanqian/faq-chat/internal/domain/chat"
)

// MemoryStore keeps sessions in a bounded in-process LRU. Evicted or expired
// sessions simply restart the conversation, so losing one is harmless.
type MemoryStore struct {
	sessions *expirable.LRU[string, chat.Session]
}

// NewMemoryStore constructs a store bounded by capacity and TTL.
func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	if capacity <= 0 {
		capacity = 10000
	}
	return &MemoryStore{
		sessions: expirable.NewLRU[string, chat.Session](capacity, nil, ttl),
	}
}

// Get implements chat.SessionStore.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (chat.Session, bool, error) {
	sess, ok := s.sessions.Get(sessionID)
	return sess, ok, nil
}

// Save implements chat.SessionStore.
func (s *MemoryStore) Save(_ context.Context, sessionID string, session chat.Session) error {
	s.sessions.Add(sessionID, session)
	return nil
}

// Close releases resources. Present for parity with remote stores.
func (s *MemoryStore) Close() {}

var _ chat.SessionStore = (*MemoryStore)(nil)
