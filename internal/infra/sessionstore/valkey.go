package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/faq-chat/internal/domain/chat"
)

// ValkeyStore persists sessions in a Valkey-compatible database so multiple
// replicas share conversation state.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
}

// NewValkeyStore constructs a store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string, ttl time.Duration) *ValkeyStore {
	if prefix == "" {
		prefix = "chat"
	}
	return &ValkeyStore{client: client, prefix: prefix, ttl: ttl}
}

// Get implements chat.SessionStore.
func (s *ValkeyStore) Get(ctx context.Context, sessionID string) (chat.Session, bool, error) {
	cmd := s.client.B().Get().Key(s.sessionKey(sessionID)).Build()
	payload, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return chat.Session{}, false, nil
		}
		return chat.Session{}, false, err
	}
	var session chat.Session
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return chat.Session{}, false, err
	}
	return session, true, nil
}

// Save implements chat.SessionStore.
func (s *ValkeyStore) Save(ctx context.Context, sessionID string, session chat.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.sessionKey(sessionID)).Value(string(payload))
	var cmd valkey.Completed
	if s.ttl > 0 {
		ttl := s.ttl
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

// Close shuts down the underlying client.
func (s *ValkeyStore) Close() {
	s.client.Close()
}

func (s *ValkeyStore) sessionKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, sessionID)
}

var _ chat.SessionStore = (*ValkeyStore)(nil)
