package contentstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/yanqian/faq-chat/internal/domain/knowledge"
)

// MemoryStore is an in-process content store used for local development and
// tests. Seed data is set up front; reads are concurrency safe.
type MemoryStore struct {
	mu         sync.RWMutex
	categories map[string][]knowledge.Category
	entries    map[string]map[int64][]knowledge.Entry
	profiles   map[string]knowledge.TenantProfile
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		categories: make(map[string][]knowledge.Category),
		entries:    make(map[string]map[int64][]knowledge.Entry),
		profiles:   make(map[string]knowledge.TenantProfile),
	}
}

// SeedTenant replaces one tenant's content.
func (s *MemoryStore) SeedTenant(tenantID string, categories []knowledge.Category, entries map[int64][]knowledge.Entry, profile knowledge.TenantProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[tenantID] = categories
	s.entries[tenantID] = entries
	s.profiles[tenantID] = profile
}

// ListCategories returns the seeded categories in seed order.
func (s *MemoryStore) ListCategories(_ context.Context, tenantID string) ([]knowledge.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	categories, ok := s.categories[tenantID]
	if !ok {
		return nil, fmt.Errorf("unknown tenant %q", tenantID)
	}
	out := make([]knowledge.Category, len(categories))
	copy(out, categories)
	return out, nil
}

// ListEntries returns the seeded entries of one category.
func (s *MemoryStore) ListEntries(_ context.Context, tenantID string, categoryID int64) ([]knowledge.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byCategory, ok := s.entries[tenantID]
	if !ok {
		return nil, fmt.Errorf("unknown tenant %q", tenantID)
	}
	entries := byCategory[categoryID]
	out := make([]knowledge.Entry, len(entries))
	copy(out, entries)
	return out, nil
}

// TenantProfile returns the seeded profile, empty when none was set.
func (s *MemoryStore) TenantProfile(_ context.Context, tenantID string) (knowledge.TenantProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profiles[tenantID], nil
}

var _ knowledge.ContentStore = (*MemoryStore)(nil)
