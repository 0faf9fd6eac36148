package memory

import (
	"context"
	"sync"

	"post-sniper/internal/storage"
)

// SeenPostStore is an in-memory implementation of storage.SeenPostStore.
type SeenPostStore struct {
	mu    sync.RWMutex
	seen  map[string]struct{}
	order []string
}

// NewSeenPostStore creates a new in-memory seen post store.
func NewSeenPostStore() *SeenPostStore {
	return &SeenPostStore{
		seen: make(map[string]struct{}),
	}
}

// Add records a post id. Returns ErrDuplicateKey if already recorded.
func (s *SeenPostStore) Add(_ context.Context, postID string) error {
	if postID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[postID]; exists {
		return storage.ErrDuplicateKey
	}
	s.seen[postID] = struct{}{}
	s.order = append(s.order, postID)
	return nil
}

// All returns every recorded id in insertion order.
func (s *SeenPostStore) All(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, len(s.order))
	copy(result, s.order)
	return result, nil
}

// Compile-time interface check.
var _ storage.SeenPostStore = (*SeenPostStore)(nil)
