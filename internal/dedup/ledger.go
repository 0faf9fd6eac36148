// Package dedup gates re-processing of feed posts.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"post-sniper/internal/storage"
)

// Ledger records processed post identifiers.
// Once marked, an identifier is never removed.
type Ledger interface {
	Seen(id string) bool
	Mark(id string)
}

// Set is an unbounded in-memory Ledger.
type Set struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{ids: make(map[string]struct{})}
}

// Seen reports whether id was marked.
func (s *Set) Seen(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Mark records id.
func (s *Set) Mark(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
}

// Len returns the number of marked identifiers.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Persistent is a Set backed by a SeenPostStore so that marks survive restarts.
// Seen never performs I/O; Mark writes through to the store.
type Persistent struct {
	*Set
	store  storage.SeenPostStore
	logger *logrus.Entry
}

// NewPersistent creates a Persistent ledger and warms it from store.
func NewPersistent(ctx context.Context, store storage.SeenPostStore, logger *logrus.Entry) (*Persistent, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	ids, err := store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load seen posts: %w", err)
	}

	set := NewSet()
	for _, id := range ids {
		set.Mark(id)
	}
	logger.WithField("count", len(ids)).Info("dedup ledger warmed")

	return &Persistent{Set: set, store: store, logger: logger}, nil
}

// Mark records id in memory and in the backing store.
// Store failures are logged; the in-memory mark still gates this process.
func (p *Persistent) Mark(id string) {
	p.Set.Mark(id)

	err := p.store.Add(context.Background(), id)
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		p.logger.WithError(err).WithField("post_id", id).Warn("persist seen post failed")
	}
}

var (
	_ Ledger = (*Set)(nil)
	_ Ledger = (*Persistent)(nil)
)
