package memory

import (
	"context"
	"sort"
	"sync"

	"post-sniper/internal/domain"
	"post-sniper/internal/storage"
)

// ValuationStore is an in-memory implementation of storage.ValuationStore.
type ValuationStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.ValuationSnapshot // keyed by position_id
}

// NewValuationStore creates a new in-memory valuation store.
func NewValuationStore() *ValuationStore {
	return &ValuationStore{
		data: make(map[string][]*domain.ValuationSnapshot),
	}
}

// InsertBulk appends snapshots. A snapshot with an existing (position_id, timestamp_ms)
// replaces the previous one, matching ReplacingMergeTree semantics.
func (s *ValuationStore) InsertBulk(_ context.Context, snapshots []*domain.ValuationSnapshot) error {
	for _, v := range snapshots {
		if v == nil || v.PositionID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range snapshots {
		copy := *v
		list := s.data[v.PositionID]
		replaced := false
		for i, existing := range list {
			if existing.TimestampMs == v.TimestampMs {
				list[i] = &copy
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, &copy)
		}
		s.data[v.PositionID] = list
	}
	return nil
}

// GetByPositionID retrieves all snapshots of a position, ordered by timestamp ASC.
func (s *ValuationStore) GetByPositionID(_ context.Context, positionID string) ([]*domain.ValuationSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.data[positionID]
	result := make([]*domain.ValuationSnapshot, 0, len(list))
	for _, v := range list {
		copy := *v
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}

// Compile-time interface check.
var _ storage.ValuationStore = (*ValuationStore)(nil)
