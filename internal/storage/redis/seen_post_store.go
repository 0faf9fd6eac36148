package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"post-sniper/internal/storage"
)

// DefaultSeenPostsKey is the set holding processed post ids.
const DefaultSeenPostsKey = "sniper:seen_posts"

// SeenPostStore implements storage.SeenPostStore with a Redis set for membership
// and a list keeping insertion order.
type SeenPostStore struct {
	rdb      *redis.Client
	setKey   string
	orderKey string
}

// NewSeenPostStore creates a SeenPostStore under key. Empty key uses DefaultSeenPostsKey.
func NewSeenPostStore(c *Client, key string) *SeenPostStore {
	if key == "" {
		key = DefaultSeenPostsKey
	}
	return &SeenPostStore{
		rdb:      c.Underlying(),
		setKey:   key,
		orderKey: key + ":order",
	}
}

// Add records a post id. Returns ErrDuplicateKey if already a member.
func (s *SeenPostStore) Add(ctx context.Context, postID string) error {
	if postID == "" {
		return storage.ErrInvalidInput
	}

	added, err := s.rdb.SAdd(ctx, s.setKey, postID).Result()
	if err != nil {
		return fmt.Errorf("redis: add seen post %s: %w", postID, err)
	}
	if added == 0 {
		return storage.ErrDuplicateKey
	}

	if err := s.rdb.RPush(ctx, s.orderKey, postID).Err(); err != nil {
		return fmt.Errorf("redis: append seen post %s: %w", postID, err)
	}
	return nil
}

// All returns every recorded id in insertion order. Members missing from the
// order list (e.g. added by another writer) are appended at the end.
func (s *SeenPostStore) All(ctx context.Context) ([]string, error) {
	ordered, err := s.rdb.LRange(ctx, s.orderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load seen post order: %w", err)
	}
	members, err := s.rdb.SMembers(ctx, s.setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load seen posts: %w", err)
	}

	inSet := make(map[string]struct{}, len(members))
	for _, m := range members {
		inSet[m] = struct{}{}
	}

	result := make([]string, 0, len(members))
	listed := make(map[string]struct{}, len(ordered))
	for _, id := range ordered {
		if _, ok := inSet[id]; !ok {
			continue
		}
		if _, dup := listed[id]; dup {
			continue
		}
		listed[id] = struct{}{}
		result = append(result, id)
	}
	for _, m := range members {
		if _, ok := listed[m]; !ok {
			result = append(result, m)
		}
	}
	return result, nil
}

// Compile-time interface check.
var _ storage.SeenPostStore = (*SeenPostStore)(nil)
