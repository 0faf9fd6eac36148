package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"post-sniper/internal/storage"
)

// SeenPostStore implements storage.SeenPostStore using PostgreSQL.
type SeenPostStore struct {
	pool *Pool
}

// NewSeenPostStore creates a new SeenPostStore.
func NewSeenPostStore(pool *Pool) *SeenPostStore {
	return &SeenPostStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SeenPostStore = (*SeenPostStore)(nil)

// Add records a post id. Returns ErrDuplicateKey if post_id exists.
func (s *SeenPostStore) Add(ctx context.Context, postID string) error {
	if postID == "" {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	_, err := s.pool.Exec(ctx, `INSERT INTO seen_posts (post_id) VALUES ($1)`, postID)
	observe("seen_posts_add", start, err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert seen post: %w", err)
	}
	return nil
}

// All returns every recorded id in insertion order.
func (s *SeenPostStore) All(ctx context.Context) ([]string, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, `SELECT post_id FROM seen_posts ORDER BY seq ASC`)
	if err != nil {
		observe("seen_posts_all", start, err)
		return nil, fmt.Errorf("load seen posts: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	observe("seen_posts_all", start, err)
	if err != nil {
		return nil, fmt.Errorf("scan seen posts: %w", err)
	}
	return ids, nil
}
