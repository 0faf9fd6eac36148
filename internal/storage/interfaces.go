package storage

import (
	"context"

	"post-sniper/internal/domain"
)

// SeenPostStore persists the identifiers of posts that were already processed.
type SeenPostStore interface {
	// Add records a post id. Returns ErrDuplicateKey if the id was already recorded.
	Add(ctx context.Context, postID string) error

	// All returns every recorded id in insertion order.
	All(ctx context.Context) ([]string, error)
}

// TradeRecordStore provides access to trade_records storage.
type TradeRecordStore interface {
	// Insert adds a new trade record. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// GetByID retrieves a trade record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error)

	// GetByAsset retrieves all trade records for an asset, ordered by created_at ASC.
	GetByAsset(ctx context.Context, chain domain.Chain, assetID string) ([]*domain.TradeRecord, error)

	// List retrieves the most recent trade records, newest first. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]*domain.TradeRecord, error)
}

// ValuationStore provides access to valuation_snapshots storage.
type ValuationStore interface {
	// InsertBulk appends snapshots. Snapshots are keyed by (position_id, timestamp_ms).
	InsertBulk(ctx context.Context, snapshots []*domain.ValuationSnapshot) error

	// GetByPositionID retrieves all snapshots of a position, ordered by timestamp ASC.
	GetByPositionID(ctx context.Context, positionID string) ([]*domain.ValuationSnapshot, error)
}
