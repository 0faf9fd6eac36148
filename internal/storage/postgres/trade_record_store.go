package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"post-sniper/internal/domain"
	"post-sniper/internal/storage"
)

// TradeRecordStore implements storage.TradeRecordStore using PostgreSQL.
type TradeRecordStore struct {
	pool *Pool
}

// NewTradeRecordStore creates a new TradeRecordStore.
func NewTradeRecordStore(pool *Pool) *TradeRecordStore {
	return &TradeRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

const tradeRecordColumns = `
	trade_id, chain, asset_id, direction, venue, success,
	amount_in, amount_out, external_ref, error, created_at`

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeRecordStore) Insert(ctx context.Context, t *domain.TradeRecord) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trade_records (` + tradeRecordColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11
		)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		t.TradeID, string(t.Chain), t.AssetID, string(t.Direction), t.Venue, t.Success,
		t.AmountIn, t.AmountOut, t.ExternalRef, t.Error, t.CreatedAt,
	)
	observe("trade_records_insert", start, err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade record: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeRecordStore) GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	query := `SELECT ` + tradeRecordColumns + ` FROM trade_records WHERE trade_id = $1`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTradeRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade record by id: %w", err)
	}
	return t, nil
}

// GetByAsset retrieves all trades for an asset, ordered by created_at ASC.
func (s *TradeRecordStore) GetByAsset(ctx context.Context, chain domain.Chain, assetID string) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeRecordColumns + `
		FROM trade_records
		WHERE chain = $1 AND asset_id = $2
		ORDER BY created_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(chain), assetID)
	if err != nil {
		return nil, fmt.Errorf("get trade records by asset: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// List retrieves the most recent trades, newest first.
func (s *TradeRecordStore) List(ctx context.Context, limit int) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeRecordColumns + `
		FROM trade_records
		ORDER BY created_at DESC, trade_id DESC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		observe("trade_records_list", start, err)
		return nil, fmt.Errorf("list trade records: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRecords(rows)
	observe("trade_records_list", start, err)
	return trades, err
}

// scanTradeRecord scans a single row into a TradeRecord.
func scanTradeRecord(row pgx.Row) (*domain.TradeRecord, error) {
	var (
		t          domain.TradeRecord
		chain, dir string
	)

	err := row.Scan(
		&t.TradeID, &chain, &t.AssetID, &dir, &t.Venue, &t.Success,
		&t.AmountIn, &t.AmountOut, &t.ExternalRef, &t.Error, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Chain = domain.Chain(chain)
	t.Direction = domain.Direction(dir)
	return &t, nil
}

// scanTradeRecords scans multiple rows into a slice of TradeRecord.
func scanTradeRecords(rows pgx.Rows) ([]*domain.TradeRecord, error) {
	var trades []*domain.TradeRecord

	for rows.Next() {
		t, err := scanTradeRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade record: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade records: %w", err)
	}

	return trades, nil
}
