package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"post-sniper/internal/domain"
	"post-sniper/internal/storage"
)

// ValuationStore implements storage.ValuationStore using ClickHouse.
type ValuationStore struct {
	conn *Conn
}

// NewValuationStore creates a new ValuationStore.
func NewValuationStore(conn *Conn) *ValuationStore {
	return &ValuationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ValuationStore = (*ValuationStore)(nil)

// InsertBulk appends snapshots in one batch. Rows sharing (position_id, timestamp_ms)
// collapse on merge (ReplacingMergeTree); reads use FINAL.
func (s *ValuationStore) InsertBulk(ctx context.Context, snapshots []*domain.ValuationSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	for _, v := range snapshots {
		if v == nil || v.PositionID == "" {
			return storage.ErrInvalidInput
		}
	}

	start := time.Now()
	err := s.insert(ctx, snapshots)
	observe("valuation_snapshots_insert", start, err)
	return err
}

func (s *ValuationStore) insert(ctx context.Context, snapshots []*domain.ValuationSnapshot) error {
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO valuation_snapshots (
			position_id, chain, asset_id, timestamp_ms,
			price, current_value, unrealized_pnl
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, v := range snapshots {
		err = batch.Append(
			v.PositionID, string(v.Chain), v.AssetID, v.TimestampMs,
			v.Price, v.CurrentValue, v.UnrealizedPnL,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByPositionID retrieves all snapshots of a position, ordered by timestamp ASC.
func (s *ValuationStore) GetByPositionID(ctx context.Context, positionID string) ([]*domain.ValuationSnapshot, error) {
	query := `
		SELECT position_id, chain, asset_id, timestamp_ms, price, current_value, unrealized_pnl
		FROM valuation_snapshots FINAL
		WHERE position_id = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, positionID)
	if err != nil {
		return nil, fmt.Errorf("query by position id: %w", err)
	}
	defer rows.Close()

	return scanValuationSnapshots(rows)
}

func scanValuationSnapshots(rows driver.Rows) ([]*domain.ValuationSnapshot, error) {
	var result []*domain.ValuationSnapshot

	for rows.Next() {
		var (
			v     domain.ValuationSnapshot
			chain string
		)
		if err := rows.Scan(
			&v.PositionID, &chain, &v.AssetID, &v.TimestampMs,
			&v.Price, &v.CurrentValue, &v.UnrealizedPnL,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		v.Chain = domain.Chain(chain)
		result = append(result, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}
