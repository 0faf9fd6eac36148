package clickhouse

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"post-sniper/internal/domain"
	"post-sniper/internal/storage"
)

func testSnapshot(pos string, ts int64, price string) *domain.ValuationSnapshot {
	p := decimal.RequireFromString(price)
	value := p.Mul(decimal.NewFromInt(1000))
	return &domain.ValuationSnapshot{
		PositionID:    pos,
		Chain:         domain.ChainSolana,
		AssetID:       "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		TimestampMs:   ts,
		Price:         p,
		CurrentValue:  value,
		UnrealizedPnL: value.Sub(decimal.NewFromInt(1)),
	}
}

func TestValuationStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewValuationStore(conn)
	ctx := context.Background()

	// Empty insert is a no-op
	require.NoError(t, store.InsertBulk(ctx, nil))

	err := store.InsertBulk(ctx, []*domain.ValuationSnapshot{
		testSnapshot("pos-1", 2000, "0.002"),
		testSnapshot("pos-1", 1000, "0.001"),
		testSnapshot("pos-2", 1000, "0.5"),
	})
	require.NoError(t, err)

	got, err := store.GetByPositionID(ctx, "pos-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1000), got[0].TimestampMs)
	assert.Equal(t, int64(2000), got[1].TimestampMs)
	assert.Equal(t, domain.ChainSolana, got[1].Chain)
	assert.True(t, decimal.RequireFromString("0.002").Equal(got[1].Price), "price: %s", got[1].Price)
	assert.True(t, decimal.RequireFromString("2").Equal(got[1].CurrentValue), "value: %s", got[1].CurrentValue)
	assert.True(t, decimal.RequireFromString("1").Equal(got[1].UnrealizedPnL), "pnl: %s", got[1].UnrealizedPnL)
}

func TestValuationStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewValuationStore(conn)
	err := store.InsertBulk(context.Background(), []*domain.ValuationSnapshot{{TimestampMs: 1}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestValuationStore_UnknownPosition(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	got, err := NewValuationStore(conn).GetByPositionID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}
