package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"post-sniper/internal/domain"
	"post-sniper/internal/storage"
)

func testTrade(id string, chain domain.Chain, asset string, at time.Time) *domain.TradeRecord {
	return &domain.TradeRecord{
		TradeID:     id,
		Chain:       chain,
		AssetID:     asset,
		Direction:   domain.DirectionBuy,
		Venue:       "uniswap-v3",
		Success:     true,
		AmountIn:    decimal.RequireFromString("0.05"),
		AmountOut:   decimal.RequireFromString("123456.789"),
		ExternalRef: "0xabc",
		CreatedAt:   at.UTC(),
	}
}

func TestTradeRecordStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeRecordStore(pool)

	trade := testTrade("trade1", domain.ChainBase, "0x1111111111111111111111111111111111111111", time.Unix(1700000000, 0))
	require.NoError(t, store.Insert(ctx, trade))

	got, err := store.GetByID(ctx, "trade1")
	require.NoError(t, err)

	assert.Equal(t, domain.ChainBase, got.Chain)
	assert.Equal(t, domain.DirectionBuy, got.Direction)
	assert.Equal(t, "uniswap-v3", got.Venue)
	assert.True(t, got.Success)
	assert.True(t, trade.AmountIn.Equal(got.AmountIn), "amount_in: %s", got.AmountIn)
	assert.True(t, trade.AmountOut.Equal(got.AmountOut), "amount_out: %s", got.AmountOut)
	assert.True(t, trade.CreatedAt.Equal(got.CreatedAt))
}

func TestTradeRecordStore_FailedTrade(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeRecordStore(pool)

	failed := &domain.TradeRecord{
		TradeID:   "trade-failed",
		Chain:     domain.ChainSolana,
		AssetID:   "So11111111111111111111111111111111111111112",
		Direction: domain.DirectionSell,
		Error:     "not available on any supported venue",
		CreatedAt: time.Unix(1700000000, 0).UTC(),
	}
	require.NoError(t, store.Insert(ctx, failed))

	got, err := store.GetByID(ctx, "trade-failed")
	require.NoError(t, err)
	assert.False(t, got.Success)
	assert.Empty(t, got.Venue)
	assert.Equal(t, failed.Error, got.Error)
	assert.True(t, got.AmountIn.IsZero())
}

func TestTradeRecordStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeRecordStore(pool)

	trade := testTrade("trade1", domain.ChainBase, "0xasset", time.Unix(1700000000, 0))
	require.NoError(t, store.Insert(ctx, trade))

	err := store.Insert(ctx, trade)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTradeRecordStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewTradeRecordStore(pool).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeRecordStore_GetByAssetAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeRecordStore(pool)

	base := time.Unix(1700000000, 0)
	require.NoError(t, store.Insert(ctx, testTrade("t2", domain.ChainSolana, "mintA", base.Add(2*time.Second))))
	require.NoError(t, store.Insert(ctx, testTrade("t1", domain.ChainSolana, "mintA", base.Add(1*time.Second))))
	require.NoError(t, store.Insert(ctx, testTrade("t3", domain.ChainBase, "mintA", base.Add(3*time.Second))))

	byAsset, err := store.GetByAsset(ctx, domain.ChainSolana, "mintA")
	require.NoError(t, err)
	require.Len(t, byAsset, 2)
	assert.Equal(t, "t1", byAsset[0].TradeID)
	assert.Equal(t, "t2", byAsset[1].TradeID)

	recent, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "t3", recent[0].TradeID)
	assert.Equal(t, "t2", recent[1].TradeID)

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
