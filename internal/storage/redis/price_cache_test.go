package redis

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

func TestPriceCache_SetAndGet(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	cache := NewPriceCache(client, time.Minute)

	ts := time.Unix(1700000000, 123)
	price := decimal.RequireFromString("0.000000123456789")
	require.NoError(t, cache.SetPrice(ctx, domain.ChainSolana, "mintA", price, ts))

	got, gotTS, err := cache.GetPrice(ctx, domain.ChainSolana, "mintA")
	require.NoError(t, err)
	assert.True(t, price.Equal(got), "price: %s", got)
	assert.True(t, ts.Equal(gotTS))

	ttl, err := client.Underlying().TTL(ctx, "price:solana:mintA").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	// Same asset id on another chain is a different key
	_, _, err = cache.GetPrice(ctx, domain.ChainBase, "mintA")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
