package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"post-sniper/internal/storage"
)

func TestSeenPostStore_AddAndAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSeenPostStore(pool)

	require.NoError(t, store.Add(ctx, "1790000000000000003"))
	require.NoError(t, store.Add(ctx, "1790000000000000001"))
	require.NoError(t, store.Add(ctx, "1790000000000000002"))

	ids, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"1790000000000000003",
		"1790000000000000001",
		"1790000000000000002",
	}, ids)
}

func TestSeenPostStore_Duplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSeenPostStore(pool)

	require.NoError(t, store.Add(ctx, "p1"))
	assert.ErrorIs(t, store.Add(ctx, "p1"), storage.ErrDuplicateKey)

	ids, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestSeenPostStore_Empty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSeenPostStore(pool)

	ids, err := store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	assert.ErrorIs(t, store.Add(ctx, ""), storage.ErrInvalidInput)
}
