package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"post-sniper/internal/storage"
)

func TestSeenPostStore_AddAndAll(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSeenPostStore(client, "")

	require.NoError(t, store.Add(ctx, "p2"))
	require.NoError(t, store.Add(ctx, "p1"))
	assert.ErrorIs(t, store.Add(ctx, "p2"), storage.ErrDuplicateKey)

	ids, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p1"}, ids)
}

func TestSeenPostStore_MemberWithoutOrder(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSeenPostStore(client, "test:seen")

	require.NoError(t, store.Add(ctx, "p1"))
	require.NoError(t, client.Underlying().SAdd(ctx, "test:seen", "external").Err())

	ids, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "external"}, ids)
}

func TestSeenPostStore_SharedAcrossInstances(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, NewSeenPostStore(client, "").Add(ctx, "p1"))

	restarted := NewSeenPostStore(client, "")
	ids, err := restarted.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids)
	assert.ErrorIs(t, restarted.Add(ctx, "p1"), storage.ErrDuplicateKey)
}
