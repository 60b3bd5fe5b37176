package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*InMemoryIdempotencyStore, *time.Time) {
	t.Helper()
	store := NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	return store, &now
}

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	t.Run("marks new key as processed", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "receipt:PO-1:1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew, "new key should return true")
	})

	t.Run("returns false for already processed key", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "receipt:PO-1:2", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "receipt:PO-1:2", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew, "already processed key should return false")
	})

	t.Run("allows reprocessing after expiration", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "receipt:PO-1:3", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)

		*now = now.Add(2 * time.Minute)

		isNew, err = store.MarkProcessed(ctx, "receipt:PO-1:3", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew, "expired key should be reprocessable")
	})
}

func TestInMemoryIdempotencyStore_IsProcessedAndForget(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "k", time.Minute)
	require.NoError(t, err)
	processed, err = store.IsProcessed(ctx, "k")
	require.NoError(t, err)
	assert.True(t, processed)

	require.NoError(t, store.Forget(ctx, "k"))
	processed, err = store.IsProcessed(ctx, "k")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "short", time.Second)
	require.NoError(t, err)
	*now = now.Add(time.Minute)
	processed, err = store.IsProcessed(ctx, "short")
	require.NoError(t, err)
	assert.False(t, processed, "expired key should return false")
}

func TestInMemoryIdempotencyStore_CommitExtendsPendingKey(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	isNew, err := store.MarkProcessed(ctx, "receipt:PO-1:9", 5*time.Minute)
	require.NoError(t, err)
	require.True(t, isNew)
	require.NoError(t, store.Commit(ctx, "receipt:PO-1:9", 72*time.Hour))

	*now = now.Add(time.Hour)
	processed, err := store.IsProcessed(ctx, "receipt:PO-1:9")
	require.NoError(t, err)
	assert.True(t, processed, "committed key outlives its pending TTL")

	*now = now.Add(72 * time.Hour)
	processed, err = store.IsProcessed(ctx, "receipt:PO-1:9")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	_, _ = store.MarkProcessed(ctx, "a", time.Second)
	_, _ = store.MarkProcessed(ctx, "b", time.Hour)
	assert.Equal(t, 2, store.Size())

	*now = now.Add(time.Minute)
	store.cleanup()
	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
