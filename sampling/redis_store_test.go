package sampling

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireRedis checks if Redis is available and skips the test if not
func requireRedis(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping Redis test in short mode")
	}

	conn, err := net.DialTimeout("tcp", "localhost:6379", 500*time.Millisecond)
	if err != nil {
		t.Skip("Redis not available at localhost:6379")
	}
	conn.Close()
}

func newTestRedisStore(t *testing.T, kind string) *RedisDeltaStore {
	t.Helper()

	store, err := NewRedisDeltaStore(RedisDeltaStoreOptions{
		RedisURL:  "redis://localhost:6379",
		Kind:      kind,
		Namespace: "teletap:test:" + time.Now().Format("150405.000000"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Replace(context.Background(), nil)
		store.Close()
	})
	return store
}

func TestRedisStoreRoundTrip(t *testing.T) {
	requireRedis(t)
	ctx := context.Background()
	store := newTestRedisStore(t, "reductions")

	require.NoError(t, store.Replace(ctx, map[string]int64{"pool.a": 100, "pool.b": 2}))

	prior, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"pool.a": 100, "pool.b": 2}, prior)
}

func TestRedisStoreReplaceIsWholesale(t *testing.T) {
	requireRedis(t)
	ctx := context.Background()
	store := newTestRedisStore(t, "heap_size")

	require.NoError(t, store.Replace(ctx, map[string]int64{"pool.a": 1, "pool.b": 2}))
	require.NoError(t, store.Replace(ctx, map[string]int64{"pool.b": 20}))

	prior, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"pool.b": 20}, prior)
}

func TestRedisStoreEmptySnapshot(t *testing.T) {
	requireRedis(t)
	ctx := context.Background()
	store := newTestRedisStore(t, "queue_length")

	require.NoError(t, store.Replace(ctx, map[string]int64{"pool.a": 1}))
	require.NoError(t, store.Replace(ctx, nil))

	prior, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, prior)
}

func TestRedisStoreKindIsolation(t *testing.T) {
	requireRedis(t)
	ctx := context.Background()

	namespace := "teletap:test:" + time.Now().Format("150405.000000")
	mk := func(kind string) *RedisDeltaStore {
		store, err := NewRedisDeltaStore(RedisDeltaStoreOptions{
			RedisURL:  "redis://localhost:6379",
			Kind:      kind,
			Namespace: namespace,
		})
		require.NoError(t, err)
		t.Cleanup(func() {
			store.Replace(ctx, nil)
			store.Close()
		})
		return store
	}

	reductions := mk("reductions")
	heap := mk("heap_size")

	require.NoError(t, reductions.Replace(ctx, map[string]int64{"pool.a": 100}))
	require.NoError(t, heap.Replace(ctx, map[string]int64{"pool.a": 7}))

	redPrior, err := reductions.Load(ctx)
	require.NoError(t, err)
	heapPrior, err := heap.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(100), redPrior["pool.a"])
	assert.Equal(t, int64(7), heapPrior["pool.a"])
}

func TestRedisStoreValidation(t *testing.T) {
	_, err := NewRedisDeltaStore(RedisDeltaStoreOptions{Kind: "reductions"})
	assert.Error(t, err)

	_, err = NewRedisDeltaStore(RedisDeltaStoreOptions{RedisURL: "redis://localhost:6379"})
	assert.Error(t, err)

	_, err = NewRedisDeltaStore(RedisDeltaStoreOptions{RedisURL: "not a url", Kind: "reductions"})
	assert.Error(t, err)
}
