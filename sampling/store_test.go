package sampling

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreEmptyOnCreation(t *testing.T) {
	store := NewMemoryDeltaStore()

	prior, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, prior)
}

func TestMemoryStoreReplaceIsWholesale(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDeltaStore()

	require.NoError(t, store.Replace(ctx, map[string]int64{"a": 1, "b": 2, "c": 3}))
	require.NoError(t, store.Replace(ctx, map[string]int64{"b": 20}))

	prior, err := store.Load(ctx)
	require.NoError(t, err)

	// No stale entries survive a tick in which they are absent
	assert.Equal(t, map[string]int64{"b": 20}, prior)
}

func TestMemoryStoreLoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDeltaStore()
	require.NoError(t, store.Replace(ctx, map[string]int64{"a": 1}))

	first, err := store.Load(ctx)
	require.NoError(t, err)
	first["a"] = 999
	first["intruder"] = 1

	second, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 1}, second)
}

func TestMemoryStoreReplaceCopiesInput(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDeltaStore()

	snapshot := map[string]int64{"a": 1}
	require.NoError(t, store.Replace(ctx, snapshot))
	snapshot["a"] = 999

	prior, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), prior["a"])
}
