package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	missing, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.Set(ctx, "k1", []byte("v1")))
	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, store.Del(ctx, "k1"))
	got, err = store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	value := []byte("v1")
	require.NoError(t, store.Set(ctx, "k1", value))
	value[0] = 'X'

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	got[0] = 'Y'
	again, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), again)
}

func TestMemoryStoreGetByPrefix(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "study-group:b", []byte("2")))
	require.NoError(t, store.Set(ctx, "study-group:a", []byte("1")))
	require.NoError(t, store.Set(ctx, "room-thread:x", []byte("other")))

	values, err := store.GetByPrefix(ctx, "study-group:")
	require.NoError(t, err)
	// Ordered by key so scans are deterministic.
	assert.Equal(t, [][]byte{[]byte("1"), []byte("2")}, values)

	empty, err := store.GetByPrefix(ctx, "nothing:")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
