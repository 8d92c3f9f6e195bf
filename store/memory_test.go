package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "a/1", []byte("one")))
	require.NoError(t, s.Put(ctx, "a/2", []byte("two")))
	require.NoError(t, s.Put(ctx, "b/1", []byte("three")))

	data, err := s.Get(ctx, "a/1")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), data)

	names, err := s.List(ctx, "a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1", "a/2"}, names)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, s.Delete(ctx, "a/1"))
	_, err = s.Get(ctx, "a/1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "missing"), ErrNotFound)
}

func TestMemoryStore_CopiesData(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	src := []byte("payload")
	require.NoError(t, s.Put(ctx, "a", src))
	src[0] = 'X'

	data, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	// Mutating the returned copy must not corrupt the stored blob.
	data[0] = 'Y'
	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), again)
}
