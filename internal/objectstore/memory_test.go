package objectstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.Put(ctx, "docs", "a/b.json", strings.NewReader(`{"x":1}`), "application/json"))

	obj, err := store.Get(ctx, "docs", "a/b.json")
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(obj.Body))
	assert.Equal(t, "application/json", obj.ContentType)

	// Callers cannot change stored bytes through a returned object.
	obj.Body[0] = 'X'
	again, err := store.Get(ctx, "docs", "a/b.json")
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(again.Body))
}

func TestMemoryNotFound(t *testing.T) {
	store := NewMemory()
	_, err := store.Get(context.Background(), "docs", "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(context.Background(), "other", "missing.json", strings.NewReader("{}"), "application/json"))
	_, err = store.Get(context.Background(), "docs", "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	for _, k := range []string{"b.pdf", "a.json", "dir/c.pdf"} {
		require.NoError(t, store.Put(ctx, "docs", k, strings.NewReader(""), "application/pdf"))
	}
	require.NoError(t, store.Put(ctx, "elsewhere", "z.pdf", strings.NewReader(""), "application/pdf"))
	assert.Equal(t, []string{"a.json", "b.pdf", "dir/c.pdf"}, store.Keys("docs"))
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewMemory()
	assert.ErrorIs(t, store.Put(ctx, "docs", "k", strings.NewReader(""), ""), context.Canceled)
	_, err := store.Get(ctx, "docs", "k")
	assert.ErrorIs(t, err, context.Canceled)
}
