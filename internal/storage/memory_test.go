package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryStore("http://blobs.local")
	ctx := context.Background()

	ref, err := store.Put(ctx, "media/a.jpg", "image/jpeg", []byte("jpeg"))
	require.NoError(t, err)

	url, err := store.URL(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "http://blobs.local/media/a.jpg", url)

	data, contentType, ok := store.Get(ref)
	require.True(t, ok)
	assert.Equal(t, []byte("jpeg"), data)
	assert.Equal(t, "image/jpeg", contentType)

	require.NoError(t, store.Delete(ctx, ref))
	assert.False(t, store.Has(ref))
	_, _, ok = store.Get(ref)
	assert.False(t, ok)
	assert.ErrorIs(t, store.Delete(ctx, ref), ErrBlobNotFound)
}
