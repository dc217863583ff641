package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := OCRArtifactKey("prop-1", "doc-1")
	payload := []byte(`{"page_count":2}`)

	artifact, err := store.Put(ctx, key, payload)
	require.NoError(t, err)
	assert.Equal(t, key, artifact.Key)
	assert.Equal(t, int64(len(payload)), artifact.Size)
	assert.Len(t, artifact.Checksum, 64)

	rc, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestLocalStoreChecksum(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	a, err := store.Put(ctx, "a.json", []byte("same content"))
	require.NoError(t, err)
	b, err := store.Put(ctx, "b.json", []byte("same content"))
	require.NoError(t, err)
	c, err := store.Put(ctx, "c.json", []byte("different content"))
	require.NoError(t, err)

	assert.Equal(t, a.Checksum, b.Checksum)
	assert.NotEqual(t, a.Checksum, c.Checksum)
}

func TestLocalStoreDelete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Put(ctx, "doc.json", []byte("{}"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "doc.json"))
	_, err = store.Get(ctx, "doc.json")
	assert.Error(t, err)

	// Deleting an absent key is not an error.
	require.NoError(t, store.Delete(ctx, "doc.json"))
}

func TestOCRArtifactKey(t *testing.T) {
	assert.Equal(t,
		"properties/prop-9/documents/doc-3/ocr.json",
		OCRArtifactKey("prop-9", "doc-3"))
}
