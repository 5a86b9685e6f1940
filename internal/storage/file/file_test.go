package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-storefront/internal/storage"
)

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s, err := New(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))

	_, err = s.Get(ctx, storage.KeyCart)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set(ctx, storage.KeyCart, []byte(`[{"id":"p1"}]`)))
	require.NoError(t, s.Set(ctx, storage.KeyCart, []byte(`[]`)))

	got, err := s.Get(ctx, storage.KeyCart)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	require.NoError(t, s.Delete(ctx, storage.KeyCart))
	require.NoError(t, s.Delete(ctx, storage.KeyCart))
	_, err = s.Get(ctx, storage.KeyCart)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_KeysWithSlashes(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "orders/42", []byte(`{}`)))

	got, err := s.Get(ctx, "orders/42")
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.False(t, entries[0].IsDir())
}

func TestStore_CancelledContext(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Set(ctx, storage.KeyCart, []byte(`[]`)), context.Canceled)
}
