package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-storefront/internal/storage"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, storage.KeyCart)
	require.ErrorIs(t, err, storage.ErrNotFound)

	value := []byte(`[]`)
	require.NoError(t, s.Set(ctx, storage.KeyCart, value))
	value[0] = 'x'

	got, err := s.Get(ctx, storage.KeyCart)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	require.NoError(t, s.Delete(ctx, storage.KeyCart))
	_, err = s.Get(ctx, storage.KeyCart)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
