package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/product"
	"github.com/xenking/kart-storefront/internal/storage"
	"github.com/xenking/kart-storefront/internal/storage/memory"
)

func TestSnapshot_ExportRestore(t *testing.T) {
	ctx := context.Background()
	src := memory.New()

	widget := product.Product{ID: "p1", Name: "Widget", Price: decimal.NewFromInt(25000)}
	gadget := product.Product{ID: "p2", Name: "Gadget", Price: decimal.NewFromInt(45000)}
	require.NoError(t, cart.NewStore(src, storage.KeyCart, nil).Save(ctx, cart.AddItem(cart.Cart{}, widget, 2)))
	require.NoError(t, cart.NewStore(src, storage.KeyWishlist, nil).Save(ctx, cart.AddItem(cart.Cart{}, gadget, 1)))
	require.NoError(t, src.Set(ctx, storage.KeyToken, []byte("secret")))

	snap, err := export(ctx, src)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, snap.write(&buf))

	read, err := readSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, snapshotVersion, read.Version)
	assert.True(t, snap.CreatedAt.Equal(read.CreatedAt))

	dst := memory.New()
	require.NoError(t, restore(ctx, dst, read))

	restored := cart.NewStore(dst, storage.KeyCart, nil).Load(ctx)
	require.Len(t, restored, 1)
	assert.Equal(t, "p1", restored[0].ProductID)
	assert.Equal(t, 2, restored[0].Quantity)
	assert.True(t, restored[0].UnitPrice.Equal(decimal.NewFromInt(25000)))

	list := cart.NewStore(dst, storage.KeyWishlist, nil).Load(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, "p2", list[0].ProductID)

	_, err = dst.Get(ctx, storage.KeyToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSnapshot_CorruptEntryExportsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	require.NoError(t, kv.Set(ctx, storage.KeyCart, []byte("{not json")))

	snap, err := export(ctx, kv)
	require.NoError(t, err)
	assert.Empty(t, snap.Entries[storage.KeyCart])
	assert.Contains(t, snap.Entries, storage.KeyWishlist)
}

func TestReadSnapshot_Errors(t *testing.T) {
	_, err := readSnapshot(bytes.NewReader([]byte("plain text")))
	require.Error(t, err)

	var buf bytes.Buffer
	snap := &snapshot{Version: 99, Entries: map[string]cart.Cart{}}
	require.NoError(t, snap.write(&buf))
	_, err = readSnapshot(&buf)
	require.ErrorContains(t, err, "unsupported snapshot version 99")
}
