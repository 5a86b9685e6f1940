// Package storage defines the durable key-value contract the storefront keeps
// its device-local state in.
package storage

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("storage: key not found")

// Keys used by the storefront.
const (
	KeyCart           = "cart"
	KeyWishlist       = "wishlist"
	KeyToken          = "token"
	KeyUsername       = "username"
	KeyTokenExpiresAt = "token_expires_at"
)

// KV is a durable key-value store. Values are replaced as a whole; there is
// no partial update.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Pinger is implemented by backends that can report their availability.
type Pinger interface {
	Ping(ctx context.Context) error
}
