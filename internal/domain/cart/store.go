package cart

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/storage"
)

// Store persists a Cart as a single value under one key.
type Store struct {
	kv  storage.KV
	key string
	lg  *zap.Logger
}

// NewStore returns a Store that keeps its cart under key.
func NewStore(kv storage.KV, key string, lg *zap.Logger) *Store {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Store{kv: kv, key: key, lg: lg}
}

// Load returns the stored cart. Missing, unreadable or corrupt content yields
// an empty cart; the problem is logged and never returned.
func (s *Store) Load(ctx context.Context) Cart {
	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.lg.Warn("Read cart failed, using empty cart",
				zap.String("key", s.key),
				zap.Error(err),
			)
		}
		return Cart{}
	}

	c, err := Decode(data)
	if err != nil {
		s.lg.Warn("Stored cart is corrupt, using empty cart",
			zap.String("key", s.key),
			zap.Error(err),
		)
		return Cart{}
	}
	return c
}

// Save overwrites the stored cart with c.
func (s *Store) Save(ctx context.Context, c Cart) error {
	if err := s.kv.Set(ctx, s.key, Encode(c)); err != nil {
		return errors.Wrapf(err, "save %s", s.key)
	}
	return nil
}
