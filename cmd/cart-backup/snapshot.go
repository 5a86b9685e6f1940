package main

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/storage"
)

const snapshotVersion = 1

// snapshotKeys are the keys a snapshot carries. Session keys are left out so
// a restored kiosk always starts signed out.
var snapshotKeys = []string{storage.KeyCart, storage.KeyWishlist}

type snapshot struct {
	Version   int
	CreatedAt time.Time
	Entries   map[string]cart.Cart
}

type snapshotJSON struct {
	Version   int                        `json:"version"`
	CreatedAt time.Time                  `json:"created_at"`
	Entries   map[string]json.RawMessage `json:"entries"`
}

// export reads every snapshot key concurrently. Corrupt records are read as
// empty, the same way the agent reads them.
func export(ctx context.Context, kv storage.KV) (*snapshot, error) {
	carts := make([]cart.Cart, len(snapshotKeys))

	g, ctx := errgroup.WithContext(ctx)
	for i, key := range snapshotKeys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			carts[i] = cart.NewStore(kv, key, nil).Load(ctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "read entries")
	}

	snap := &snapshot{
		Version:   snapshotVersion,
		CreatedAt: time.Now().UTC(),
		Entries:   make(map[string]cart.Cart, len(snapshotKeys)),
	}
	for i, key := range snapshotKeys {
		snap.Entries[key] = carts[i]
	}
	return snap, nil
}

// restore overwrites every key present in snap. It bypasses the services, so
// no cartChanged or wishlistChanged signal is published.
func restore(ctx context.Context, kv storage.KV, snap *snapshot) error {
	for _, key := range snapshotKeys {
		c, ok := snap.Entries[key]
		if !ok {
			continue
		}
		if err := cart.NewStore(kv, key, nil).Save(ctx, c); err != nil {
			return errors.Wrapf(err, "restore %s", key)
		}
	}
	return nil
}

func (s *snapshot) write(w io.Writer) error {
	out := snapshotJSON{
		Version:   s.Version,
		CreatedAt: s.CreatedAt,
		Entries:   make(map[string]json.RawMessage, len(s.Entries)),
	}
	for key, c := range s.Entries {
		out.Entries[key] = cart.Encode(c)
	}

	zw := pgzip.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(out); err != nil {
		_ = zw.Close()
		return errors.Wrap(err, "encode snapshot")
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "flush snapshot")
	}
	return nil
}

func readSnapshot(r io.Reader) (*snapshot, error) {
	zr, err := pgzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open gzip stream")
	}
	defer func() { _ = zr.Close() }()

	var in snapshotJSON
	if err := json.NewDecoder(zr).Decode(&in); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	if in.Version != snapshotVersion {
		return nil, errors.Errorf("unsupported snapshot version %d", in.Version)
	}

	snap := &snapshot{
		Version:   in.Version,
		CreatedAt: in.CreatedAt,
		Entries:   make(map[string]cart.Cart, len(in.Entries)),
	}
	for key, raw := range in.Entries {
		c, err := cart.Decode(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "decode %s", key)
		}
		snap.Entries[key] = c
	}
	return snap, nil
}
