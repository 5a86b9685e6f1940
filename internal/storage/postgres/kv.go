package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-storefront/internal/storage"
)

const (
	getValueSQL = `SELECT value FROM kv_entries WHERE key = $1`
	setValueSQL = `INSERT INTO kv_entries (key, value, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	deleteValueSQL = `DELETE FROM kv_entries WHERE key = $1`
)

var (
	_ storage.KV     = (*KV)(nil)
	_ storage.Pinger = (*KV)(nil)
)

// KV implements storage.KV backed by the kv_entries table.
type KV struct {
	pool *pgxpool.Pool
}

// NewKV returns a KV that uses the given pool.
func NewKV(pool *pgxpool.Pool) *KV {
	return &KV{pool: pool}
}

// Get returns the value stored under key, or storage.ErrNotFound.
func (s *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	if err := s.pool.QueryRow(ctx, getValueSQL, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get %q", key)
	}
	return value, nil
}

// Set replaces the value stored under key.
func (s *KV) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if _, err := s.pool.Exec(ctx, setValueSQL, key, value); err != nil {
		return errors.Wrapf(err, "set %q", key)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *KV) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, deleteValueSQL, key); err != nil {
		return errors.Wrapf(err, "delete %q", key)
	}
	return nil
}

// Ping checks database connectivity.
func (s *KV) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
