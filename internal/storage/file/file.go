// Package file provides a storage.KV that keeps one file per key inside a
// data directory.
package file

import (
	"context"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-storefront/internal/storage"
)

var (
	_ storage.KV     = (*Store)(nil)
	_ storage.Pinger = (*Store)(nil)
)

// Store is a directory-backed key-value store. Writes go to a temporary file
// that is renamed over the target, so readers never observe a torn value.
type Store struct {
	dir string
}

// New creates dir if needed and returns a Store rooted at it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "create data dir %s", dir)
	}
	return &Store{dir: dir}, nil
}

// path maps a key to a file name. Keys may contain '/', which is escaped.
func (s *Store) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrapf(err, "read key %q", key)
	}
	return data, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "write key %q", key)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "sync key %q", key)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close key %q", key)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return errors.Wrapf(err, "replace key %q", key)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "delete key %q", key)
	}
	return nil
}

// Ping checks that the data directory is still accessible.
func (s *Store) Ping(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return errors.Wrap(err, "stat data dir")
	}
	if !info.IsDir() {
		return errors.Errorf("%s is not a directory", s.dir)
	}
	return nil
}
