package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/domain/receipt"
	"github.com/xenking/kart-storefront/internal/storage"
	"github.com/xenking/kart-storefront/internal/storage/file"
	"github.com/xenking/kart-storefront/internal/storage/memory"
	"github.com/xenking/kart-storefront/internal/storage/postgres"
	"github.com/xenking/kart-storefront/pkg/health"
)

// Storage is an opened storage backend.
type Storage struct {
	KV       storage.KV
	Receipts receipt.Repository
	// Checks are readiness checks for the backend.
	Checks []health.Check

	close func()
}

// Close releases backend resources.
func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStorage opens the configured backend. The postgres backend applies the
// embedded schema before returning.
func OpenStorage(ctx context.Context, cfg StorageConfig, lg *zap.Logger) (*Storage, error) {
	switch cfg.Driver {
	case DriverMemory:
		lg.Warn("Using in-memory storage, state is lost on restart")
		kv := memory.New()
		return &Storage{KV: kv, Receipts: receipt.NewKVRepository(kv)}, nil

	case DriverFile:
		kv, err := file.New(cfg.Dir)
		if err != nil {
			return nil, errors.Wrap(err, "open file storage")
		}
		lg.Info("Using file storage", zap.String("dir", cfg.Dir))
		return &Storage{
			KV:       kv,
			Receipts: receipt.NewKVRepository(kv),
			Checks: []health.Check{
				{Name: "storage", Kind: health.Readiness, Timeout: time.Second, Func: health.PingCheck(kv)},
				{Name: "data_dir", Kind: health.Readiness, Timeout: time.Second, Func: health.WritableDirCheck(cfg.Dir)},
			},
		}, nil

	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		lg.Info("Using postgres storage")
		kv := postgres.NewKV(pool)
		return &Storage{
			KV:       kv,
			Receipts: postgres.NewReceiptRepository(pool),
			Checks: []health.Check{
				{Name: "postgres", Kind: health.Readiness, Timeout: 5 * time.Second, Func: health.PingCheck(kv)},
			},
			close: pool.Close,
		}, nil
	}
	return nil, errors.Errorf("unknown storage driver %q", cfg.Driver)
}
