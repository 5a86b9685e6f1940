// Command cart-backup exports the stored cart and wishlist to a gzip JSON
// snapshot and restores them from one.
//
// A restore writes the storage keys directly and sends no change signals.
// Stop the cart agent before restoring, or restart it afterwards so open
// pages reconnect and re-read their state.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	appkg "github.com/xenking/kart-storefront/internal/app"
	"github.com/xenking/kart-storefront/internal/storage"
)

func main() {
	var (
		exportPath  string
		restorePath string
	)

	flag.StringVar(&exportPath, "export", "", "write a snapshot to this .json.gz file")
	flag.StringVar(&restorePath, "restore", "", "restore the snapshot in this .json.gz file")
	flag.Parse()

	if (exportPath == "") == (restorePath == "") {
		slog.Error("exactly one of -export or -restore is required")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, exportPath, restorePath); err != nil {
		slog.Error("backup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("backup completed successfully")
}

func run(ctx context.Context, exportPath, restorePath string) error {
	cfg, err := appkg.LoadConfigNoFlags()
	if err != nil {
		return err
	}

	slog.Info("opening storage", slog.String("driver", cfg.Storage.Driver))

	store, err := appkg.OpenStorage(ctx, cfg.Storage, zap.NewNop())
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer store.Close()

	if exportPath != "" {
		return exportFile(ctx, store.KV, exportPath)
	}
	return restoreFile(ctx, store.KV, restorePath)
}

func exportFile(ctx context.Context, kv storage.KV, path string) (rerr error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create snapshot file")
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = errors.Wrap(err, "close snapshot file")
		}
	}()

	snap, err := export(ctx, kv)
	if err != nil {
		return err
	}
	if err := snap.write(f); err != nil {
		return err
	}

	for key, c := range snap.Entries {
		slog.Info("exported", slog.String("key", key), slog.Int("lines", len(c)))
	}
	return nil
}

func restoreFile(ctx context.Context, kv storage.KV, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open snapshot file")
	}
	defer func() { _ = f.Close() }()

	snap, err := readSnapshot(f)
	if err != nil {
		return err
	}
	slog.Info("restoring snapshot", slog.Time("created_at", snap.CreatedAt))
	slog.Warn("connected clients are not notified; restart the cart agent after restoring")

	return restore(ctx, kv, snap)
}
