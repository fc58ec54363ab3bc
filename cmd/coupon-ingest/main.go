package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-backoffice/internal/app"
)

const batchSize = 1000

func main() {
	var (
		storage app.StorageConfig
		pattern string
	)

	flag.StringVar(&storage.Driver, "driver", app.DriverFile, "storage driver: file or postgres")
	flag.StringVar(&storage.DataDir, "data-dir", "data", "data directory of the file driver")
	flag.BoolVar(&storage.Compress, "compress", false, "gzip the file driver tables")
	flag.StringVar(&storage.DatabaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&pattern, "files", "coupons/*.gz", "glob of gzipped coupon files; extra arguments are added as files")
	flag.Parse()

	if storage.DatabaseURL == "" {
		storage.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if storage.Driver == app.DriverPostgres && storage.DatabaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, storage, pattern, flag.Args()); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

func run(ctx context.Context, storage app.StorageConfig, pattern string, extra []string) error {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return errors.Wrapf(err, "glob %q", pattern)
	}
	slices.Sort(files)
	files = append(files, extra...)
	if len(files) == 0 {
		return errors.Errorf("no coupon files match %q", pattern)
	}

	slog.Info("parsing coupon files", slog.Int("files", len(files)))

	results, err := parseFiles(ctx, files)
	if err != nil {
		return errors.Wrap(err, "parse files")
	}

	coupons, duplicates := dedupe(results)
	slog.Info("coupons ready",
		slog.Int("unique", len(coupons)),
		slog.Int("duplicates", duplicates),
	)
	if len(coupons) == 0 {
		slog.Info("no coupons to write")
		return nil
	}

	stores, err := app.OpenStores(ctx, storage)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer stores.Close()

	slog.Info("writing coupons", slog.Int("count", len(coupons)))

	written := 0
	for batch := range slices.Chunk(coupons, batchSize) {
		if err := stores.Coupons.SaveMany(ctx, batch); err != nil {
			return errors.Wrapf(err, "save coupons %d..%d", written, written+len(batch))
		}
		written += len(batch)
		slog.Info("write progress", slog.Int("written", written), slog.Int("total", len(coupons)))
	}

	return nil
}
