package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/coupon"
	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/repository"
)

func main() {
	var (
		pattern     string
		databaseURL string
		batchSize   int
		dryRun      bool
	)

	flag.StringVar(&pattern, "files", "data/*.csv.gz", "glob matching gzip-compressed coupon CSV files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&batchSize, "batch-size", 500, "coupons per upsert transaction")
	flag.BoolVar(&dryRun, "dry-run", false, "parse and report without writing")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}
	if batchSize <= 0 {
		lg.Fatal("batch size must be positive", zap.Int("batch_size", batchSize))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, pattern, databaseURL, batchSize, dryRun); err != nil {
		lg.Fatal("Coupon ingest failed", zap.Error(err))
	}
	lg.Info("Coupon ingest completed successfully")
}

func run(ctx context.Context, lg *zap.Logger, pattern, databaseURL string, batchSize int, dryRun bool) error {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return errors.Wrapf(err, "glob %q", pattern)
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %q", pattern)
	}

	lg.Info("Reading files", zap.Int("files", len(files)))
	parsed, err := readFiles(ctx, lg, files)
	if err != nil {
		return errors.Wrap(err, "read files")
	}

	res := resolve(parsed)
	for _, code := range res.conflicts {
		lg.Warn("Code appears in more than one file, skipped", zap.String("code", code))
	}
	lg.Info("Resolved coupons",
		zap.Int("valid", len(res.coupons)),
		zap.Int("cross_file_duplicates", len(res.conflicts)),
		zap.Int("malformed", res.malformed),
	)

	if dryRun || len(res.coupons) == 0 {
		return nil
	}

	lg.Info("Connecting to database")
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return write(ctx, lg, repository.NewCouponRepository(pool), res.coupons, batchSize)
}

type batchUpserter interface {
	UpsertBatch(ctx context.Context, coupons []coupon.Coupon) (int, error)
}

func write(ctx context.Context, lg *zap.Logger, store batchUpserter, coupons []coupon.Coupon, batchSize int) error {
	var inserted, written int
	for start := 0; start < len(coupons); start += batchSize {
		end := min(start+batchSize, len(coupons))
		n, err := store.UpsertBatch(ctx, coupons[start:end])
		if err != nil {
			return errors.Wrapf(err, "upsert batch at %d", start)
		}
		inserted += n
		written = end
		lg.Info("Write progress", zap.Int("written", written), zap.Int("total", len(coupons)))
	}
	lg.Info("Coupons written",
		zap.Int("inserted", inserted),
		zap.Int("updated", written-inserted),
	)
	return nil
}
