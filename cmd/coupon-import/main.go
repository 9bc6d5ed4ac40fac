// Command coupon-import bulk-loads promo codes from partner code dumps.
//
// Partners ship several gzipped files of candidate codes; a code counts
// as valid only when it appears in at least two of them. The import
// streams each file twice: pass 1 builds one bloom filter per file,
// pass 2 collects codes that hit another file's filter, then the
// confirmed set is upserted as ready-to-use percentage coupons.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/pedidolocal/storefront/internal/storage/postgres"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	numFiles      = 3
	progressEvery = 10_000_000
	minCodeLen    = 8
	maxCodeLen    = 10
	batchSize     = 500
)

// Imported codes all get the same rule; merchants tune individual
// coupons afterwards through the API.
var (
	importedDiscount = decimal.NewFromInt(10)
	importedMinOrder = decimal.NewFromInt(30)
)

type fileResult struct {
	candidates map[string]uint
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing couponbaseN.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon import completed")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files := make([]string, numFiles)
	for i := range numFiles {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("couponbase%d.gz", i+1))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", numFiles))
	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: confirming codes across files")
	codes, err := confirmCodes(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "confirm codes")
	}
	slog.Info("confirmed codes", slog.Int("count", len(codes)))

	if len(codes) == 0 {
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return writeCoupons(ctx, pool, codes)
}

func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			var count uint64

			if err := streamGzFile(ctx, f, func(code string) {
				if len(code) >= minCodeLen && len(code) <= maxCodeLen {
					filter.AddString(code)
					count++
					if count%progressEvery == 0 {
						slog.Info("pass 1 progress",
							slog.Int("file", i+1),
							slog.Uint64("codes", count),
						)
					}
				}
			}); err != nil {
				return errors.Wrapf(err, "build filter for file %d", i+1)
			}

			slog.Info("pass 1 complete", slog.Int("file", i+1), slog.Uint64("codes", count))
			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// confirmCodes scans every file and keeps codes that also hit another
// file's bloom filter. Each candidate carries a bitmask of the files it
// was seen in; two or more set bits confirm it.
func confirmCodes(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]string, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			candidates := make(map[string]uint)
			fileBit := uint(1) << uint(i)

			if err := streamGzFile(ctx, f, func(code string) {
				if len(code) < minCodeLen || len(code) > maxCodeLen {
					return
				}
				for j, filter := range filters {
					if j == i {
						continue
					}
					if filter.TestString(code) {
						candidates[code] |= fileBit
						break
					}
				}
			}); err != nil {
				return errors.Wrapf(err, "scan file %d", i+1)
			}

			slog.Info("pass 2 complete", slog.Int("file", i+1), slog.Int("candidates", len(candidates)))
			results[i] = fileResult{candidates: candidates}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, r := range results {
		for code, mask := range r.candidates {
			merged[code] |= mask
		}
	}

	var confirmed []string
	for code, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			confirmed = append(confirmed, code)
		}
	}
	return confirmed, nil
}

// streamGzFile calls fn for every line of a gzip-compressed file.
func streamGzFile(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}
	return errors.Wrapf(scanner.Err(), "scan %s", path)
}

// writeCoupons upserts the confirmed codes in batches. Existing coupons
// keep their tuned rule and usage count.
func writeCoupons(ctx context.Context, pool *pgxpool.Pool, codes []string) error {
	slog.Info("writing coupons", slog.Int("count", len(codes)))

	for start := 0; start < len(codes); start += batchSize {
		end := min(start+batchSize, len(codes))

		batch := &pgx.Batch{}
		for _, code := range codes[start:end] {
			batch.Queue(`
				INSERT INTO coupons (code, discount_type, value, min_order_value, active)
				VALUES (UPPER(TRIM($1)), 'percentage', $2, $3, TRUE)
				ON CONFLICT (code) DO NOTHING`,
				code, importedDiscount, importedMinOrder,
			)
		}

		if err := pool.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrapf(err, "write batch at %d", start)
		}
		slog.Info("write progress", slog.Int("written", end), slog.Int("total", len(codes)))
	}
	return nil
}
