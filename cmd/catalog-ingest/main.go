// Command catalog-ingest loads supplier product feeds into the catalog.
//
// Feeds are large gzip-compressed CSV files (sku,name,price,cost,stock), one
// per supplier. A SKU is only trusted when at least two suppliers list it;
// single-feed SKUs are almost always typos or discontinued items. Membership
// is checked with per-feed bloom filters so the feeds never have to fit in
// memory at once.
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
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/vendaria/pos-api/internal/domain/catalog"
	"github.com/vendaria/pos-api/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	minSKULen     = 4
	maxSKULen     = 64
)

// feedRow is one parsed supplier line.
type feedRow struct {
	sku   string
	name  string
	price decimal.Decimal
	cost  decimal.Decimal
	stock int
}

// fileResult holds candidate rows found in a single feed during pass 2. The
// mask records which feeds the SKU was seen in.
type fileResult struct {
	rows  map[string]feedRow
	masks map[string]uint
}

func main() {
	var (
		dataDir     string
		numFeeds    int
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing feedN.csv.gz supplier files")
	flag.IntVar(&numFeeds, "feeds", 3, "number of supplier feed files")
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

	if err := run(ctx, dataDir, numFeeds, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir string, numFeeds int, databaseURL string) error {
	files := make([]string, numFeeds)
	for i := range numFeeds {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("feed%d.csv.gz", i+1))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	// Pass 1: build one bloom filter of SKUs per feed, concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("feeds", numFeeds))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: collect rows whose SKU appears in 2+ feeds.
	slog.Info("pass 2: collecting confirmed rows")

	confirmed, err := findConfirmedRows(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "find confirmed rows")
	}

	slog.Info("confirmed SKUs", slog.Int("count", len(confirmed)))

	if len(confirmed) == 0 {
		slog.Info("nothing to ingest")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := writeProducts(ctx, postgres.NewCatalogRepository(pool), confirmed); err != nil {
		return errors.Wrap(err, "write products to database")
	}

	return nil
}

// buildBloomFilters creates one bloom filter per feed, concurrently.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFile(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(line string) {
			sku := skuOf(line)
			if sku == "" {
				return
			}
			filter.AddString(sku)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.Int("feed", idx+1),
					slog.Uint64("rows", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for feed %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("feed", idx+1),
			slog.Uint64("total_rows", count),
		)

		filters[idx] = filter
		return nil
	}
}

// findConfirmedRows re-streams each feed and checks SKUs against the OTHER
// feeds' bloom filters. A SKU is confirmed when it appears in 2 or more
// feeds; the row with the lowest supplier cost wins.
func findConfirmedRows(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]feedRow, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(findCandidatesInFile(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge per-feed bitmasks; keep the cheapest row per SKU.
	masks := make(map[string]uint)
	rows := make(map[string]feedRow)
	for _, r := range results {
		for sku, mask := range r.masks {
			masks[sku] |= mask
		}
		for sku, row := range r.rows {
			if best, ok := rows[sku]; !ok || row.cost.LessThan(best.cost) {
				rows[sku] = row
			}
		}
	}

	var confirmed []feedRow
	for sku, mask := range masks {
		if bits.OnesCount(mask) >= 2 {
			confirmed = append(confirmed, rows[sku])
		}
	}

	return confirmed, nil
}

func findCandidatesInFile(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []fileResult,
) func() error {
	return func() error {
		res := fileResult{
			rows:  make(map[string]feedRow),
			masks: make(map[string]uint),
		}
		feedBit := uint(1) << uint(idx)
		var count uint64

		if err := streamGzFile(ctx, path, func(line string) {
			row, err := parseRow(line)
			if err != nil {
				return
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("feed", idx+1),
					slog.Uint64("rows", count),
				)
			}

			// Only keep rows whose SKU some OTHER feed also lists.
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(row.sku) {
					res.masks[row.sku] |= feedBit
					res.rows[row.sku] = row
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan feed %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("feed", idx+1),
			slog.Uint64("total_rows", count),
			slog.Int("candidates", len(res.rows)),
		)

		results[idx] = res
		return nil
	}
}

// skuOf extracts and validates the SKU column without parsing the whole line.
func skuOf(line string) string {
	i := strings.IndexByte(line, ',')
	if i < 0 {
		return ""
	}
	sku := line[:i]
	if len(sku) < minSKULen || len(sku) > maxSKULen {
		return ""
	}
	return sku
}

// parseRow parses one sku,name,price,cost,stock line. Malformed lines are
// skipped by the caller.
func parseRow(line string) (feedRow, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 5 {
		return feedRow{}, errors.New("wrong column count")
	}
	sku := parts[0]
	if len(sku) < minSKULen || len(sku) > maxSKULen {
		return feedRow{}, errors.New("bad sku length")
	}

	price, err := decimal.NewFromString(parts[2])
	if err != nil {
		return feedRow{}, errors.Wrap(err, "parse price")
	}
	cost, err := decimal.NewFromString(parts[3])
	if err != nil {
		return feedRow{}, errors.Wrap(err, "parse cost")
	}
	stock, err := strconv.Atoi(parts[4])
	if err != nil {
		return feedRow{}, errors.Wrap(err, "parse stock")
	}

	return feedRow{
		sku:   sku,
		name:  parts[1],
		price: price,
		cost:  cost,
		stock: stock,
	}, nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// writeProducts upserts all confirmed rows into the catalog.
func writeProducts(ctx context.Context, repo *postgres.CatalogRepository, rows []feedRow) error {
	slog.Info("writing products to database", slog.Int("count", len(rows)))

	for i, row := range rows {
		cost := row.cost
		if err := repo.UpsertProduct(ctx, catalog.Product{
			ID:    row.sku,
			Name:  row.name,
			Price: row.price,
			Cost:  &cost,
			Stock: row.stock,
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", row.sku)
		}

		if (i+1)%100 == 0 || i+1 == len(rows) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(rows)))
		}
	}

	return nil
}
