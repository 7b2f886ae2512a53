// Package importer loads products and discounts from files into the catalog.
package importer

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/pricing-catalog/internal/domain/product"
)

// Discounter applies a discount to a product. catalog.Service implements it.
type Discounter interface {
	ApplyDiscount(ctx context.Context, productID, discountID string, percent decimal.Decimal) (bool, error)
}

// Stats counts the outcome of every imported line.
type Stats struct {
	Applied   int64
	Duplicate int64
	Rejected  int64
}

type discountLine struct {
	num        int
	productID  string
	discountID string
	percent    string
}

// OpenFile opens path for reading, transparently decompressing files that
// end in ".gz".
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}

	gz, err := pgzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	return &gzipFile{Reader: gz, f: f}, nil
}

type gzipFile struct {
	*pgzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	gzErr := g.Reader.Close()
	if err := g.f.Close(); err != nil {
		return err
	}
	return gzErr
}

// ImportDiscounts reads product_id,discount_id,percent records from r and
// applies each with workers concurrent callers. An optional header row is
// skipped. Lines the catalog rejects as invalid or naming a missing product
// are counted and logged; any other failure stops the import.
func ImportDiscounts(ctx context.Context, lg *zap.Logger, r io.Reader, d Discounter, workers int) (Stats, error) {
	if workers < 1 {
		workers = 1
	}

	var (
		stats                        Stats
		applied, duplicate, rejected atomic.Int64
	)
	lines := make(chan discountLine, workers*2)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(lines)
		return readDiscounts(ctx, r, lines)
	})
	for range workers {
		g.Go(func() error {
			for l := range lines {
				ok, err := applyLine(ctx, d, l)
				switch {
				case err == nil && ok:
					applied.Add(1)
				case err == nil:
					duplicate.Add(1)
				case errors.Is(err, product.ErrValidation), errors.Is(err, product.ErrNotFound):
					rejected.Add(1)
					lg.Warn("Discount rejected", zap.Int("line", l.num), zap.Error(err))
				default:
					return errors.Wrapf(err, "line %d", l.num)
				}
			}
			return nil
		})
	}

	err := g.Wait()
	stats.Applied = applied.Load()
	stats.Duplicate = duplicate.Load()
	stats.Rejected = rejected.Load()
	return stats, err
}

func applyLine(ctx context.Context, d Discounter, l discountLine) (bool, error) {
	percent, err := parseDecimal(l.percent)
	if err != nil {
		return false, product.NewValidationError("percent", err.Error(), product.ErrInvalidDiscount)
	}
	return d.ApplyDiscount(ctx, l.productID, l.discountID, percent)
}

func readDiscounts(ctx context.Context, r io.Reader, out chan<- discountLine) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	for num := 1; ; num++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read csv")
		}
		if num == 1 && strings.EqualFold(rec[0], "product_id") {
			continue
		}

		l := discountLine{
			num:        num,
			productID:  strings.TrimSpace(rec[0]),
			discountID: strings.TrimSpace(rec[1]),
			percent:    strings.TrimSpace(rec[2]),
		}
		select {
		case out <- l:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
