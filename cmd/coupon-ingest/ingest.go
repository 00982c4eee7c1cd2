package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/coupon"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
)

// fileResult holds the coupons parsed from one file and a bloom filter of
// their codes.
type fileResult struct {
	path      string
	coupons   []coupon.Coupon
	codes     map[string]struct{}
	filter    *bloom.BloomFilter
	malformed int
}

// readFiles parses every file concurrently.
func readFiles(ctx context.Context, lg *zap.Logger, files []string) ([]*fileResult, error) {
	results := make([]*fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			res, err := readFile(ctx, lg, path)
			if err != nil {
				return errors.Wrapf(err, "file %s", path)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func readFile(ctx context.Context, lg *zap.Logger, path string) (*fileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	res, err := parseCSV(ctx, lg.With(zap.String("file", path)), gz)
	if err != nil {
		return nil, err
	}
	res.path = path

	lg.Info("File parsed",
		zap.String("file", path),
		zap.Int("coupons", len(res.coupons)),
		zap.Int("malformed", res.malformed),
	)
	return res, nil
}

// parseCSV reads code,name,discountValue,validFrom,validUntil[,maxUses] rows.
// An optional header row is skipped. Malformed rows and repeats of a code
// within the same stream are counted and logged; the first occurrence wins.
func parseCSV(ctx context.Context, lg *zap.Logger, r io.Reader) (*fileResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	res := &fileResult{
		codes:  make(map[string]struct{}),
		filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
	}
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			res.malformed++
			lg.Warn("Malformed row", zap.Int("line", line), zap.Error(err))
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "read csv")
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "code") {
			continue
		}

		c, err := parseRow(rec)
		if err != nil {
			res.malformed++
			lg.Warn("Malformed row", zap.Int("line", line), zap.Error(err))
			continue
		}
		if _, dup := res.codes[c.Code]; dup {
			res.malformed++
			lg.Warn("Duplicate code in file", zap.Int("line", line), zap.String("code", c.Code))
			continue
		}
		res.codes[c.Code] = struct{}{}
		res.filter.AddString(c.Code)
		res.coupons = append(res.coupons, c)
	}
	return res, nil
}

func parseRow(rec []string) (coupon.Coupon, error) {
	if len(rec) < 5 || len(rec) > 6 {
		return coupon.Coupon{}, errors.Errorf("expected 5 or 6 fields, got %d", len(rec))
	}
	c := coupon.Coupon{
		Code:     coupon.NormalizeCode(rec[0]),
		Name:     strings.TrimSpace(rec[1]),
		IsActive: true,
	}
	if c.Code == "" {
		return c, errors.New("code is empty")
	}
	if c.Name == "" {
		return c, errors.New("name is empty")
	}

	v, err := decimal.NewFromString(strings.TrimSpace(rec[2]))
	if err != nil {
		return c, errors.Wrap(err, "discountValue")
	}
	if v.IsNegative() {
		return c, errors.New("discountValue is negative")
	}
	c.DiscountValue = v

	if c.ValidFrom, err = coupon.ParseTime(strings.TrimSpace(rec[3])); err != nil {
		return c, errors.Wrap(err, "validFrom")
	}
	if c.ValidUntil, err = coupon.ParseTime(strings.TrimSpace(rec[4])); err != nil {
		return c, errors.Wrap(err, "validUntil")
	}
	if !c.ValidUntil.After(c.ValidFrom) {
		return c, errors.New("validUntil must be after validFrom")
	}

	if len(rec) == 6 {
		if s := strings.TrimSpace(rec[5]); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return c, errors.Wrap(err, "maxUses")
			}
			if n < 0 {
				return c, errors.New("maxUses is negative")
			}
			if n > coupon.MaxUsesLimit {
				return c, errors.Errorf("maxUses exceeds %d", coupon.MaxUsesLimit)
			}
			c.MaxUses = &n
		}
	}
	return c, nil
}

type resolved struct {
	coupons   []coupon.Coupon
	conflicts []string
	malformed int
}

// resolve drops codes present in more than one file. Each code is tested
// against the other files' bloom filters and a hit is confirmed with the
// exact code set.
func resolve(files []*fileResult) resolved {
	var out resolved
	conflicts := make(map[string]struct{})
	for i, f := range files {
		out.malformed += f.malformed
		for _, c := range f.coupons {
			if inOtherFile(files, i, c.Code) {
				conflicts[c.Code] = struct{}{}
				continue
			}
			out.coupons = append(out.coupons, c)
		}
	}
	for code := range conflicts {
		out.conflicts = append(out.conflicts, code)
	}
	slices.Sort(out.conflicts)
	return out
}

func inOtherFile(files []*fileResult, self int, code string) bool {
	for j, other := range files {
		if j == self || !other.filter.TestString(code) {
			continue
		}
		if _, ok := other.codes[code]; ok {
			return true
		}
	}
	return false
}
