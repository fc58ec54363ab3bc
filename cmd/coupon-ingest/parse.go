package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-backoffice/internal/domain/coupon"
)

const bloomFPR = 0.001

// fileResult holds the coupons parsed from one file, in line order.
type fileResult struct {
	coupons []*coupon.Coupon
	skipped int
}

// parseLine parses "CODE;kind;value;expires". The expiry may be empty, a
// date or an RFC 3339 timestamp. Blank and '#' lines return nil, nil.
func parseLine(line string) (*coupon.Coupon, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}

	fields := strings.Split(line, ";")
	if len(fields) < 3 || len(fields) > 4 {
		return nil, errors.Errorf("want 3 or 4 fields, got %d", len(fields))
	}

	kind, err := coupon.ParseKind(fields[1])
	if err != nil {
		return nil, err
	}
	value, err := decimal.NewFromString(strings.TrimSpace(fields[2]))
	if err != nil {
		return nil, errors.Wrapf(err, "value %q", fields[2])
	}

	var expiresAt *time.Time
	if len(fields) == 4 {
		if raw := strings.TrimSpace(fields[3]); raw != "" {
			t, err := parseExpiry(raw)
			if err != nil {
				return nil, err
			}
			expiresAt = &t
		}
	}

	return coupon.New(fields[0], value, kind, expiresAt)
}

func parseExpiry(raw string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		// A date expires at the end of that day.
		return t.Add(24*time.Hour - time.Nanosecond), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.Errorf("expiry %q is neither a date nor RFC 3339", raw)
	}
	return t, nil
}

// parseReader parses every line of r, skipping and logging malformed ones.
func parseReader(ctx context.Context, name string, r io.Reader) (fileResult, error) {
	var (
		res    fileResult
		lineNo int
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return fileResult{}, err
		}
		lineNo++

		c, err := parseLine(scanner.Text())
		if err != nil {
			res.skipped++
			slog.Warn("skipping line",
				slog.String("file", name),
				slog.Int("line", lineNo),
				slog.String("error", err.Error()),
			)
			continue
		}
		if c != nil {
			res.coupons = append(res.coupons, c)
		}
	}
	if err := scanner.Err(); err != nil {
		return fileResult{}, errors.Wrapf(err, "scan %s", name)
	}
	return res, nil
}

// parseGzFile opens a gzip-compressed coupon file and parses it.
func parseGzFile(ctx context.Context, path string) (fileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return fileResult{}, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return fileResult{}, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	return parseReader(ctx, path, gz)
}

// parseFiles parses all files concurrently. Results keep the file order.
func parseFiles(ctx context.Context, files []string) ([]fileResult, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			res, err := parseGzFile(ctx, path)
			if err != nil {
				return err
			}
			slog.Info("parsed file",
				slog.String("file", path),
				slog.Int("coupons", len(res.coupons)),
				slog.Int("skipped", res.skipped),
			)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// dedupe merges results in order, keeping the first occurrence of each code.
// The bloom filter answers most lookups; a positive is confirmed against the
// exact set so that false positives never drop a coupon.
func dedupe(results []fileResult) (unique []*coupon.Coupon, duplicates int) {
	total := 0
	for _, r := range results {
		total += len(r.coupons)
	}
	if total == 0 {
		return nil, 0
	}

	filter := bloom.NewWithEstimates(uint(total), bloomFPR)
	seen := make(map[string]struct{}, total)
	unique = make([]*coupon.Coupon, 0, total)

	for _, r := range results {
		for _, c := range r.coupons {
			code := c.Code()
			if filter.TestAndAddString(code) {
				if _, ok := seen[code]; ok {
					duplicates++
					continue
				}
			}
			seen[code] = struct{}{}
			unique = append(unique, c)
		}
	}
	return unique, duplicates
}
