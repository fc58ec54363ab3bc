package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-backoffice/internal/domain/coupon"
)

func writeGz(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func TestParseLine(t *testing.T) {
	c, err := parseLine("primeira10;percentage;10;")
	require.NoError(t, err)
	assert.Equal(t, "PRIMEIRA10", c.Code())
	assert.Equal(t, coupon.KindPercentage, c.Kind())
	assert.True(t, decimal.NewFromInt(10).Equal(c.Value()))

	c, err = parseLine("FRETEZERO;fixed;100;2025-12-31")
	require.NoError(t, err)
	assert.Equal(t, coupon.KindFixed, c.Kind())

	c, err = parseLine("NATAL;%;15")
	require.NoError(t, err)
	assert.Equal(t, coupon.KindPercentage, c.Kind())

	for _, blank := range []string{"", "   ", "# header"} {
		c, err = parseLine(blank)
		require.NoError(t, err)
		assert.Nil(t, c)
	}

	for _, bad := range []string{
		"ONLYCODE",
		"A;percentage;10;2025-01-01;extra",
		"A;bogus;10;",
		"A;fixed;ten;",
		"A;percentage;150;",
		"A;fixed;10;tomorrow",
	} {
		_, err = parseLine(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseExpiry(t *testing.T) {
	got, err := parseExpiry("2025-12-31")
	require.NoError(t, err)
	assert.Equal(t, 2025, got.Year())
	assert.Equal(t, time.December, got.Month())
	assert.Equal(t, 31, got.Day())
	assert.Equal(t, 23, got.Hour())

	got, err = parseExpiry("2025-06-15T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC), got.UTC())
}

func TestParseFilesAndDedupe(t *testing.T) {
	dir := t.TempDir()
	first := writeGz(t, dir, "a.gz",
		"# code;kind;value;expires",
		"PRIMEIRA10;percentage;10;",
		"FRETEZERO;fixed;100;",
		"broken line",
	)
	second := writeGz(t, dir, "b.gz",
		"primeira10;percentage;50;",
		"NATAL;percentage;15;2025-12-25",
		"NATAL;percentage;20;",
	)

	results, err := parseFiles(context.Background(), []string{first, second})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Len(t, results[0].coupons, 2)
	assert.Equal(t, 1, results[0].skipped)
	assert.Len(t, results[1].coupons, 3)

	unique, duplicates := dedupe(results)
	assert.Equal(t, 2, duplicates)

	var codes []string
	byCode := map[string]*coupon.Coupon{}
	for _, c := range unique {
		codes = append(codes, c.Code())
		byCode[c.Code()] = c
	}
	assert.Equal(t, []string{"PRIMEIRA10", "FRETEZERO", "NATAL"}, codes)
	assert.True(t, decimal.NewFromInt(10).Equal(byCode["PRIMEIRA10"].Value()), "first occurrence wins")
	assert.True(t, decimal.NewFromInt(15).Equal(byCode["NATAL"].Value()))
}

func TestParseFiles_MissingFile(t *testing.T) {
	_, err := parseFiles(context.Background(), []string{filepath.Join(t.TempDir(), "missing.gz")})
	require.Error(t, err)
}

func TestDedupe_Empty(t *testing.T) {
	unique, duplicates := dedupe(nil)
	assert.Empty(t, unique)
	assert.Zero(t, duplicates)
}
