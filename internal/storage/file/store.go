// Package file implements the repositories on top of one JSON file per
// entity kind, optionally gzip-compressed.
package file

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
)

// Table file names, without extension.
const (
	tableProducts  = "products"
	tableCustomers = "customers"
	tableCoupons   = "coupons"
	tableOrders    = "orders"
	tableAPIKeys   = "api_keys"
)

// Options configures a Store.
type Options struct {
	// Dir is the data directory. It is created when missing.
	Dir string
	// Compress stores tables as .json.gz.
	Compress bool
}

// Store owns the data directory. A single lock serialises every
// read-modify-write cycle across tables.
type Store struct {
	dir      string
	compress bool
	mu       sync.Mutex
}

// Open prepares the data directory.
func Open(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, errors.New("data directory is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
		return nil, apperr.Persistence("create data dir", err)
	}
	return &Store{dir: opts.Dir, compress: opts.Compress}, nil
}

// Ping checks the data directory is still accessible.
func (s *Store) Ping() error {
	fi, err := os.Stat(s.dir)
	if err != nil {
		return apperr.Persistence("stat data dir", err)
	}
	if !fi.IsDir() {
		return apperr.Persistence("stat data dir", errors.Errorf("%s is not a directory", s.dir))
	}
	return nil
}

func (s *Store) path(table string) string {
	name := table + ".json"
	if s.compress {
		name += ".gz"
	}
	return filepath.Join(s.dir, name)
}

// readTable loads every row of table. A missing file is an empty table.
// Callers must hold s.mu.
func readTable[T any](s *Store, table string) ([]T, error) {
	f, err := os.Open(s.path(table))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("open "+table, err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if s.compress {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, apperr.Persistence("read "+table, err)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.Persistence("read "+table, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, apperr.Persistence("decode "+table, err)
	}
	return rows, nil
}

// writeTable replaces table with rows atomically: the rows are written to a
// temporary file in the same directory which is then renamed over the
// table. Callers must hold s.mu.
func writeTable[T any](s *Store, table string, rows []T) (rerr error) {
	if rows == nil {
		rows = []T{}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return apperr.Persistence("encode "+table, err)
	}

	tmp, err := os.CreateTemp(s.dir, table+".*.tmp")
	if err != nil {
		return apperr.Persistence("create temp "+table, err)
	}
	defer func() {
		if rerr != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if s.compress {
		gz := pgzip.NewWriter(tmp)
		if _, err := gz.Write(data); err != nil {
			return apperr.Persistence("write "+table, err)
		}
		if err := gz.Close(); err != nil {
			return apperr.Persistence("write "+table, err)
		}
	} else if _, err := tmp.Write(data); err != nil {
		return apperr.Persistence("write "+table, err)
	}

	if err := tmp.Sync(); err != nil {
		return apperr.Persistence("sync "+table, err)
	}
	if err := tmp.Close(); err != nil {
		return apperr.Persistence("close "+table, err)
	}
	if err := os.Rename(tmp.Name(), s.path(table)); err != nil {
		return apperr.Persistence("replace "+table, err)
	}
	return nil
}

// upsert loads table, replaces the row matching key or appends row, and
// writes the table back. Callers must hold s.mu.
func upsert[T any](s *Store, table string, row T, key func(T) string) error {
	rows, err := readTable[T](s, table)
	if err != nil {
		return err
	}
	k := key(row)
	replaced := false
	for i := range rows {
		if key(rows[i]) == k {
			rows[i] = row
			replaced = true
			break
		}
	}
	if !replaced {
		rows = append(rows, row)
	}
	return writeTable(s, table, rows)
}
