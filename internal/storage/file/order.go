package file

import (
	"context"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository over orders.json, storing
// order snapshots as they are.
type OrderRepository struct {
	s *Store
}

// NewOrderRepository creates an OrderRepository.
func NewOrderRepository(s *Store) *OrderRepository {
	return &OrderRepository{s: s}
}

func restoreOrder(snap order.Snapshot) (*order.Order, error) {
	o, err := order.Restore(snap)
	if err != nil {
		return nil, apperr.Corrupt("decode order "+snap.Code, err)
	}
	return o, nil
}

// FindByCode returns the order whose code equals code or, failing that, the
// only order whose code starts with it.
func (r *OrderRepository) FindByCode(_ context.Context, code string) (*order.Order, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, order.ErrNotFound
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows, err := readTable[order.Snapshot](r.s, tableOrders)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if row.Code == code {
			return restoreOrder(row)
		}
	}
	match := -1
	for i, row := range rows {
		if strings.HasPrefix(row.Code, code) {
			if match >= 0 {
				return nil, errors.Wrapf(order.ErrNotFound, "prefix %q is ambiguous", code)
			}
			match = i
		}
	}
	if match < 0 {
		return nil, order.ErrNotFound
	}
	return restoreOrder(rows[match])
}

// Save upserts o by code.
func (r *OrderRepository) Save(_ context.Context, o *order.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return upsert(r.s, tableOrders, o.Snapshot(), func(s order.Snapshot) string { return s.Code })
}

// LoadAll returns every order in file order.
func (r *OrderRepository) LoadAll(_ context.Context) ([]*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows, err := readTable[order.Snapshot](r.s, tableOrders)
	if err != nil {
		return nil, err
	}
	out := make([]*order.Order, 0, len(rows))
	for _, row := range rows {
		o, err := restoreOrder(row)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// LoadAllRaw returns the stored snapshots without rebuilding orders.
func (r *OrderRepository) LoadAllRaw(_ context.Context) ([]order.Snapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return readTable[order.Snapshot](r.s, tableOrders)
}
