// Package report projects persisted orders into revenue summaries.
package report

import (
	"context"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/order"
)

// Period selects the revenue grouping.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

func (p Period) layout() (string, bool) {
	switch p {
	case PeriodDay:
		return "2006-01-02", true
	case PeriodMonth:
		return "2006-01", true
	default:
		return "", false
	}
}

// ParsePeriod parses a grouping period.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := p.layout(); !ok {
		return "", apperr.InvalidValue("unknown report period %q, want day or month", s)
	}
	return p, nil
}

// Bucket is the revenue of one period.
type Bucket struct {
	Key     string
	Orders  int
	Revenue decimal.Decimal
}

// Source provides raw order snapshots.
type Source interface {
	LoadAllRaw(ctx context.Context) ([]order.Snapshot, error)
}

// Service computes revenue reports.
type Service struct {
	orders Source
}

// NewService creates a report Service.
func NewService(orders Source) *Service {
	return &Service{orders: orders}
}

// Revenue sums order totals per period, sorted by key. Cancelled orders
// carry no revenue and are left out.
func (s *Service) Revenue(ctx context.Context, period Period) ([]Bucket, error) {
	layout, ok := period.layout()
	if !ok {
		return nil, apperr.InvalidValue("unknown report period %q, want day or month", period)
	}

	snaps, err := s.orders.LoadAllRaw(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load orders")
	}

	byKey := make(map[string]*Bucket)
	for _, snap := range snaps {
		if snap.Status == order.StatusCancelled {
			continue
		}
		key := snap.CreatedAt.UTC().Format(layout)
		b, ok := byKey[key]
		if !ok {
			b = &Bucket{Key: key, Revenue: decimal.Zero}
			byKey[key] = b
		}
		b.Orders++
		b.Revenue = b.Revenue.Add(snap.Total)
	}

	out := make([]Bucket, 0, len(byKey))
	for _, b := range byKey {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
