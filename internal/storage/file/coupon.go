package file

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/coupon"
)

var _ coupon.Repository = (*CouponRepository)(nil)

type couponRecord struct {
	Code      string          `json:"code"`
	Kind      coupon.Kind     `json:"kind"`
	Value     decimal.Decimal `json:"value"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
}

// CouponRepository implements coupon.Repository over coupons.json.
type CouponRepository struct {
	s *Store
}

// NewCouponRepository creates a CouponRepository.
func NewCouponRepository(s *Store) *CouponRepository {
	return &CouponRepository{s: s}
}

func (r couponRecord) toDomain() (*coupon.Coupon, error) {
	c, err := coupon.New(r.Code, r.Value, r.Kind, r.ExpiresAt)
	if err != nil {
		return nil, apperr.Corrupt("decode coupon "+r.Code, err)
	}
	return c, nil
}

// FindByCode returns the coupon for the case-normalized code.
func (r *CouponRepository) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	code = coupon.NormalizeCode(code)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows, err := readTable[couponRecord](r.s, tableCoupons)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.Code == code {
			return row.toDomain()
		}
	}
	return nil, coupon.ErrNotFound
}

// Save upserts c by code.
func (r *CouponRepository) Save(_ context.Context, c *coupon.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec := couponRecord{Code: c.Code(), Kind: c.Kind(), Value: c.Value(), ExpiresAt: c.ExpiresAt()}
	return upsert(r.s, tableCoupons, rec, func(rec couponRecord) string { return rec.Code })
}

// SaveMany upserts coupons in a single table rewrite.
func (r *CouponRepository) SaveMany(_ context.Context, coupons []*coupon.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows, err := readTable[couponRecord](r.s, tableCoupons)
	if err != nil {
		return err
	}
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		index[row.Code] = i
	}
	for _, c := range coupons {
		rec := couponRecord{Code: c.Code(), Kind: c.Kind(), Value: c.Value(), ExpiresAt: c.ExpiresAt()}
		if i, ok := index[rec.Code]; ok {
			rows[i] = rec
			continue
		}
		index[rec.Code] = len(rows)
		rows = append(rows, rec)
	}
	return writeTable(r.s, tableCoupons, rows)
}

// LoadAll returns every coupon in file order.
func (r *CouponRepository) LoadAll(_ context.Context) ([]*coupon.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows, err := readTable[couponRecord](r.s, tableCoupons)
	if err != nil {
		return nil, err
	}
	out := make([]*coupon.Coupon, 0, len(rows))
	for _, row := range rows {
		c, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
