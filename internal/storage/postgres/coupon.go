package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT code, kind, value, expires_at FROM coupons WHERE code = $1`

	listCouponsSQL = `SELECT code, kind, value, expires_at FROM coupons ORDER BY code`

	upsertCouponSQL = `INSERT INTO coupons (code, kind, value, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO UPDATE SET
			kind = EXCLUDED.kind,
			value = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its case-normalized code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	code = coupon.NormalizeCode(code)
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, queryFailed("get coupon "+code, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, queryFailed("get coupon "+code, err)
	}
	return c, nil
}

// Save upserts c by code.
func (r *CouponRepository) Save(ctx context.Context, c *coupon.Coupon) error {
	if _, err := r.pool.Exec(ctx, upsertCouponSQL, c.Code(), string(c.Kind()), c.Value(), c.ExpiresAt()); err != nil {
		return queryFailed("save coupon "+c.Code(), err)
	}
	return nil
}

// SaveMany upserts coupons in one batch inside a transaction.
func (r *CouponRepository) SaveMany(ctx context.Context, coupons []*coupon.Coupon) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, c := range coupons {
			batch.Queue(upsertCouponSQL, c.Code(), string(c.Kind()), c.Value(), c.ExpiresAt())
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return queryFailed("save coupons", err)
	}
	return nil
}

// LoadAll returns every coupon ordered by code.
func (r *CouponRepository) LoadAll(ctx context.Context) ([]*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, queryFailed("list coupons", err)
	}
	out, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, queryFailed("list coupons", err)
	}
	return out, nil
}

func scanCoupon(row pgx.CollectableRow) (*coupon.Coupon, error) {
	var (
		code, kind string
		value      decimal.Decimal
		expiresAt  *time.Time
	)
	if err := row.Scan(&code, &kind, &value, &expiresAt); err != nil {
		return nil, err
	}
	c, err := coupon.New(code, value, coupon.Kind(kind), expiresAt)
	if err != nil {
		return nil, apperr.Corrupt("decode coupon "+code, err)
	}
	return c, nil
}
