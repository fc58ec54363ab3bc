package postgres

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/order"
)

const (
	orderColumns = `code, created_at, customer_document, status, subtotal, discount, total,
		shipping, coupon_code, items, payment`

	getOrderByCodeSQL = `SELECT ` + orderColumns + ` FROM orders WHERE code = $1`

	// Two rows are enough to tell a unique prefix from an ambiguous one.
	getOrdersByPrefixSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE code LIKE $1 ESCAPE '\' ORDER BY code LIMIT 2`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at, code`

	upsertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (code) DO UPDATE SET
			status = EXCLUDED.status,
			payment = EXCLUDED.payment`
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Items,
// shipping and payment are stored as JSONB. Only status and payment are
// updated once an order exists.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// FindByCode returns the order whose code equals code or, failing that, the
// only order whose code starts with it.
func (r *OrderRepository) FindByCode(ctx context.Context, code string) (*order.Order, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, order.ErrNotFound
	}

	rows, err := r.pool.Query(ctx, getOrderByCodeSQL, code)
	if err != nil {
		return nil, queryFailed("get order "+code, err)
	}
	snap, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	switch {
	case err == nil:
		return restoreOrder(snap)
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, queryFailed("get order "+code, err)
	}

	rows, err = r.pool.Query(ctx, getOrdersByPrefixSQL, likeEscaper.Replace(code)+"%")
	if err != nil {
		return nil, queryFailed("find order by prefix "+code, err)
	}
	snaps, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, queryFailed("find order by prefix "+code, err)
	}
	switch len(snaps) {
	case 0:
		return nil, order.ErrNotFound
	case 1:
		return restoreOrder(snaps[0])
	default:
		return nil, errors.Wrapf(order.ErrNotFound, "prefix %q is ambiguous", code)
	}
}

// Save inserts o, or updates status and payment of an existing order.
func (r *OrderRepository) Save(ctx context.Context, o *order.Order) error {
	s := o.Snapshot()

	items, err := json.Marshal(s.Items)
	if err != nil {
		return errors.Wrap(err, "marshal items")
	}
	shipping, err := json.Marshal(s.Shipping)
	if err != nil {
		return errors.Wrap(err, "marshal shipping")
	}
	var payment []byte
	if s.Payment != nil {
		if payment, err = json.Marshal(s.Payment); err != nil {
			return errors.Wrap(err, "marshal payment")
		}
	}

	_, err = r.pool.Exec(ctx, upsertOrderSQL,
		s.Code, s.CreatedAt, s.CustomerDocument, string(s.Status), s.Subtotal, s.Discount, s.Total,
		shipping, s.CouponCode, items, payment,
	)
	if err != nil {
		return queryFailed("save order "+s.Code, err)
	}
	return nil
}

// LoadAll returns every order by creation time.
func (r *OrderRepository) LoadAll(ctx context.Context) ([]*order.Order, error) {
	snaps, err := r.LoadAllRaw(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*order.Order, 0, len(snaps))
	for _, s := range snaps {
		o, err := restoreOrder(s)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// LoadAllRaw returns the stored snapshots without rebuilding orders.
func (r *OrderRepository) LoadAllRaw(ctx context.Context) ([]order.Snapshot, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, queryFailed("list orders", err)
	}
	snaps, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, queryFailed("list orders", err)
	}
	return snaps, nil
}

func scanOrder(row pgx.CollectableRow) (order.Snapshot, error) {
	var (
		s                        order.Snapshot
		status                   string
		shipping, items, payment []byte
	)
	err := row.Scan(
		&s.Code, &s.CreatedAt, &s.CustomerDocument, &status, &s.Subtotal, &s.Discount, &s.Total,
		&shipping, &s.CouponCode, &items, &payment,
	)
	if err != nil {
		return s, err
	}
	s.Status = order.Status(status)
	s.CreatedAt = s.CreatedAt.UTC()

	if err := json.Unmarshal(shipping, &s.Shipping); err != nil {
		return s, apperr.Corrupt("decode order "+s.Code, err)
	}
	if err := json.Unmarshal(items, &s.Items); err != nil {
		return s, apperr.Corrupt("decode order "+s.Code, err)
	}
	if payment != nil {
		s.Payment = new(order.PaymentRecord)
		if err := json.Unmarshal(payment, s.Payment); err != nil {
			return s, apperr.Corrupt("decode order "+s.Code, err)
		}
	}
	return s, nil
}

func restoreOrder(s order.Snapshot) (*order.Order, error) {
	o, err := order.Restore(s)
	if err != nil {
		return nil, apperr.Corrupt("decode order "+s.Code, err)
	}
	return o, nil
}
