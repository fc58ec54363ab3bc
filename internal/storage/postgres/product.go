package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/product"
)

const (
	productColumns = `sku, name, category, price, stock, active, kind, weight`

	getProductBySKUSQL = `SELECT ` + productColumns + ` FROM products WHERE sku = $1`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY sku`

	upsertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (sku) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			stock = EXCLUDED.stock,
			active = EXCLUDED.active,
			kind = EXCLUDED.kind,
			weight = EXCLUDED.weight`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// FindBySKU returns the product with the given SKU.
func (r *ProductRepository) FindBySKU(ctx context.Context, sku string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductBySKUSQL, sku)
	if err != nil {
		return nil, queryFailed("get product "+sku, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, queryFailed("get product "+sku, err)
	}
	return p, nil
}

// Save upserts p by SKU.
func (r *ProductRepository) Save(ctx context.Context, p *product.Product) error {
	var weight *decimal.Decimal
	if w, ok := p.Weight(); ok {
		weight = &w
	}
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.SKU(), p.Name(), p.Category(), p.Price(), p.Stock(), p.Active(), string(p.Kind()), weight,
	)
	if err != nil {
		return queryFailed("save product "+p.SKU(), err)
	}
	return nil
}

// LoadAll returns every product ordered by SKU.
func (r *ProductRepository) LoadAll(ctx context.Context) ([]*product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, queryFailed("list products", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, queryFailed("list products", err)
	}
	return products, nil
}

func scanProduct(row pgx.CollectableRow) (*product.Product, error) {
	var (
		p      product.Params
		kind   string
		weight *decimal.Decimal
	)
	if err := row.Scan(&p.SKU, &p.Name, &p.Category, &p.Price, &p.Stock, &p.Active, &kind, &weight); err != nil {
		return nil, err
	}
	p.Kind = product.Kind(kind)
	if weight != nil {
		p.Weight = *weight
	}
	out, err := product.New(p)
	if err != nil {
		return nil, apperr.Corrupt("decode product "+p.SKU, err)
	}
	return out, nil
}
