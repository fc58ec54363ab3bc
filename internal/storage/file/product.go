package file

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

type productRecord struct {
	SKU      string           `json:"sku"`
	Name     string           `json:"name"`
	Category string           `json:"category"`
	Price    decimal.Decimal  `json:"price"`
	Stock    int              `json:"stock"`
	Active   bool             `json:"active"`
	Kind     product.Kind     `json:"kind"`
	Weight   *decimal.Decimal `json:"weight,omitempty"`
}

func toProductRecord(p *product.Product) productRecord {
	r := productRecord{
		SKU:      p.SKU(),
		Name:     p.Name(),
		Category: p.Category(),
		Price:    p.Price(),
		Stock:    p.Stock(),
		Active:   p.Active(),
		Kind:     p.Kind(),
	}
	if w, ok := p.Weight(); ok {
		r.Weight = &w
	}
	return r
}

func (r productRecord) toDomain() (*product.Product, error) {
	params := product.Params{
		SKU:      r.SKU,
		Name:     r.Name,
		Category: r.Category,
		Price:    r.Price,
		Stock:    r.Stock,
		Active:   r.Active,
		Kind:     r.Kind,
	}
	if r.Weight != nil {
		params.Weight = *r.Weight
	}
	p, err := product.New(params)
	if err != nil {
		return nil, apperr.Corrupt("decode product "+r.SKU, err)
	}
	return p, nil
}

// ProductRepository implements product.Repository over products.json.
type ProductRepository struct {
	s *Store
}

// NewProductRepository creates a ProductRepository.
func NewProductRepository(s *Store) *ProductRepository {
	return &ProductRepository{s: s}
}

// FindBySKU returns the product with the given SKU.
func (r *ProductRepository) FindBySKU(_ context.Context, sku string) (*product.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows, err := readTable[productRecord](r.s, tableProducts)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.SKU == sku {
			return row.toDomain()
		}
	}
	return nil, product.ErrNotFound
}

// Save upserts p by SKU.
func (r *ProductRepository) Save(_ context.Context, p *product.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return upsert(r.s, tableProducts, toProductRecord(p), func(rec productRecord) string { return rec.SKU })
}

// LoadAll returns every product in file order.
func (r *ProductRepository) LoadAll(_ context.Context) ([]*product.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows, err := readTable[productRecord](r.s, tableProducts)
	if err != nil {
		return nil, err
	}
	out := make([]*product.Product, 0, len(rows))
	for _, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
