package product

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.Wrap(apperr.ErrNotFound, "product")

// Kind discriminates goods that occupy physical stock from digital ones.
type Kind string

const (
	// KindPhysical goods track stock and may carry a shipping weight.
	KindPhysical Kind = "physical"
	// KindDigital goods are stock-unlimited and never weigh anything.
	KindDigital Kind = "digital"
)

// ParseKind converts a stored or user supplied kind name. An empty name
// defaults to KindPhysical.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindPhysical, "":
		return KindPhysical, nil
	case KindDigital:
		return KindDigital, nil
	default:
		return "", apperr.InvalidValue("unknown product kind %q", s)
	}
}

// Params carries the attributes needed to build a Product.
type Params struct {
	SKU      string
	Name     string
	Category string
	Price    decimal.Decimal
	Stock    int
	Active   bool
	Kind     Kind
	// Weight in kilograms. Zero means "no weight"; only physical goods may
	// carry one.
	Weight decimal.Decimal
}

// Product is a catalog item. Fields are private so that price and stock are
// validated on every mutation.
type Product struct {
	sku      string
	name     string
	category string
	price    decimal.Decimal
	stock    int
	active   bool
	kind     Kind
	weight   decimal.Decimal
}

// New validates p and returns the product it describes.
func New(p Params) (*Product, error) {
	sku := strings.TrimSpace(p.SKU)
	if sku == "" {
		return nil, apperr.InvalidValue("sku is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, apperr.InvalidValue("product %s: name is required", sku)
	}
	if !p.Price.IsPositive() {
		return nil, apperr.InvalidValue("product %s: price must be greater than 0, got %s", sku, p.Price)
	}
	if p.Stock < 0 {
		return nil, apperr.InvalidValue("product %s: stock must not be negative, got %d", sku, p.Stock)
	}

	kind := p.Kind
	if kind == "" {
		kind = KindPhysical
	}
	if kind != KindPhysical && kind != KindDigital {
		return nil, apperr.InvalidValue("product %s: unknown kind %q", sku, kind)
	}
	if p.Weight.IsNegative() {
		return nil, apperr.InvalidValue("product %s: weight must be greater than 0", sku)
	}
	if kind == KindDigital && !p.Weight.IsZero() {
		return nil, apperr.InvalidValue("product %s: digital goods have no weight", sku)
	}

	return &Product{
		sku:      sku,
		name:     strings.TrimSpace(p.Name),
		category: strings.TrimSpace(p.Category),
		price:    p.Price,
		stock:    p.Stock,
		active:   p.Active,
		kind:     kind,
		weight:   p.Weight,
	}, nil
}

func (p *Product) SKU() string { return p.sku }

func (p *Product) Name() string { return p.name }

func (p *Product) Category() string { return p.category }

// Price returns the current unit price.
func (p *Product) Price() decimal.Decimal { return p.price }

func (p *Product) Stock() int { return p.stock }

func (p *Product) Active() bool { return p.active }

func (p *Product) Kind() Kind { return p.kind }

// TracksStock reports whether sales of this product consume stock. Digital
// goods are stock-unlimited.
func (p *Product) TracksStock() bool { return p.kind == KindPhysical }

// Weight returns the shipping weight in kilograms and whether the product
// has one.
func (p *Product) Weight() (decimal.Decimal, bool) {
	if p.kind != KindPhysical || !p.weight.IsPositive() {
		return decimal.Zero, false
	}
	return p.weight, true
}

// Params returns the attributes of p, suitable for New.
func (p *Product) Params() Params {
	return Params{
		SKU:      p.sku,
		Name:     p.name,
		Category: p.category,
		Price:    p.price,
		Stock:    p.stock,
		Active:   p.active,
		Kind:     p.kind,
		Weight:   p.weight,
	}
}

// Clone returns an independent copy of p.
func (p *Product) Clone() *Product {
	c := *p
	return &c
}

// AdjustStock adds delta to the stock. Positive deltas receive goods,
// negative ones take them out. Stock never goes negative.
func (p *Product) AdjustStock(delta int) error {
	next := p.stock + delta
	if next < 0 {
		return apperr.InvalidValue("product %s: stock %d cannot be reduced by %d", p.sku, p.stock, -delta)
	}
	p.stock = next
	return nil
}

// SetPrice replaces the unit price.
func (p *Product) SetPrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return apperr.InvalidValue("product %s: price must be greater than 0, got %s", p.sku, price)
	}
	p.price = price
	return nil
}

// Deactivate hides the product from new carts. Products are never deleted.
func (p *Product) Deactivate() { p.active = false }

// Activate makes the product available again.
func (p *Product) Activate() { p.active = true }

// Repository defines persistence operations for the product catalog.
type Repository interface {
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	Save(ctx context.Context, p *Product) error
	LoadAll(ctx context.Context) ([]*Product, error)
}
