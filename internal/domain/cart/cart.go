// Package cart holds the mutable, session-scoped shopping cart.
package cart

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/customer"
	"github.com/xenking/kart-backoffice/internal/domain/product"
)

// Line is a product reference with a quantity and the unit price captured
// when the product was first added.
type Line struct {
	product  *product.Product
	quantity int
	price    decimal.Decimal
}

func (l Line) Product() *product.Product { return l.product }

func (l Line) SKU() string { return l.product.SKU() }

func (l Line) Quantity() int { return l.quantity }

// Price is the unit price frozen at add time, decoupled from the catalog.
func (l Line) Price() decimal.Decimal { return l.price }

// Subtotal returns price × quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.price.Mul(decimal.NewFromInt(int64(l.quantity)))
}

// Weight returns the line weight in kilograms; zero for goods without one.
func (l Line) Weight() decimal.Decimal {
	w, ok := l.product.Weight()
	if !ok {
		return decimal.Zero
	}
	return w.Mul(decimal.NewFromInt(int64(l.quantity)))
}

// Cart is not safe for concurrent use; it belongs to a single session.
type Cart struct {
	customer *customer.Customer
	lines    []Line
}

// New returns an empty cart, optionally bound to a customer.
func New(c *customer.Customer) *Cart {
	return &Cart{customer: c}
}

// Customer returns the customer the cart belongs to, or nil.
func (c *Cart) Customer() *customer.Customer { return c.customer }

// SetCustomer binds the cart to cu.
func (c *Cart) SetCustomer(cu *customer.Customer) { c.customer = cu }

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// AddItem adds quantity units of p. A product already in the cart has its
// line quantity increased; the price captured on the first add is kept.
// Stock is not checked here.
func (c *Cart) AddItem(p *product.Product, quantity int) error {
	if p == nil {
		return apperr.InvalidValue("product is required")
	}
	if quantity <= 0 {
		return apperr.InvalidValue("quantity must be greater than 0 for product %s", p.SKU())
	}
	if !p.Active() {
		return apperr.InvalidValue("product %s is inactive", p.SKU())
	}

	for i := range c.lines {
		if c.lines[i].SKU() == p.SKU() {
			if quantity > math.MaxInt-c.lines[i].quantity {
				return apperr.InvalidValue("quantity for product %s is too large", p.SKU())
			}
			c.lines[i].quantity += quantity
			return nil
		}
	}

	c.lines = append(c.lines, Line{
		product:  p,
		quantity: quantity,
		price:    p.Price(),
	})
	return nil
}

// RemoveItem drops the line for sku, if any.
func (c *Cart) RemoveItem(sku string) {
	for i := range c.lines {
		if c.lines[i].SKU() == sku {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Clear drops every line and keeps the customer.
func (c *Cart) Clear() { c.lines = nil }

// Subtotal returns the sum of all line subtotals.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

// TotalWeight returns the combined weight in kilograms of the physical goods
// in the cart.
func (c *Cart) TotalWeight() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Weight())
	}
	return sum
}
