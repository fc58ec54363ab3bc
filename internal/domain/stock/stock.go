// Package stock enforces the inventory safety floor at checkout.
package stock

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/cart"
	"github.com/xenking/kart-backoffice/internal/domain/product"
)

// DefaultSafetyFloor is the residual stock a sale must leave behind.
const DefaultSafetyFloor = 5

// ShortageError reports a line asking for more units than are in stock.
type ShortageError struct {
	SKU       string
	Available int
	Requested int
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.SKU, e.Available, e.Requested)
}

func (e *ShortageError) Is(target error) bool {
	return target == apperr.ErrInsufficientStock
}

// SafetyFloorError reports a sale that would leave stock below the floor.
type SafetyFloorError struct {
	SKU       string
	Available int
	Requested int
	Floor     int
}

func (e *SafetyFloorError) Error() string {
	return fmt.Sprintf("stock safety floor for %s: %d - %d would drop below %d",
		e.SKU, e.Available, e.Requested, e.Floor)
}

func (e *SafetyFloorError) Is(target error) bool {
	return target == apperr.ErrStockSafety
}

// Guard validates and applies stock decrements for cart lines.
type Guard struct {
	products product.Repository
	floor    int
}

// NewGuard creates a Guard. A negative floor is treated as zero.
func NewGuard(products product.Repository, floor int) *Guard {
	return &Guard{products: products, floor: max(floor, 0)}
}

// Validate checks every line against live stock without mutating anything.
// Products that do not track stock are skipped.
func (g *Guard) Validate(ctx context.Context, lines []cart.Line) error {
	for _, l := range lines {
		p, err := g.products.FindBySKU(ctx, l.SKU())
		if err != nil {
			return errors.Wrapf(err, "find product %s", l.SKU())
		}
		if !p.TracksStock() {
			continue
		}

		qty := l.Quantity()
		if p.Stock() < qty {
			return &ShortageError{SKU: p.SKU(), Available: p.Stock(), Requested: qty}
		}
		if p.Stock()-qty < g.floor {
			return &SafetyFloorError{SKU: p.SKU(), Available: p.Stock(), Requested: qty, Floor: g.floor}
		}
	}
	return nil
}

// Commit decrements stock for every stock-tracked line and saves each
// product. Callers must have run Validate on the same lines first. On error
// the products already saved are restored, so stock is either fully
// committed or left as it was.
func (g *Guard) Commit(ctx context.Context, lines []cart.Line) error {
	return g.apply(ctx, lines, -1)
}

// Release returns the units taken by a successful Commit of lines.
func (g *Guard) Release(ctx context.Context, lines []cart.Line) error {
	return g.apply(ctx, lines, 1)
}

func (g *Guard) apply(ctx context.Context, lines []cart.Line, sign int) error {
	var saved []*product.Product
	for _, l := range lines {
		p, err := g.products.FindBySKU(ctx, l.SKU())
		if err != nil {
			return g.restore(ctx, saved, errors.Wrapf(err, "find product %s", l.SKU()))
		}
		if !p.TracksStock() {
			continue
		}
		orig := p.Clone()
		if err := p.AdjustStock(sign * l.Quantity()); err != nil {
			return g.restore(ctx, saved, errors.Wrapf(err, "adjust stock %s", p.SKU()))
		}
		if err := g.products.Save(ctx, p); err != nil {
			return g.restore(ctx, saved, errors.Wrapf(err, "save product %s", p.SKU()))
		}
		saved = append(saved, orig)
	}
	return nil
}

// restore saves the given pre-change products back, newest first, and
// returns cause joined with any restore failure.
func (g *Guard) restore(ctx context.Context, originals []*product.Product, cause error) error {
	errs := []error{cause}
	for i := len(originals) - 1; i >= 0; i-- {
		p := originals[i]
		if err := g.products.Save(ctx, p); err != nil {
			errs = append(errs, errors.Wrapf(err, "restore product %s", p.SKU()))
		}
	}
	return errors.Join(errs...)
}
