package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/payment"
	"github.com/xenking/kart-backoffice/internal/domain/shipping"
)

// ErrNotFound is returned when no order matches a code or unique prefix.
var ErrNotFound = errors.Wrap(apperr.ErrNotFound, "order")

// Item is a cart line frozen at checkout.
type Item struct {
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Subtotal returns price × quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is an immutable record of a checkout. Only status and the attached
// payment change after creation.
type Order struct {
	code       string
	customer   string
	createdAt  time.Time
	items      []Item
	shipping   shipping.Quote
	couponCode string
	subtotal   decimal.Decimal
	discount   decimal.Decimal
	total      decimal.Decimal
	status     Status
	payment    *payment.Payment
}

// Total computes max(0, subtotal - discount) + shipping.
func Total(subtotal, discount, shippingCost decimal.Decimal) decimal.Decimal {
	return decimal.Max(subtotal.Sub(discount), decimal.Zero).Add(shippingCost)
}

func newOrder(code, customerDoc string, createdAt time.Time, items []Item, quote shipping.Quote, couponCode string, discount decimal.Decimal) (*Order, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperr.InvalidValue("order code is required")
	}
	if customerDoc == "" {
		return nil, apperr.InvalidValue("order %s: customer is required", code)
	}
	if len(items) == 0 {
		return nil, apperr.InvalidValue("order %s: at least one item is required", code)
	}
	if discount.IsNegative() {
		return nil, apperr.InvalidValue("order %s: discount must not be negative", code)
	}

	frozen := make([]Item, len(items))
	subtotal := decimal.Zero
	for i, it := range items {
		if it.SKU == "" || it.Quantity <= 0 || !it.Price.IsPositive() {
			return nil, apperr.InvalidValue("order %s: invalid item %q", code, it.SKU)
		}
		frozen[i] = it
		subtotal = subtotal.Add(it.Subtotal())
	}

	return &Order{
		code:       code,
		customer:   customerDoc,
		createdAt:  createdAt.UTC().Truncate(time.Microsecond),
		items:      frozen,
		shipping:   quote,
		couponCode: couponCode,
		subtotal:   subtotal,
		discount:   discount,
		total:      Total(subtotal, discount, quote.Cost),
		status:     StatusCreated,
	}, nil
}

func (o *Order) Code() string { return o.code }

// CustomerDocument returns the normalized document of the buyer.
func (o *Order) CustomerDocument() string { return o.customer }

func (o *Order) CreatedAt() time.Time { return o.createdAt }

// Items returns a copy of the frozen line items.
func (o *Order) Items() []Item {
	out := make([]Item, len(o.items))
	copy(out, o.items)
	return out
}

func (o *Order) Shipping() shipping.Quote { return o.shipping }

// CouponCode returns the applied coupon code, or "" when none was applied.
func (o *Order) CouponCode() string { return o.couponCode }

func (o *Order) Subtotal() decimal.Decimal { return o.subtotal }

func (o *Order) Discount() decimal.Decimal { return o.discount }

func (o *Order) Total() decimal.Decimal { return o.total }

func (o *Order) Status() Status { return o.status }

// Payment returns the attached payment, or nil.
func (o *Order) Payment() *payment.Payment {
	if o.payment == nil {
		return nil
	}
	p := *o.payment
	return &p
}

func (o *Order) attachPayment(p *payment.Payment) error {
	if o.payment != nil {
		return apperr.InvalidValue("order %s: payment already attached", o.code)
	}
	o.payment = p
	return nil
}

func (o *Order) transition(to Status) error {
	if !o.status.CanTransitionTo(to) {
		return apperr.InvalidValue("order %s: cannot move from %s to %s, allowed: %s",
			o.code, o.status, to, joinStatuses(o.status.Next()))
	}
	o.status = to
	return nil
}

// NewCode returns an order code of the form P-YYYYMMDDHHMMSS-XXXXXX.
func NewCode(now time.Time) string {
	id := uuid.New()
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:6])
	return "P-" + now.UTC().Format("20060102150405") + "-" + suffix
}

// Repository defines persistence operations for orders.
type Repository interface {
	// FindByCode matches code exactly, falling back to a unique prefix match.
	FindByCode(ctx context.Context, code string) (*Order, error)
	// Save upserts by code.
	Save(ctx context.Context, o *Order) error
	LoadAll(ctx context.Context) ([]*Order, error)
	// LoadAllRaw returns persisted snapshots without rebuilding orders.
	LoadAllRaw(ctx context.Context) ([]Snapshot, error)
}
