package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
)

// Kind enumerates the supported coupon discount strategies.
type Kind string

const (
	// KindPercentage applies a percentage of the subtotal. Value is in
	// percent points.
	KindPercentage Kind = "percentage"
	// KindFixed applies a fixed monetary discount.
	KindFixed Kind = "fixed"
)

// ParseKind parses a discount kind, accepting the short aliases used by the
// ingest files.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "percentage", "percent", "%":
		return KindPercentage, nil
	case "fixed", "amount":
		return KindFixed, nil
	default:
		return "", apperr.InvalidValue("unknown coupon kind %q", s)
	}
}

var (
	// ErrNotFound is returned when no coupon matches a code.
	ErrNotFound = errors.Wrap(apperr.ErrNotFound, "coupon")
	// ErrExpired is returned by the Resolver for coupons past their expiry.
	ErrExpired = errors.Wrap(apperr.ErrNotFound, "coupon expired")
)

var maxShare = decimal.RequireFromString("0.5")

// Coupon is a discount rule identified by an upper-cased code.
type Coupon struct {
	code      string
	kind      Kind
	value     decimal.Decimal
	expiresAt *time.Time
}

// NormalizeCode trims and upper-cases a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// New validates a coupon. A nil expiresAt means the coupon never expires.
func New(code string, value decimal.Decimal, kind Kind, expiresAt *time.Time) (*Coupon, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, apperr.InvalidValue("coupon code is required")
	}
	if !value.IsPositive() {
		return nil, apperr.InvalidValue("coupon %s: value must be positive, got %s", code, value)
	}
	switch kind {
	case KindPercentage:
		if value.GreaterThan(decimal.NewFromInt(100)) {
			return nil, apperr.InvalidValue("coupon %s: percentage must not exceed 100, got %s", code, value)
		}
	case KindFixed:
	default:
		return nil, apperr.InvalidValue("coupon %s: unknown kind %q", code, kind)
	}

	c := &Coupon{code: code, kind: kind, value: value}
	if expiresAt != nil {
		t := expiresAt.UTC()
		c.expiresAt = &t
	}
	return c, nil
}

func (c *Coupon) Code() string { return c.code }

func (c *Coupon) Kind() Kind { return c.kind }

func (c *Coupon) Value() decimal.Decimal { return c.value }

// ExpiresAt returns the expiry instant, or nil for coupons without one.
func (c *Coupon) ExpiresAt() *time.Time {
	if c.expiresAt == nil {
		return nil
	}
	t := *c.expiresAt
	return &t
}

// Expired reports whether the coupon is past its expiry at now.
func (c *Coupon) Expired(now time.Time) bool {
	return c.expiresAt != nil && now.After(*c.expiresAt)
}

// DiscountAt computes the discount for subtotal at instant now. It is zero
// for expired coupons and never exceeds half the subtotal nor the subtotal
// itself.
func (c *Coupon) DiscountAt(subtotal decimal.Decimal, now time.Time) decimal.Decimal {
	if c.Expired(now) || !subtotal.IsPositive() {
		return decimal.Zero
	}

	var raw decimal.Decimal
	switch c.kind {
	case KindPercentage:
		raw = subtotal.Mul(c.value).Div(decimal.NewFromInt(100))
	case KindFixed:
		raw = c.value
	}
	raw = raw.Round(2)

	limit := decimal.Min(subtotal.Mul(maxShare).RoundFloor(2), subtotal)
	return decimal.Max(decimal.Min(raw, limit), decimal.Zero)
}

// Repository provides lookup and persistence of coupons.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	Save(ctx context.Context, c *Coupon) error
	LoadAll(ctx context.Context) ([]*Coupon, error)
}
