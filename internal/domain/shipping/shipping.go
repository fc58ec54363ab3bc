// Package shipping computes carrier quotes from cart weight.
package shipping

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
)

// Quote is the cost and lead time of a delivery.
type Quote struct {
	Origin      string
	Destination string
	Cost        decimal.Decimal
	LeadDays    int
}

// NewQuote validates a quote. Cost is rounded to the cent.
func NewQuote(origin, destination string, cost decimal.Decimal, leadDays int) (Quote, error) {
	if cost.IsNegative() {
		return Quote{}, apperr.InvalidValue("shipping cost must not be negative, got %s", cost)
	}
	if leadDays < 0 {
		return Quote{}, apperr.InvalidValue("shipping lead time must not be negative, got %d", leadDays)
	}
	return Quote{
		Origin:      strings.TrimSpace(origin),
		Destination: strings.TrimSpace(destination),
		Cost:        cost.Round(2),
		LeadDays:    leadDays,
	}, nil
}

// Policy turns a weight into a Quote. Cost grows monotonically with weight
// and never drops below MinimumCost; lead time grows one day per
// KilogramsPerExtraDay and never drops below MinimumDays.
type Policy struct {
	Origin               string
	BaseFee              decimal.Decimal
	PerKilogram          decimal.Decimal
	MinimumCost          decimal.Decimal
	BaseDays             int
	KilogramsPerExtraDay decimal.Decimal
	MinimumDays          int
}

// DefaultPolicy returns the stock carrier table: 5.00 + 10.00/kg with a
// 15.00 minimum, 3 days + 1 per 5 kg with a 5 day minimum.
func DefaultPolicy() Policy {
	return Policy{
		Origin:               "00000000",
		BaseFee:              decimal.NewFromInt(5),
		PerKilogram:          decimal.NewFromInt(10),
		MinimumCost:          decimal.NewFromInt(15),
		BaseDays:             3,
		KilogramsPerExtraDay: decimal.NewFromInt(5),
		MinimumDays:          5,
	}
}

// Quote prices a shipment of weightKg kilograms to destination.
func (p Policy) Quote(destination string, weightKg decimal.Decimal) (Quote, error) {
	if weightKg.IsNegative() {
		return Quote{}, apperr.InvalidValue("weight must not be negative, got %s", weightKg)
	}

	cost := p.BaseFee.Add(weightKg.Mul(p.PerKilogram))
	cost = decimal.Max(cost, p.MinimumCost).RoundCeil(2)

	days := p.BaseDays
	if p.KilogramsPerExtraDay.IsPositive() {
		days += int(weightKg.Div(p.KilogramsPerExtraDay).IntPart())
	}
	days = max(days, p.MinimumDays)

	return NewQuote(p.Origin, destination, cost, days)
}
