package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/payment"
	"github.com/xenking/kart-backoffice/internal/domain/shipping"
)

// Snapshot is the persisted form of an Order.
type Snapshot struct {
	Code             string          `json:"code"`
	CreatedAt        time.Time       `json:"created_at"`
	CustomerDocument string          `json:"customer_document"`
	Status           Status          `json:"status"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Discount         decimal.Decimal `json:"discount"`
	Total            decimal.Decimal `json:"total"`
	Shipping         ShippingRecord  `json:"shipping"`
	CouponCode       *string         `json:"coupon_code"`
	Items            []Item          `json:"items"`
	Payment          *PaymentRecord  `json:"payment"`
}

// ShippingRecord is the persisted shipping quote.
type ShippingRecord struct {
	Origin      string          `json:"origin"`
	Destination string          `json:"destination"`
	Cost        decimal.Decimal `json:"cost"`
	LeadDays    int             `json:"lead_days"`
}

// PaymentRecord is the persisted payment with method-specific fields
// flattened.
type PaymentRecord struct {
	Amount       decimal.Decimal `json:"amount"`
	Status       payment.Status  `json:"status"`
	Method       payment.Method  `json:"method"`
	SettledAt    *time.Time      `json:"settled_at,omitempty"`
	Reference    string          `json:"reference,omitempty"`
	Brand        string          `json:"brand,omitempty"`
	Installments int             `json:"installments,omitempty"`
	Barcode      string          `json:"barcode,omitempty"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
}

// Snapshot returns the persisted form of o.
func (o *Order) Snapshot() Snapshot {
	s := Snapshot{
		Code:             o.code,
		CreatedAt:        o.createdAt,
		CustomerDocument: o.customer,
		Status:           o.status,
		Subtotal:         o.subtotal,
		Discount:         o.discount,
		Total:            o.total,
		Shipping: ShippingRecord{
			Origin:      o.shipping.Origin,
			Destination: o.shipping.Destination,
			Cost:        o.shipping.Cost,
			LeadDays:    o.shipping.LeadDays,
		},
		Items: o.Items(),
	}
	if o.couponCode != "" {
		code := o.couponCode
		s.CouponCode = &code
	}
	if o.payment != nil {
		s.Payment = paymentRecord(o.payment)
	}
	return s
}

func paymentRecord(p *payment.Payment) *PaymentRecord {
	r := &PaymentRecord{
		Amount:    p.Amount,
		Status:    p.Status,
		Method:    p.Method(),
		SettledAt: p.SettledAt,
		Reference: p.Reference,
	}
	switch d := p.Details.(type) {
	case payment.Card:
		r.Brand = d.Brand
		r.Installments = d.Installments
	case payment.Boleto:
		r.Barcode = d.Barcode
		due := d.DueDate
		r.DueDate = &due
	}
	return r
}

func (r *PaymentRecord) restore() (*payment.Payment, error) {
	var details payment.Details
	switch r.Method {
	case payment.MethodCard:
		details = payment.Card{Brand: r.Brand, Installments: r.Installments}
	case payment.MethodBoleto:
		b := payment.Boleto{Barcode: r.Barcode}
		if r.DueDate != nil {
			b.DueDate = *r.DueDate
		}
		details = b
	default:
		return nil, apperr.InvalidValue("unknown payment method %q", r.Method)
	}
	return payment.New(r.Amount, r.Status, r.SettledAt, r.Reference, details)
}

// Restore rebuilds an Order from its snapshot, re-running validation and
// checking the stored amounts against the total formula.
func Restore(s Snapshot) (*Order, error) {
	status, err := ParseStatus(string(s.Status))
	if err != nil {
		return nil, err
	}
	quote, err := shipping.NewQuote(s.Shipping.Origin, s.Shipping.Destination, s.Shipping.Cost, s.Shipping.LeadDays)
	if err != nil {
		return nil, err
	}
	var coupon string
	if s.CouponCode != nil {
		coupon = *s.CouponCode
	}

	o, err := newOrder(s.Code, s.CustomerDocument, s.CreatedAt, s.Items, quote, coupon, s.Discount)
	if err != nil {
		return nil, err
	}
	if !o.subtotal.Equal(s.Subtotal) {
		return nil, apperr.InvalidValue("order %s: stored subtotal %s does not match items %s", s.Code, s.Subtotal, o.subtotal)
	}
	if !o.total.Equal(s.Total) {
		return nil, apperr.InvalidValue("order %s: stored total %s does not match %s", s.Code, s.Total, o.total)
	}
	o.status = status

	if s.Payment != nil {
		p, err := s.Payment.restore()
		if err != nil {
			return nil, err
		}
		o.payment = p
	}
	return o, nil
}
