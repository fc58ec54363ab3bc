// Package payment models payment records and the gateway simulator used at
// checkout.
package payment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
)

// Status is the settlement state of a payment.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus parses a payment status, case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusApproved, StatusFailed, StatusCancelled:
		return st, nil
	default:
		return "", apperr.InvalidValue("unknown payment status %q", s)
	}
}

// Method discriminates the payment payload.
type Method string

const (
	MethodCard   Method = "card"
	MethodBoleto Method = "boleto"
)

// ParseMethod parses a payment method name.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "card", "cartao", "credit_card":
		return MethodCard, nil
	case "boleto", "bank_slip":
		return MethodBoleto, nil
	default:
		return "", apperr.InvalidValue("unknown payment method %q", s)
	}
}

// Details is the method-specific part of a Payment. It is implemented only
// by Card and Boleto.
type Details interface {
	Method() Method
	details()
}

// Card carries card payment data.
type Card struct {
	Brand        string
	Installments int
}

func (Card) Method() Method { return MethodCard }
func (Card) details()       {}

// Boleto carries bank slip data.
type Boleto struct {
	Barcode string
	DueDate time.Time
}

func (Boleto) Method() Method { return MethodBoleto }
func (Boleto) details()       {}

// Payment is the outcome of a payment attempt attached to an order.
type Payment struct {
	Amount    decimal.Decimal
	Status    Status
	SettledAt *time.Time
	Reference string
	Details   Details
}

// New validates a payment envelope. Used when restoring persisted orders.
func New(amount decimal.Decimal, status Status, settledAt *time.Time, reference string, details Details) (*Payment, error) {
	if !amount.IsPositive() {
		return nil, apperr.InvalidValue("payment amount must be positive, got %s", amount)
	}
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}
	if details == nil {
		return nil, apperr.InvalidValue("payment details are required")
	}
	return &Payment{
		Amount:    amount,
		Status:    status,
		SettledAt: settledAt,
		Reference: reference,
		Details:   details,
	}, nil
}

// Method returns the payment method of p.
func (p *Payment) Method() Method {
	return p.Details.Method()
}

// Request is what the buyer chose at checkout.
type Request struct {
	Method       Method
	Brand        string
	Installments int
	// DueDate overrides the default boleto due date.
	DueDate *time.Time
}

// Validate checks the request is complete for its method.
func (r Request) Validate() error {
	switch r.Method {
	case MethodCard:
		if strings.TrimSpace(r.Brand) == "" {
			return apperr.InvalidValue("card brand is required")
		}
		if r.Installments < 0 {
			return apperr.InvalidValue("installments must not be negative, got %d", r.Installments)
		}
	case MethodBoleto:
	default:
		return apperr.InvalidValue("unknown payment method %q", r.Method)
	}
	return nil
}

// Processor settles a payment for an amount.
type Processor interface {
	Process(amount decimal.Decimal, req Request) (*Payment, error)
}

// SimulatorConfig tunes the gateway simulator.
type SimulatorConfig struct {
	MinimumAmount  decimal.Decimal
	DeclinedBrands []string
	BoletoDueDays  int
}

// DefaultSimulatorConfig returns the stock simulator rules.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		MinimumAmount:  decimal.NewFromInt(5),
		DeclinedBrands: []string{"RECUSADO"},
		BoletoDueDays:  3,
	}
}

// Simulator stands in for a payment gateway. Amounts below the minimum and
// cards of a declined brand fail, boletos stay pending, every other card is
// approved immediately.
type Simulator struct {
	cfg      SimulatorConfig
	declined map[string]struct{}
	now      func() time.Time
}

var _ Processor = (*Simulator)(nil)

// NewSimulator creates a Simulator.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	declined := make(map[string]struct{}, len(cfg.DeclinedBrands))
	for _, b := range cfg.DeclinedBrands {
		declined[strings.ToUpper(strings.TrimSpace(b))] = struct{}{}
	}
	return &Simulator{cfg: cfg, declined: declined, now: time.Now}
}

// Process simulates settling amount. Business declines are reported through
// the returned payment's status; the error is reserved for invalid requests.
func (s *Simulator) Process(amount decimal.Decimal, req Request) (*Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, apperr.InvalidValue("payment amount must be positive, got %s", amount)
	}

	now := s.now().UTC()
	p := &Payment{
		Amount:    amount,
		Reference: uuid.NewString(),
	}

	switch req.Method {
	case MethodBoleto:
		due := now.AddDate(0, 0, s.cfg.BoletoDueDays)
		if req.DueDate != nil {
			due = req.DueDate.UTC()
		}
		p.Details = Boleto{Barcode: barcode(amount, due), DueDate: due}
	default:
		p.Details = Card{Brand: strings.ToUpper(strings.TrimSpace(req.Brand)), Installments: max(req.Installments, 1)}
	}

	switch {
	case amount.LessThan(s.cfg.MinimumAmount):
		p.Status = StatusFailed
	case req.Method == MethodBoleto:
		p.Status = StatusPending
	case s.isDeclined(req.Brand):
		p.Status = StatusFailed
	default:
		p.Status = StatusApproved
		p.SettledAt = &now
	}
	return p, nil
}

func (s *Simulator) isDeclined(brand string) bool {
	_, ok := s.declined[strings.ToUpper(strings.TrimSpace(brand))]
	return ok
}

// barcode builds a 44 digit pseudo-barcode encoding due date and amount.
func barcode(amount decimal.Decimal, due time.Time) string {
	id := uuid.New()
	var suffix uint64
	for _, b := range id[:8] {
		suffix = suffix<<8 | uint64(b)
	}
	cents := amount.Shift(2).IntPart()
	return fmt.Sprintf("00190%s%013d%018d", due.Format("20060102"), cents, suffix%1e18)
}
