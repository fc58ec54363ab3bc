package order

import (
	"strings"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusCreated        Status = "CREATED"
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusPaid           Status = "PAID"
	StatusSeparation     Status = "SEPARATION"
	StatusShipped        Status = "SHIPPED"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusCreated:        {StatusPaid, StatusCancelled},
	StatusPendingPayment: {StatusPaid, StatusCancelled},
	StatusPaid:           {StatusSeparation, StatusCancelled},
	StatusSeparation:     {StatusShipped, StatusCancelled},
	StatusShipped:        {StatusDelivered},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusCreated,
		StatusPendingPayment,
		StatusPaid,
		StatusSeparation,
		StatusShipped,
		StatusDelivered,
		StatusCancelled,
	}
}

// ParseStatus parses a status name, case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := transitions[st]; !ok {
		return "", apperr.InvalidValue("unknown order status %q, want one of %s", s, joinStatuses(AllStatuses()))
	}
	return st, nil
}

// Next returns the statuses reachable from s in one step.
func (s Status) Next() []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// CanTransitionTo reports whether the table allows moving from s to to.
func (s Status) CanTransitionTo(to Status) bool {
	for _, n := range transitions[s] {
		if n == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) String() string { return string(s) }

func joinStatuses(ss []Status) string {
	if len(ss) == 0 {
		return "none"
	}
	names := make([]string, len(ss))
	for i, s := range ss {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
