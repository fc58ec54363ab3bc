package order

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/payment"
)

func TestTotal(t *testing.T) {
	tests := []struct {
		subtotal, discount, shipping, want string
	}{
		{"100", "10", "15", "105"},
		{"100", "50", "15", "65"},
		{"10", "20", "15", "15"},
		{"33.33", "3.33", "28.34", "58.34"},
	}
	for _, tt := range tests {
		got := Total(d(tt.subtotal), d(tt.discount), d(tt.shipping))
		assert.True(t, d(tt.want).Equal(got), "%s - %s + %s = %s", tt.subtotal, tt.discount, tt.shipping, got)
	}
}

func TestNewCode(t *testing.T) {
	now := time.Date(2024, 12, 31, 23, 59, 58, 0, time.UTC)
	a := NewCode(now)
	b := NewCode(now)
	assert.Regexp(t, `^P-20241231235958-[0-9A-F]{6}$`, a)
	assert.NotEqual(t, a, b)
}

func testOrder(t *testing.T) *Order {
	t.Helper()
	o, err := newOrder("P-20250615123045-ABC123", "12345678901", fixedNow, []Item{
		{SKU: "LIV-001", Name: "Livro", Price: d("50"), Quantity: 2},
		{SKU: "CAN-002", Name: "Caneta", Price: d("2.50"), Quantity: 4},
	}, quote(t, "15"), "PRIMEIRA10", d("11"))
	require.NoError(t, err)
	return o
}

func TestRestore_RoundTrip(t *testing.T) {
	o := testOrder(t)
	settled := fixedNow
	require.NoError(t, o.attachPayment(&payment.Payment{
		Amount:    o.Total(),
		Status:    payment.StatusApproved,
		SettledAt: &settled,
		Reference: "ref-1",
		Details:   payment.Card{Brand: "VISA", Installments: 3},
	}))
	require.NoError(t, o.transition(StatusPaid))

	raw, err := json.Marshal(o.Snapshot())
	require.NoError(t, err)
	var s Snapshot
	require.NoError(t, json.Unmarshal(raw, &s))

	got, err := Restore(s)
	require.NoError(t, err)
	assert.Equal(t, o.Code(), got.Code())
	assert.Equal(t, StatusPaid, got.Status())
	assert.Equal(t, "PRIMEIRA10", got.CouponCode())
	assert.True(t, d("110").Equal(got.Subtotal()))
	assert.True(t, d("114").Equal(got.Total()))
	assert.True(t, fixedNow.Equal(got.CreatedAt()))
	require.NotNil(t, got.Payment())
	assert.Equal(t, payment.Card{Brand: "VISA", Installments: 3}, got.Payment().Details)
}

func TestNewOrder_CreatedAtMicrosecondPrecision(t *testing.T) {
	at := time.Date(2025, 6, 15, 9, 30, 45, 123456789, time.FixedZone("BRT", -3*60*60))
	o, err := newOrder("P-20250615123045-ABCDEF", "12345678901", at,
		[]Item{{SKU: "LIV-001", Name: "Livro", Price: d("10"), Quantity: 1}}, quote(t, "15"), "", decimal.Zero)
	require.NoError(t, err)

	assert.Equal(t, time.UTC, o.CreatedAt().Location())
	assert.Equal(t, 123456000, o.CreatedAt().Nanosecond())
	assert.True(t, at.Truncate(time.Microsecond).Equal(o.CreatedAt()))

	restored, err := Restore(o.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, o.CreatedAt(), restored.CreatedAt())
}

func TestRestore_Boleto(t *testing.T) {
	o := testOrder(t)
	due := fixedNow.AddDate(0, 0, 3)
	require.NoError(t, o.attachPayment(&payment.Payment{
		Amount:  o.Total(),
		Status:  payment.StatusPending,
		Details: payment.Boleto{Barcode: "0019", DueDate: due},
	}))
	o.status = StatusPendingPayment

	got, err := Restore(o.Snapshot())
	require.NoError(t, err)
	b, ok := got.Payment().Details.(payment.Boleto)
	require.True(t, ok)
	assert.Equal(t, "0019", b.Barcode)
	assert.True(t, due.Equal(b.DueDate))
}

func TestRestore_RejectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Snapshot)
	}{
		{name: "total", mutate: func(s *Snapshot) { s.Total = s.Total.Add(decimal.NewFromInt(1)) }},
		{name: "subtotal", mutate: func(s *Snapshot) { s.Subtotal = decimal.NewFromInt(1) }},
		{name: "status", mutate: func(s *Snapshot) { s.Status = "LOST" }},
		{name: "no items", mutate: func(s *Snapshot) { s.Items = nil }},
		{name: "zero quantity", mutate: func(s *Snapshot) { s.Items[0].Quantity = 0 }},
		{name: "negative shipping", mutate: func(s *Snapshot) { s.Shipping.Cost = decimal.NewFromInt(-1) }},
		{name: "no customer", mutate: func(s *Snapshot) { s.CustomerDocument = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testOrder(t).Snapshot()
			tt.mutate(&s)
			_, err := Restore(s)
			require.ErrorIs(t, err, apperr.ErrInvalidValue)
		})
	}
}

func TestOrder_PaymentAttachedOnce(t *testing.T) {
	o := testOrder(t)
	p := &payment.Payment{Amount: o.Total(), Status: payment.StatusFailed, Details: payment.Card{Brand: "X"}}
	require.NoError(t, o.attachPayment(p))
	require.ErrorIs(t, o.attachPayment(p), apperr.ErrInvalidValue)
}

func TestOrder_ItemsAreFrozenCopies(t *testing.T) {
	o := testOrder(t)
	items := o.Items()
	items[0].Price = d("1")
	assert.True(t, d("50").Equal(o.Items()[0].Price))
}
