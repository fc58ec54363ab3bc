package shipping

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestPolicy_Quote(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		weight   string
		wantCost string
		wantDays int
	}{
		{weight: "0", wantCost: "15", wantDays: 5},
		{weight: "0.5", wantCost: "15", wantDays: 5},
		{weight: "1", wantCost: "15", wantDays: 5},
		{weight: "1.5", wantCost: "20", wantDays: 5},
		{weight: "2.3333", wantCost: "28.34", wantDays: 5},
		{weight: "10", wantCost: "105", wantDays: 5},
		{weight: "14.9", wantCost: "154", wantDays: 5},
		{weight: "15", wantCost: "155", wantDays: 6},
		{weight: "27", wantCost: "275", wantDays: 8},
	}

	for _, tt := range tests {
		t.Run(tt.weight, func(t *testing.T) {
			q, err := p.Quote("63040440", d(tt.weight))
			require.NoError(t, err)
			assert.True(t, d(tt.wantCost).Equal(q.Cost), "expected %s, got %s", tt.wantCost, q.Cost)
			assert.Equal(t, tt.wantDays, q.LeadDays)
			assert.Equal(t, "00000000", q.Origin)
			assert.Equal(t, "63040440", q.Destination)
		})
	}
}

func TestPolicy_QuoteMonotonic(t *testing.T) {
	p := DefaultPolicy()
	prev, err := p.Quote("x", decimal.Zero)
	require.NoError(t, err)
	for w := 1; w <= 60; w++ {
		q, err := p.Quote("x", decimal.NewFromInt(int64(w)).Div(decimal.NewFromInt(2)))
		require.NoError(t, err)
		assert.True(t, q.Cost.GreaterThanOrEqual(prev.Cost))
		assert.GreaterOrEqual(t, q.LeadDays, prev.LeadDays)
		prev = q
	}
}

func TestPolicy_QuoteRejectsNegativeWeight(t *testing.T) {
	_, err := DefaultPolicy().Quote("x", d("-1"))
	require.ErrorIs(t, err, apperr.ErrInvalidValue)
}

func TestNewQuote(t *testing.T) {
	q, err := NewQuote(" 01001000 ", "63040440", d("25.005"), 5)
	require.NoError(t, err)
	assert.Equal(t, "01001000", q.Origin)
	assert.True(t, d("25.01").Equal(q.Cost))

	_, err = NewQuote("a", "b", d("-0.01"), 1)
	require.ErrorIs(t, err, apperr.ErrInvalidValue)

	_, err = NewQuote("a", "b", d("1"), -1)
	require.ErrorIs(t, err, apperr.ErrInvalidValue)
}
