package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestNew(t *testing.T) {
	c, err := New("  primeira10 ", d("10"), KindPercentage, nil)
	require.NoError(t, err)
	assert.Equal(t, "PRIMEIRA10", c.Code())
	assert.Nil(t, c.ExpiresAt())

	tests := []struct {
		name  string
		code  string
		value string
		kind  Kind
	}{
		{name: "empty code", code: " ", value: "10", kind: KindFixed},
		{name: "zero value", code: "X", value: "0", kind: KindFixed},
		{name: "negative value", code: "X", value: "-1", kind: KindPercentage},
		{name: "percentage over 100", code: "X", value: "101", kind: KindPercentage},
		{name: "unknown kind", code: "X", value: "1", kind: "bogo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.code, d(tt.value), tt.kind, nil)
			require.ErrorIs(t, err, apperr.ErrInvalidValue)
		})
	}
}

func TestCoupon_DiscountAt(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name     string
		kind     Kind
		value    string
		expires  *time.Time
		subtotal string
		want     string
	}{
		{name: "percentage under cap", kind: KindPercentage, value: "10", subtotal: "100", want: "10"},
		{name: "fixed capped at half", kind: KindFixed, value: "200", subtotal: "100", want: "50"},
		{name: "percentage capped at half", kind: KindPercentage, value: "80", subtotal: "100", want: "50"},
		{name: "fixed under cap", kind: KindFixed, value: "20", subtotal: "100", want: "20"},
		{name: "rounds to cents", kind: KindPercentage, value: "15", subtotal: "33.33", want: "5"},
		{name: "half floored to cents", kind: KindFixed, value: "100", subtotal: "0.05", want: "0.02"},
		{name: "expired", kind: KindPercentage, value: "10", expires: &past, subtotal: "100", want: "0"},
		{name: "not yet expired", kind: KindFixed, value: "5", expires: &future, subtotal: "100", want: "5"},
		{name: "zero subtotal", kind: KindFixed, value: "5", subtotal: "0", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New("CODE", d(tt.value), tt.kind, tt.expires)
			require.NoError(t, err)

			got := c.DiscountAt(d(tt.subtotal), now)
			assert.True(t, d(tt.want).Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestCoupon_DiscountCapInvariant(t *testing.T) {
	now := time.Now()
	half := d("0.5")
	for _, v := range []string{"1", "9.99", "50", "100", "250", "1000"} {
		for _, kind := range []Kind{KindFixed, KindPercentage} {
			value := d(v)
			if kind == KindPercentage && value.GreaterThan(d("100")) {
				continue
			}
			c, err := New("CAP", value, kind, nil)
			require.NoError(t, err)
			for _, s := range []string{"0.01", "1", "7.77", "100", "12345.67"} {
				subtotal := d(s)
				got := c.DiscountAt(subtotal, now)
				assert.True(t, got.LessThanOrEqual(subtotal.Mul(half)), "%s %s on %s: %s", kind, v, s, got)
				assert.True(t, got.LessThanOrEqual(subtotal), "%s %s on %s: %s", kind, v, s, got)
				assert.False(t, got.IsNegative())
			}
		}
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Percentage")
	require.NoError(t, err)
	assert.Equal(t, KindPercentage, k)

	k, err = ParseKind("fixed")
	require.NoError(t, err)
	assert.Equal(t, KindFixed, k)

	_, err = ParseKind("free")
	require.ErrorIs(t, err, apperr.ErrInvalidValue)
}
