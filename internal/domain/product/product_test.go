package product

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

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr error
	}{
		{
			name:   "physical with weight",
			params: Params{SKU: "LIV-001", Name: "POO Avançada", Price: d("120"), Stock: 8, Active: true, Weight: d("0.5")},
		},
		{
			name:   "digital without weight",
			params: Params{SKU: "EBK-001", Name: "E-book", Price: d("39.90"), Kind: KindDigital, Active: true},
		},
		{
			name:    "missing sku",
			params:  Params{Name: "x", Price: d("1")},
			wantErr: apperr.ErrInvalidValue,
		},
		{
			name:    "zero price",
			params:  Params{SKU: "A", Name: "x", Price: decimal.Zero},
			wantErr: apperr.ErrInvalidValue,
		},
		{
			name:    "negative stock",
			params:  Params{SKU: "A", Name: "x", Price: d("1"), Stock: -1},
			wantErr: apperr.ErrInvalidValue,
		},
		{
			name:    "negative weight",
			params:  Params{SKU: "A", Name: "x", Price: d("1"), Weight: d("-1")},
			wantErr: apperr.ErrInvalidValue,
		},
		{
			name:    "digital with weight",
			params:  Params{SKU: "A", Name: "x", Price: d("1"), Kind: KindDigital, Weight: d("1")},
			wantErr: apperr.ErrInvalidValue,
		},
		{
			name:    "unknown kind",
			params:  Params{SKU: "A", Name: "x", Price: d("1"), Kind: "service"},
			wantErr: apperr.ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.params)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.params.SKU, p.SKU())
		})
	}
}

func TestProduct_KindDefaultsAndWeight(t *testing.T) {
	p, err := New(Params{SKU: "A", Name: "Book", Price: d("10"), Stock: 3, Weight: d("1.25")})
	require.NoError(t, err)

	assert.Equal(t, KindPhysical, p.Kind())
	assert.True(t, p.TracksStock())
	w, ok := p.Weight()
	assert.True(t, ok)
	assert.True(t, d("1.25").Equal(w))

	digital, err := New(Params{SKU: "B", Name: "Key", Price: d("10"), Kind: KindDigital})
	require.NoError(t, err)
	assert.False(t, digital.TracksStock())
	_, ok = digital.Weight()
	assert.False(t, ok)
}

func TestProduct_AdjustStock(t *testing.T) {
	p, err := New(Params{SKU: "A", Name: "Book", Price: d("10"), Stock: 3})
	require.NoError(t, err)

	require.NoError(t, p.AdjustStock(5))
	assert.Equal(t, 8, p.Stock())

	require.NoError(t, p.AdjustStock(-8))
	assert.Equal(t, 0, p.Stock())

	err = p.AdjustStock(-1)
	require.ErrorIs(t, err, apperr.ErrInvalidValue)
	assert.Equal(t, 0, p.Stock(), "failed adjustment must not mutate")
}

func TestProduct_SetPrice(t *testing.T) {
	p, err := New(Params{SKU: "A", Name: "Book", Price: d("10")})
	require.NoError(t, err)

	require.ErrorIs(t, p.SetPrice(d("-1")), apperr.ErrInvalidValue)
	assert.True(t, d("10").Equal(p.Price()))

	require.NoError(t, p.SetPrice(d("12.50")))
	assert.True(t, d("12.50").Equal(p.Price()))
}

func TestProduct_CloneIsIndependent(t *testing.T) {
	p, err := New(Params{SKU: "A", Name: "Book", Price: d("10"), Stock: 10, Active: true})
	require.NoError(t, err)

	c := p.Clone()
	require.NoError(t, c.AdjustStock(-4))
	c.Deactivate()

	assert.Equal(t, 10, p.Stock())
	assert.True(t, p.Active())
	assert.Equal(t, 6, c.Stock())
	assert.False(t, c.Active())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Digital ")
	require.NoError(t, err)
	assert.Equal(t, KindDigital, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindPhysical, k)

	_, err = ParseKind("bundle")
	require.ErrorIs(t, err, apperr.ErrInvalidValue)
}
