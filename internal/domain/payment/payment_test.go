package payment

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

func newTestSimulator(now time.Time) *Simulator {
	s := NewSimulator(DefaultSimulatorConfig())
	s.now = func() time.Time { return now }
	return s
}

func TestSimulator_Process(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		amount     string
		req        Request
		wantStatus Status
		wantSettle bool
	}{
		{
			name:       "card approved",
			amount:     "105",
			req:        Request{Method: MethodCard, Brand: "VISA", Installments: 2},
			wantStatus: StatusApproved,
			wantSettle: true,
		},
		{
			name:       "declined brand",
			amount:     "105",
			req:        Request{Method: MethodCard, Brand: "Recusado"},
			wantStatus: StatusFailed,
		},
		{
			name:       "below minimum amount",
			amount:     "4.99",
			req:        Request{Method: MethodCard, Brand: "VISA"},
			wantStatus: StatusFailed,
		},
		{
			name:       "exactly minimum amount",
			amount:     "5",
			req:        Request{Method: MethodCard, Brand: "VISA"},
			wantStatus: StatusApproved,
			wantSettle: true,
		},
		{
			name:       "boleto pending",
			amount:     "50",
			req:        Request{Method: MethodBoleto},
			wantStatus: StatusPending,
		},
		{
			name:       "boleto below minimum fails",
			amount:     "1",
			req:        Request{Method: MethodBoleto},
			wantStatus: StatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := newTestSimulator(now).Process(d(tt.amount), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, p.Status)
			assert.True(t, d(tt.amount).Equal(p.Amount))
			assert.NotEmpty(t, p.Reference)
			assert.Equal(t, tt.req.Method, p.Method())
			if tt.wantSettle {
				require.NotNil(t, p.SettledAt)
				assert.Equal(t, now, *p.SettledAt)
			} else {
				assert.Nil(t, p.SettledAt)
			}
		})
	}
}

func TestSimulator_Boleto(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	s := newTestSimulator(now)

	p, err := s.Process(d("123.45"), Request{Method: MethodBoleto})
	require.NoError(t, err)
	b, ok := p.Details.(Boleto)
	require.True(t, ok)
	assert.Equal(t, now.AddDate(0, 0, 3), b.DueDate)
	assert.Len(t, b.Barcode, 44)
	assert.Contains(t, b.Barcode, "20250313")

	due := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	p, err = s.Process(d("10"), Request{Method: MethodBoleto, DueDate: &due})
	require.NoError(t, err)
	assert.Equal(t, due, p.Details.(Boleto).DueDate)
}

func TestSimulator_CardDetails(t *testing.T) {
	p, err := newTestSimulator(time.Now()).Process(d("10"), Request{Method: MethodCard, Brand: " visa "})
	require.NoError(t, err)
	c, ok := p.Details.(Card)
	require.True(t, ok)
	assert.Equal(t, "VISA", c.Brand)
	assert.Equal(t, 1, c.Installments)
}

func TestSimulator_InvalidRequest(t *testing.T) {
	s := newTestSimulator(time.Now())

	_, err := s.Process(d("10"), Request{Method: MethodCard})
	require.ErrorIs(t, err, apperr.ErrInvalidValue)

	_, err = s.Process(d("10"), Request{Method: "pix"})
	require.ErrorIs(t, err, apperr.ErrInvalidValue)

	_, err = s.Process(d("0"), Request{Method: MethodBoleto})
	require.ErrorIs(t, err, apperr.ErrInvalidValue)
}

func TestParse(t *testing.T) {
	m, err := ParseMethod("Boleto")
	require.NoError(t, err)
	assert.Equal(t, MethodBoleto, m)

	m, err = ParseMethod("card")
	require.NoError(t, err)
	assert.Equal(t, MethodCard, m)

	_, err = ParseMethod("cash")
	require.ErrorIs(t, err, apperr.ErrInvalidValue)

	st, err := ParseStatus("approved")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, st)

	_, err = ParseStatus("refunded")
	require.ErrorIs(t, err, apperr.ErrInvalidValue)
}
