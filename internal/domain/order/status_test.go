package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
)

func TestStatus_TableIsConsistent(t *testing.T) {
	for _, s := range AllStatuses() {
		t.Run(string(s), func(t *testing.T) {
			switch s {
			case StatusDelivered, StatusCancelled:
				assert.True(t, s.Terminal())
				for _, to := range AllStatuses() {
					assert.False(t, s.CanTransitionTo(to), "%s -> %s", s, to)
				}
			default:
				assert.False(t, s.Terminal())
				assert.NotEmpty(t, s.Next())
			}
			for _, to := range s.Next() {
				_, err := ParseStatus(string(to))
				require.NoError(t, err)
			}
		})
	}
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusCreated, StatusPaid, true},
		{StatusCreated, StatusCancelled, true},
		{StatusCreated, StatusShipped, false},
		{StatusCreated, StatusSeparation, false},
		{StatusPendingPayment, StatusPaid, true},
		{StatusPendingPayment, StatusCancelled, true},
		{StatusPendingPayment, StatusDelivered, false},
		{StatusPaid, StatusSeparation, true},
		{StatusPaid, StatusCancelled, true},
		{StatusPaid, StatusCreated, false},
		{StatusSeparation, StatusShipped, true},
		{StatusSeparation, StatusCancelled, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPaid, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" shipped ")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, s)

	_, err = ParseStatus("LOST")
	require.ErrorIs(t, err, apperr.ErrInvalidValue)
	assert.Contains(t, err.Error(), "want one of CREATED, PENDING_PAYMENT, PAID, SEPARATION, SHIPPED, DELIVERED, CANCELLED")

	_, err = ParseStatus("")
	require.ErrorIs(t, err, apperr.ErrInvalidValue)
}
