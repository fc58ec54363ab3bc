package apperr

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "invalid value", err: InvalidValue("quantity %d", 0), want: KindInvalidValue},
		{name: "document", err: DocumentInvalid("cpf %q", "123"), want: KindDocumentInvalid},
		{name: "not found", err: NotFound("order %q", "P-1"), want: KindNotFound},
		{name: "wrapped not found", err: errors.Wrap(NotFound("x"), "lookup"), want: KindNotFound},
		{name: "insufficient stock", err: errors.Wrap(ErrInsufficientStock, "sku"), want: KindInsufficientStock},
		{name: "safety", err: ErrStockSafety, want: KindStockSafety},
		{name: "persistence", err: Persistence("save", errors.New("disk full")), want: KindPersistence},
		{name: "corrupt record", err: Corrupt("decode order", InvalidValue("total")), want: KindPersistence},
		{name: "unknown", err: errors.New("boom"), want: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestPersistence(t *testing.T) {
	cause := errors.New("disk full")

	err := Persistence("save order", cause)
	require.ErrorIs(t, err, ErrPersistence)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "save order")

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "save order", pe.Op)

	assert.NoError(t, Persistence("noop", nil))

	// Domain kinds pass through unchanged.
	nf := NotFound("product %q", "X")
	assert.Same(t, nf, Persistence("find", nf))
}
