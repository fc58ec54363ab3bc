// Package apperr defines the error kinds shared by the back-office domain.
//
// Every failure surfaced by a domain operation wraps exactly one of the
// sentinels below, so callers branch with errors.Is instead of matching
// message text.
package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrInvalidValue marks malformed or out-of-range input: non-positive
	// quantity or price, negative stock, unknown status, empty cart.
	ErrInvalidValue = errors.New("invalid value")
	// ErrDocumentInvalid marks a malformed customer document or email.
	ErrDocumentInvalid = errors.New("invalid document")
	// ErrNotFound marks an unresolved customer, product, order or coupon.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock marks a sale larger than the available stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStockSafety marks a sale that would leave stock below the safety floor.
	ErrStockSafety = errors.New("stock safety floor violated")
	// ErrPersistence marks a read or write failure of an underlying store.
	ErrPersistence = errors.New("persistence failure")
)

// InvalidValue returns an error of kind ErrInvalidValue.
func InvalidValue(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidValue, format, args...)
}

// DocumentInvalid returns an error of kind ErrDocumentInvalid.
func DocumentInvalid(format string, args ...any) error {
	return errors.Wrapf(ErrDocumentInvalid, format, args...)
}

// NotFound returns an error of kind ErrNotFound.
func NotFound(format string, args ...any) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

// PersistenceError reports a failed store operation. It matches
// ErrPersistence and unwraps to the underlying cause.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

// Unwrap returns the underlying store error.
func (e *PersistenceError) Unwrap() error { return e.Err }

// Is reports whether target is ErrPersistence.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Persistence wraps err as a PersistenceError for operation op. It returns
// nil when err is nil and leaves errors that already carry a domain kind
// untouched.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != KindInternal {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// Corrupt wraps err as a PersistenceError even when it carries a domain
// kind. Stores use it for records that fail validation on load.
func Corrupt(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// Kind names, stable across releases. The HTTP layer exposes them to clients.
const (
	KindInvalidValue      = "invalid_value"
	KindDocumentInvalid   = "document_invalid"
	KindNotFound          = "not_found"
	KindInsufficientStock = "insufficient_stock"
	KindStockSafety       = "stock_safety_violation"
	KindPersistence       = "persistence_failure"
	KindInternal          = "internal"
)

// Kind returns the machine name of the error kind carried by err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	case errors.Is(err, ErrInvalidValue):
		return KindInvalidValue
	case errors.Is(err, ErrDocumentInvalid):
		return KindDocumentInvalid
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrStockSafety):
		return KindStockSafety
	default:
		return KindInternal
	}
}
