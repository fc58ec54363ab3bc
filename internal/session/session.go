// Package session keeps the carts owned by back-office sessions.
package session

import (
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/cart"
	"github.com/xenking/kart-backoffice/internal/domain/customer"
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.Wrap(apperr.ErrNotFound, "cart session")

type entry struct {
	mu   sync.Mutex
	cart *cart.Cart
}

// Registry maps session ids to carts. Each cart is only touched while its
// entry lock is held.
type Registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[uuid.UUID]*entry)}
}

// Create starts a session with an empty cart bound to c, which may be nil.
func (r *Registry) Create(c *customer.Customer) uuid.UUID {
	id := uuid.New()
	r.mu.Lock()
	r.entries[id] = &entry{cart: cart.New(c)}
	r.mu.Unlock()
	return id
}

func (r *Registry) get(id uuid.UUID) (*entry, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Wrap(ErrNotFound, id.String())
	}
	return e, nil
}

// With runs fn with exclusive access to the session cart.
func (r *Registry) With(id uuid.UUID, fn func(c *cart.Cart) error) error {
	e, err := r.get(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.cart)
}

// Reset replaces the session cart with an empty one for the same customer.
func (r *Registry) Reset(id uuid.UUID) error {
	e, err := r.get(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.cart = cart.New(e.cart.Customer())
	e.mu.Unlock()
	return nil
}

// Delete ends a session.
func (r *Registry) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return errors.Wrap(ErrNotFound, id.String())
	}
	delete(r.entries, id)
	return nil
}
