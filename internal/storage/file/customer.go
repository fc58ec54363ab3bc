package file

import (
	"context"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/customer"
)

var _ customer.Repository = (*CustomerRepository)(nil)

type addressRecord struct {
	PostalCode string `json:"postal_code"`
	Street     string `json:"street"`
	Number     string `json:"number"`
	City       string `json:"city"`
	Region     string `json:"region"`
	Complement string `json:"complement,omitempty"`
}

type customerRecord struct {
	Document  string          `json:"document"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Addresses []addressRecord `json:"addresses"`
}

func toCustomerRecord(c *customer.Customer) customerRecord {
	addrs := c.Addresses()
	r := customerRecord{
		Document:  c.Document(),
		Name:      c.Name(),
		Email:     c.Email(),
		Addresses: make([]addressRecord, len(addrs)),
	}
	for i, a := range addrs {
		r.Addresses[i] = addressRecord(a)
	}
	return r
}

func (r customerRecord) toDomain() (*customer.Customer, error) {
	c, err := customer.New(r.Document, r.Name, r.Email)
	if err != nil {
		return nil, apperr.Corrupt("decode customer "+r.Document, err)
	}
	for _, a := range r.Addresses {
		if err := c.AddAddress(customer.Address(a)); err != nil {
			return nil, apperr.Corrupt("decode customer "+r.Document, err)
		}
	}
	return c, nil
}

// CustomerRepository implements customer.Repository over customers.json.
// Document and email are unique across customers.
type CustomerRepository struct {
	s *Store
}

// NewCustomerRepository creates a CustomerRepository.
func NewCustomerRepository(s *Store) *CustomerRepository {
	return &CustomerRepository{s: s}
}

// FindByDocument returns the customer with the given normalized document.
func (r *CustomerRepository) FindByDocument(_ context.Context, document string) (*customer.Customer, error) {
	doc, err := customer.NormalizeDocument(document)
	if err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows, err := readTable[customerRecord](r.s, tableCustomers)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.Document == doc {
			return row.toDomain()
		}
	}
	return nil, customer.ErrNotFound
}

// Save upserts c by document. It fails with a document error when the email
// belongs to another customer.
func (r *CustomerRepository) Save(_ context.Context, c *customer.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows, err := readTable[customerRecord](r.s, tableCustomers)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row.Email == c.Email() && row.Document != c.Document() {
			return apperr.DocumentInvalid("email %s is already registered", c.Email())
		}
	}
	return upsert(r.s, tableCustomers, toCustomerRecord(c), func(rec customerRecord) string { return rec.Document })
}

// LoadAll returns every customer in file order.
func (r *CustomerRepository) LoadAll(_ context.Context) ([]*customer.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows, err := readTable[customerRecord](r.s, tableCustomers)
	if err != nil {
		return nil, err
	}
	out := make([]*customer.Customer, 0, len(rows))
	for _, row := range rows {
		c, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
