package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/customer"
)

const (
	getCustomerSQL = `SELECT document, name, email, addresses FROM customers WHERE document = $1`

	listCustomersSQL = `SELECT document, name, email, addresses FROM customers ORDER BY document`

	upsertCustomerSQL = `INSERT INTO customers (document, name, email, addresses)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (document) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			addresses = EXCLUDED.addresses`

	customersEmailKey = "customers_email_key"
)

var _ customer.Repository = (*CustomerRepository)(nil)

type addressJSON struct {
	PostalCode string `json:"postal_code"`
	Street     string `json:"street"`
	Number     string `json:"number"`
	City       string `json:"city"`
	Region     string `json:"region"`
	Complement string `json:"complement,omitempty"`
}

// CustomerRepository implements customer.Repository backed by PostgreSQL.
// The customers_email_key constraint keeps emails unique.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// FindByDocument returns the customer with the given normalized document.
func (r *CustomerRepository) FindByDocument(ctx context.Context, document string) (*customer.Customer, error) {
	doc, err := customer.NormalizeDocument(document)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, getCustomerSQL, doc)
	if err != nil {
		return nil, queryFailed("get customer "+doc, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, queryFailed("get customer "+doc, err)
	}
	return c, nil
}

// Save upserts c by document.
func (r *CustomerRepository) Save(ctx context.Context, c *customer.Customer) error {
	addrs := c.Addresses()
	rows := make([]addressJSON, len(addrs))
	for i, a := range addrs {
		rows[i] = addressJSON(a)
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return errors.Wrap(err, "marshal addresses")
	}

	_, err = r.pool.Exec(ctx, upsertCustomerSQL, c.Document(), c.Name(), c.Email(), data)
	if isUniqueViolation(err, customersEmailKey) {
		return apperr.DocumentInvalid("email %s is already registered", c.Email())
	}
	if err != nil {
		return queryFailed("save customer "+c.Document(), err)
	}
	return nil
}

// LoadAll returns every customer ordered by document.
func (r *CustomerRepository) LoadAll(ctx context.Context) ([]*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, listCustomersSQL)
	if err != nil {
		return nil, queryFailed("list customers", err)
	}
	out, err := pgx.CollectRows(rows, scanCustomer)
	if err != nil {
		return nil, queryFailed("list customers", err)
	}
	return out, nil
}

func scanCustomer(row pgx.CollectableRow) (*customer.Customer, error) {
	var (
		doc, name, email string
		raw              []byte
	)
	if err := row.Scan(&doc, &name, &email, &raw); err != nil {
		return nil, err
	}
	c, err := customer.New(doc, name, email)
	if err != nil {
		return nil, apperr.Corrupt("decode customer "+doc, err)
	}
	var addrs []addressJSON
	if err := json.Unmarshal(raw, &addrs); err != nil {
		return nil, apperr.Corrupt("decode customer "+doc, err)
	}
	for _, a := range addrs {
		if err := c.AddAddress(customer.Address(a)); err != nil {
			return nil, apperr.Corrupt("decode customer "+doc, err)
		}
	}
	return c, nil
}
