package customer

import (
	"context"
	"regexp"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
)

// ErrNotFound is returned when no customer matches a document.
var ErrNotFound = errors.Wrap(apperr.ErrNotFound, "customer")

const documentLen = 11

var (
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	regionPattern = regexp.MustCompile(`^[A-Z]{2}$`)
)

// NormalizeDocument strips formatting characters from a taxpayer document
// and checks that exactly 11 digits remain.
func NormalizeDocument(s string) (string, error) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '/' || r == ' ':
		default:
			return "", apperr.DocumentInvalid("document %q contains %q", s, r)
		}
	}
	doc := b.String()
	if len(doc) != documentLen {
		return "", apperr.DocumentInvalid("document %q must have %d digits", s, documentLen)
	}
	return doc, nil
}

// NormalizeEmail lower-cases and validates an email address.
func NormalizeEmail(s string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(s))
	if !emailPattern.MatchString(email) {
		return "", apperr.DocumentInvalid("email %q is malformed", s)
	}
	return email, nil
}

// Address is a delivery or billing address owned by a Customer.
type Address struct {
	PostalCode string
	Street     string
	Number     string
	City       string
	Region     string
	Complement string
}

// NewAddress validates and normalizes an address.
func NewAddress(a Address) (Address, error) {
	postal := digitsOnly(a.PostalCode)
	if len(postal) != 8 {
		return Address{}, apperr.InvalidValue("postal code %q must have 8 digits", a.PostalCode)
	}
	a.PostalCode = postal
	a.Street = strings.TrimSpace(a.Street)
	a.Number = strings.TrimSpace(a.Number)
	a.City = strings.TrimSpace(a.City)
	a.Region = strings.ToUpper(strings.TrimSpace(a.Region))
	a.Complement = strings.TrimSpace(a.Complement)

	if a.Street == "" || a.Number == "" || a.City == "" {
		return Address{}, apperr.InvalidValue("street, number and city are required")
	}
	if !regionPattern.MatchString(a.Region) {
		return Address{}, apperr.InvalidValue("region %q must be a two letter code", a.Region)
	}
	return a, nil
}

// Customer is a registered buyer identified by a normalized document.
type Customer struct {
	document  string
	name      string
	email     string
	addresses []Address
}

// New validates the document, name and email of a customer.
func New(document, name, email string) (*Customer, error) {
	doc, err := NormalizeDocument(document)
	if err != nil {
		return nil, err
	}
	mail, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.InvalidValue("customer %s: name is required", doc)
	}
	return &Customer{document: doc, name: name, email: mail}, nil
}

func (c *Customer) Document() string { return c.document }

func (c *Customer) Name() string { return c.name }

func (c *Customer) Email() string { return c.email }

// Addresses returns the customer's addresses in insertion order.
func (c *Customer) Addresses() []Address {
	out := make([]Address, len(c.addresses))
	copy(out, c.addresses)
	return out
}

// AddAddress validates a and appends it to the customer.
func (c *Customer) AddAddress(a Address) error {
	addr, err := NewAddress(a)
	if err != nil {
		return errors.Wrapf(err, "customer %s", c.document)
	}
	c.addresses = append(c.addresses, addr)
	return nil
}

// Repository defines persistence operations for customers. Implementations
// enforce document and email uniqueness.
type Repository interface {
	FindByDocument(ctx context.Context, document string) (*Customer, error)
	Save(ctx context.Context, c *Customer) error
	LoadAll(ctx context.Context) ([]*Customer, error)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
