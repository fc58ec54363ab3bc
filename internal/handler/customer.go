package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/customer"
)

// CreateCustomer registers a new customer. A document that is already
// registered is rejected.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		document, name, email string
		addrs                 []customer.Address
	)
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "document":
			document, err = d.Str()
		case "name":
			name, err = d.Str()
		case "email":
			email, err = d.Str()
		case "addresses":
			err = d.Arr(func(d *jx.Decoder) error {
				a, err := decodeAddress(d)
				if err != nil {
					return err
				}
				addrs = append(addrs, a)
				return nil
			})
		default:
			return d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	c, err := customer.New(document, name, email)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	for _, a := range addrs {
		if err := c.AddAddress(a); err != nil {
			writeError(ctx, w, err)
			return
		}
	}

	switch _, err := h.customers.FindByDocument(ctx, c.Document()); {
	case err == nil:
		writeError(ctx, w, apperr.DocumentInvalid("document %s is already registered", c.Document()))
		return
	case !errors.Is(err, customer.ErrNotFound):
		writeError(ctx, w, errors.Wrap(err, "find customer"))
		return
	}

	if err := h.customers.Save(ctx, c); err != nil {
		writeError(ctx, w, errors.Wrap(err, "save customer"))
		return
	}
	zctx.From(ctx).Info("Customer registered", zap.String("document", c.Document()))
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeCustomer(e, c) })
}

// GetCustomer returns a customer by document, formatted or not.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.customers.FindByDocument(r.Context(), r.PathValue("document"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCustomer(e, c) })
}

// AddAddress appends an address to a customer.
func (h *Handler) AddAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var a customer.Address
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		return decodeAddressField(d, key, &a)
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	c, err := h.customers.FindByDocument(ctx, r.PathValue("document"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := c.AddAddress(a); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.customers.Save(ctx, c); err != nil {
		writeError(ctx, w, errors.Wrap(err, "save customer"))
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeCustomer(e, c) })
}

func decodeAddress(d *jx.Decoder) (customer.Address, error) {
	var a customer.Address
	err := d.Obj(func(d *jx.Decoder, key string) error {
		return decodeAddressField(d, key, &a)
	})
	return a, err
}

func decodeAddressField(d *jx.Decoder, key string, a *customer.Address) error {
	var err error
	switch key {
	case "postalCode":
		a.PostalCode, err = d.Str()
	case "street":
		a.Street, err = d.Str()
	case "number":
		a.Number, err = d.Str()
	case "city":
		a.City, err = d.Str()
	case "region":
		a.Region, err = d.Str()
	case "complement":
		a.Complement, err = decodeOptionalString(d)
	default:
		return d.Skip()
	}
	return err
}

func encodeCustomer(e *jx.Encoder, c *customer.Customer) {
	e.ObjStart()
	e.FieldStart("document")
	e.Str(c.Document())
	e.FieldStart("name")
	e.Str(c.Name())
	e.FieldStart("email")
	e.Str(c.Email())
	e.FieldStart("addresses")
	e.ArrStart()
	for _, a := range c.Addresses() {
		e.ObjStart()
		e.FieldStart("postalCode")
		e.Str(a.PostalCode)
		e.FieldStart("street")
		e.Str(a.Street)
		e.FieldStart("number")
		e.Str(a.Number)
		e.FieldStart("city")
		e.Str(a.City)
		e.FieldStart("region")
		e.Str(a.Region)
		if a.Complement != "" {
			e.FieldStart("complement")
			e.Str(a.Complement)
		}
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}
