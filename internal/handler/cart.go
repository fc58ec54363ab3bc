package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/cart"
	"github.com/xenking/kart-backoffice/internal/domain/customer"
	"github.com/xenking/kart-backoffice/internal/domain/order"
	"github.com/xenking/kart-backoffice/internal/domain/payment"
	"github.com/xenking/kart-backoffice/internal/domain/shipping"
	"github.com/xenking/kart-backoffice/internal/session"
)

func cartID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, errors.Wrapf(session.ErrNotFound, "%q", r.PathValue("id"))
	}
	return id, nil
}

// withCart runs fn on the path cart and renders the cart afterwards.
func (h *Handler) withCart(w http.ResponseWriter, r *http.Request, status int, fn func(c *cart.Cart) error) {
	id, err := cartID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	var buf []byte
	err = h.carts.With(id, func(c *cart.Cart) error {
		if err := fn(c); err != nil {
			return err
		}
		e := jx.GetEncoder()
		defer jx.PutEncoder(e)
		encodeCart(e, id, c)
		buf = append(buf, e.Bytes()...)
		return nil
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// CreateCart opens a cart session, optionally bound to a customer document.
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var document string
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "customer" {
			return d.Skip()
		}
		var err error
		document, err = decodeOptionalString(d)
		return err
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var c *customer.Customer
	if document != "" {
		if c, err = h.customers.FindByDocument(ctx, document); err != nil {
			writeError(ctx, w, err)
			return
		}
	}
	id := h.carts.Create(c)
	zctx.From(ctx).Debug("Cart opened", zap.Stringer("cart_id", id))

	r.SetPathValue("id", id.String())
	h.withCart(w, r, http.StatusCreated, func(*cart.Cart) error { return nil })
}

// GetCart returns the cart contents and totals.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.withCart(w, r, http.StatusOK, func(*cart.Cart) error { return nil })
}

// DeleteCart ends a cart session.
func (h *Handler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	id, err := cartID(r)
	if err == nil {
		err = h.carts.Delete(id)
	}
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetCartCustomer binds the cart to a registered customer.
func (h *Handler) SetCartCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var document string
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "document" {
			return d.Skip()
		}
		var err error
		document, err = d.Str()
		return err
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	c, err := h.customers.FindByDocument(ctx, document)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	h.withCart(w, r, http.StatusOK, func(ct *cart.Cart) error {
		ct.SetCustomer(c)
		return nil
	})
}

// AddCartItem adds a quantity of a product. The current catalog price is
// captured on the first add of a SKU.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		sku      string
		quantity int
	)
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "sku":
			sku, err = d.Str()
		case "quantity":
			quantity, err = d.Int()
		default:
			return d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	p, err := h.products.FindBySKU(ctx, strings.TrimSpace(sku))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	h.withCart(w, r, http.StatusOK, func(c *cart.Cart) error {
		return c.AddItem(p, quantity)
	})
}

// RemoveCartItem drops a SKU from the cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	sku := r.PathValue("sku")
	h.withCart(w, r, http.StatusOK, func(c *cart.Cart) error {
		c.RemoveItem(sku)
		return nil
	})
}

// ClearCart empties the cart and keeps its customer.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	id, err := cartID(r)
	if err == nil {
		err = h.carts.Reset(id)
	}
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	h.GetCart(w, r)
}

// destination picks the explicit postal code, or the first address of the
// cart customer.
func destination(c *cart.Cart, postalCode string) (string, error) {
	if postalCode = strings.TrimSpace(postalCode); postalCode != "" {
		return postalCode, nil
	}
	if cu := c.Customer(); cu != nil {
		if addrs := cu.Addresses(); len(addrs) > 0 {
			return addrs[0].PostalCode, nil
		}
	}
	return "", apperr.InvalidValue("postal code is required")
}

func (h *Handler) quote(c *cart.Cart, postalCode string) (shipping.Quote, error) {
	dest, err := destination(c, postalCode)
	if err != nil {
		return shipping.Quote{}, err
	}
	return h.shipping.Quote(dest, c.TotalWeight())
}

// QuoteShipping prices delivery of the cart contents.
func (h *Handler) QuoteShipping(w http.ResponseWriter, r *http.Request) {
	id, err := cartID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	var q shipping.Quote
	err = h.carts.With(id, func(c *cart.Cart) error {
		var err error
		q, err = h.quote(c, r.URL.Query().Get("postalCode"))
		return err
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeQuote(e, q) })
}

// Checkout converts the cart into an order. The cart is emptied once the
// order is stored, whatever the payment outcome.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		postalCode, couponCode string
		pay                    payment.Request
	)
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "postalCode":
			postalCode, err = decodeOptionalString(d)
		case "coupon":
			couponCode, err = decodeOptionalString(d)
		case "payment":
			pay, err = decodePaymentRequest(d)
		default:
			return d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	id, err := cartID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var o *order.Order
	err = h.carts.With(id, func(c *cart.Cart) error {
		q, err := h.quote(c, postalCode)
		if err != nil && !c.IsEmpty() {
			return err
		}
		o, err = h.orders.Checkout(ctx, order.CheckoutRequest{
			Cart:       c,
			Shipping:   q,
			CouponCode: couponCode,
			Payment:    pay,
		})
		if err != nil {
			return err
		}
		c.Clear()
		return nil
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func decodePaymentRequest(d *jx.Decoder) (payment.Request, error) {
	var req payment.Request
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "method":
			var s string
			if s, err = d.Str(); err == nil {
				req.Method, err = payment.ParseMethod(s)
			}
		case "brand":
			req.Brand, err = decodeOptionalString(d)
		case "installments":
			req.Installments, err = d.Int()
		case "dueDate":
			req.DueDate, err = decodeDate(d)
		default:
			return d.Skip()
		}
		return err
	})
	return req, err
}

func encodeCart(e *jx.Encoder, id uuid.UUID, c *cart.Cart) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(id.String())
	e.FieldStart("customer")
	if cu := c.Customer(); cu != nil {
		e.Str(cu.Document())
	} else {
		e.Null()
	}
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range c.Lines() {
		e.ObjStart()
		e.FieldStart("sku")
		e.Str(l.SKU())
		e.FieldStart("name")
		e.Str(l.Product().Name())
		e.FieldStart("price")
		encodeMoney(e, l.Price())
		e.FieldStart("quantity")
		e.Int(l.Quantity())
		e.FieldStart("subtotal")
		encodeMoney(e, l.Subtotal())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("subtotal")
	encodeMoney(e, c.Subtotal())
	e.FieldStart("weight")
	encodeDecimal(e, c.TotalWeight())
	e.ObjEnd()
}

func encodeQuote(e *jx.Encoder, q shipping.Quote) {
	e.ObjStart()
	e.FieldStart("origin")
	e.Str(q.Origin)
	e.FieldStart("destination")
	e.Str(q.Destination)
	e.FieldStart("cost")
	encodeMoney(e, q.Cost)
	e.FieldStart("leadDays")
	e.Int(q.LeadDays)
	e.ObjEnd()
}
