package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/order"
	"github.com/xenking/kart-backoffice/internal/domain/payment"
)

// ListOrders returns every order.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, errors.Wrap(err, "list orders"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, o := range orders {
			encodeOrder(e, o)
		}
		e.ArrEnd()
	})
}

// GetOrder returns an order by code or unique code prefix.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// AdvanceOrderStatus moves an order to the requested status.
func (h *Handler) AdvanceOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var status string
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		var err error
		status, err = d.Str()
		return err
	})
	if err == nil && status == "" {
		err = apperr.InvalidValue("status is required")
	}
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	o, err := h.orders.AdvanceStatus(ctx, r.PathValue("code"), status)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("code")
	e.Str(o.Code())
	e.FieldStart("createdAt")
	encodeTime(e, o.CreatedAt())
	e.FieldStart("customer")
	e.Str(o.CustomerDocument())
	e.FieldStart("status")
	e.Str(o.Status().String())
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items() {
		e.ObjStart()
		e.FieldStart("sku")
		e.Str(it.SKU)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("price")
		encodeMoney(e, it.Price)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("subtotal")
	encodeMoney(e, o.Subtotal())
	e.FieldStart("discount")
	encodeMoney(e, o.Discount())
	if code := o.CouponCode(); code != "" {
		e.FieldStart("coupon")
		e.Str(code)
	}
	e.FieldStart("shipping")
	encodeQuote(e, o.Shipping())
	e.FieldStart("total")
	encodeMoney(e, o.Total())
	if p := o.Payment(); p != nil {
		e.FieldStart("payment")
		encodePayment(e, p)
	}
	e.ObjEnd()
}

func encodePayment(e *jx.Encoder, p *payment.Payment) {
	e.ObjStart()
	e.FieldStart("method")
	e.Str(string(p.Method()))
	e.FieldStart("status")
	e.Str(string(p.Status))
	e.FieldStart("amount")
	encodeMoney(e, p.Amount)
	if p.Reference != "" {
		e.FieldStart("reference")
		e.Str(p.Reference)
	}
	if p.SettledAt != nil {
		e.FieldStart("settledAt")
		encodeTime(e, *p.SettledAt)
	}
	switch d := p.Details.(type) {
	case payment.Card:
		e.FieldStart("brand")
		e.Str(d.Brand)
		e.FieldStart("installments")
		e.Int(d.Installments)
	case payment.Boleto:
		e.FieldStart("barcode")
		e.Str(d.Barcode)
		e.FieldStart("dueDate")
		e.Str(d.DueDate.Format("2006-01-02"))
	}
	e.ObjEnd()
}
