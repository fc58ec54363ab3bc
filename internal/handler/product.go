package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/product"
)

// ListProducts returns every product in the catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.LoadAll(r.Context())
	if err != nil {
		writeError(r.Context(), w, errors.Wrap(err, "list products"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, p := range products {
			encodeProduct(e, p)
		}
		e.ArrEnd()
	})
}

// GetProduct returns a single product by SKU.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.FindBySKU(r.Context(), r.PathValue("sku"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, p) })
}

// PutProduct creates or replaces the product at the path SKU.
func (h *Handler) PutProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := product.Params{SKU: r.PathValue("sku"), Active: true}
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			params.Name, err = d.Str()
		case "category":
			params.Category, err = decodeOptionalString(d)
		case "price":
			params.Price, err = decodeDecimal(d)
		case "stock":
			params.Stock, err = d.Int()
		case "active":
			params.Active, err = d.Bool()
		case "kind":
			var s string
			if s, err = d.Str(); err == nil {
				params.Kind, err = product.ParseKind(s)
			}
		case "weight":
			if d.Next() == jx.Null {
				return d.Null()
			}
			params.Weight, err = decodeDecimal(d)
		default:
			return d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	p, err := product.New(params)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.products.Save(ctx, p); err != nil {
		writeError(ctx, w, errors.Wrap(err, "save product"))
		return
	}
	zctx.From(ctx).Info("Product saved", zap.String("sku", p.SKU()))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, p) })
}

// AdjustStock applies a signed stock delta: positive receives goods,
// negative writes them off.
func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		delta    int
		hasDelta bool
	)
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "delta" {
			return d.Skip()
		}
		hasDelta = true
		var err error
		delta, err = d.Int()
		return err
	})
	if err == nil && (!hasDelta || delta == 0) {
		err = apperr.InvalidValue("delta must be a non-zero integer")
	}
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	p, err := h.products.FindBySKU(ctx, r.PathValue("sku"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := p.AdjustStock(delta); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.products.Save(ctx, p); err != nil {
		writeError(ctx, w, errors.Wrap(err, "save product"))
		return
	}
	zctx.From(ctx).Info("Stock adjusted",
		zap.String("sku", p.SKU()),
		zap.Int("delta", delta),
		zap.Int("stock", p.Stock()),
	)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, p) })
}

func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.ObjStart()
	e.FieldStart("sku")
	e.Str(p.SKU())
	e.FieldStart("name")
	e.Str(p.Name())
	e.FieldStart("category")
	e.Str(p.Category())
	e.FieldStart("price")
	encodeMoney(e, p.Price())
	e.FieldStart("stock")
	e.Int(p.Stock())
	e.FieldStart("active")
	e.Bool(p.Active())
	e.FieldStart("kind")
	e.Str(string(p.Kind()))
	if w, ok := p.Weight(); ok {
		e.FieldStart("weight")
		encodeDecimal(e, w)
	}
	e.ObjEnd()
}
