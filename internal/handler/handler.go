// Package handler exposes the back-office over JSON/HTTP.
package handler

import (
	"net/http"

	"github.com/xenking/kart-backoffice/internal/domain/auth"
	"github.com/xenking/kart-backoffice/internal/domain/customer"
	"github.com/xenking/kart-backoffice/internal/domain/order"
	"github.com/xenking/kart-backoffice/internal/domain/product"
	"github.com/xenking/kart-backoffice/internal/domain/report"
	"github.com/xenking/kart-backoffice/internal/domain/shipping"
	"github.com/xenking/kart-backoffice/internal/session"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// Shipping prices cart deliveries.
	Shipping shipping.Policy
}

// Handler serves the back-office routes, delegating business logic to the
// domain services and repositories.
type Handler struct {
	products  product.Repository
	customers customer.Repository
	orders    *order.Service
	reports   *report.Service
	carts     *session.Registry
	shipping  shipping.Policy
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	products product.Repository,
	customers customer.Repository,
	orders *order.Service,
	reports *report.Service,
	carts *session.Registry,
) *Handler {
	return &Handler{
		products:  products,
		customers: customers,
		orders:    orders,
		reports:   reports,
		carts:     carts,
		shipping:  cfg.Shipping,
	}
}

// Register mounts every route on mux under /api. Mutating routes and
// reports go through sec.
func (h *Handler) Register(mux *http.ServeMux, sec *SecurityHandler) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{sku}", h.GetProduct)
	mux.Handle("PUT /api/products/{sku}", sec.Require(auth.ScopeCatalog, h.PutProduct))
	mux.Handle("POST /api/products/{sku}/stock", sec.Require(auth.ScopeCatalog, h.AdjustStock))

	mux.Handle("POST /api/customers", sec.Require(auth.ScopeOrders, h.CreateCustomer))
	mux.HandleFunc("GET /api/customers/{document}", h.GetCustomer)
	mux.Handle("POST /api/customers/{document}/addresses", sec.Require(auth.ScopeOrders, h.AddAddress))

	mux.Handle("POST /api/carts", sec.Require(auth.ScopeOrders, h.CreateCart))
	mux.HandleFunc("GET /api/carts/{id}", h.GetCart)
	mux.Handle("DELETE /api/carts/{id}", sec.Require(auth.ScopeOrders, h.DeleteCart))
	mux.Handle("PUT /api/carts/{id}/customer", sec.Require(auth.ScopeOrders, h.SetCartCustomer))
	mux.Handle("POST /api/carts/{id}/items", sec.Require(auth.ScopeOrders, h.AddCartItem))
	mux.Handle("DELETE /api/carts/{id}/items", sec.Require(auth.ScopeOrders, h.ClearCart))
	mux.Handle("DELETE /api/carts/{id}/items/{sku}", sec.Require(auth.ScopeOrders, h.RemoveCartItem))
	mux.HandleFunc("GET /api/carts/{id}/shipping", h.QuoteShipping)
	mux.Handle("POST /api/carts/{id}/checkout", sec.Require(auth.ScopeOrders, h.Checkout))

	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("GET /api/orders/{code}", h.GetOrder)
	mux.Handle("POST /api/orders/{code}/status", sec.Require(auth.ScopeOrders, h.AdvanceOrderStatus))

	mux.Handle("GET /api/reports/revenue", sec.Require(auth.ScopeReports, h.Revenue))
}
