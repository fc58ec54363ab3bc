package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/kart-backoffice/internal/domain/auth"
	"github.com/xenking/kart-backoffice/internal/domain/customer"
	"github.com/xenking/kart-backoffice/internal/domain/product"
	"github.com/xenking/kart-backoffice/internal/handler"
	"github.com/xenking/kart-backoffice/pkg/httpmiddleware"
)

type noopTelemetry struct{}

func (noopTelemetry) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }

func (noopTelemetry) MeterProvider() metric.MeterProvider { return metricnoop.NewMeterProvider() }

type testServer struct {
	*httptest.Server
	srv *apiServer
	key string
}

func newTestServer(t *testing.T, mutate func(cfg *Config)) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := validConfig()
	cfg.Storage.DataDir = t.TempDir()
	cfg.APIKeyPepper = "test-pepper"
	cfg.RateLimit = RateLimitConfig{Max: 100, Window: time.Minute}
	cfg.CORS = CORSConfig{Origins: []string{"https://admin.example.com"}}
	if mutate != nil {
		mutate(&cfg)
	}
	require.NoError(t, cfg.Validate())

	stores, err := OpenStores(ctx, cfg.Storage)
	require.NoError(t, err)
	t.Cleanup(stores.Close)

	book, err := product.New(product.Params{
		SKU: "LIV-001", Name: "Dom Casmurro", Category: "books",
		Price: decimal.NewFromInt(120), Stock: 8, Active: true, Weight: decimal.RequireFromString("0.5"),
	})
	require.NoError(t, err)
	require.NoError(t, stores.Products.Save(ctx, book))

	alice, err := customer.New("12345678901", "Alice", "alice@teste.com")
	require.NoError(t, err)
	require.NoError(t, alice.AddAddress(customer.Address{
		PostalCode: "63040440", Street: "Rua São Pedro", Number: "100", City: "Juazeiro do Norte", Region: "CE",
	}))
	require.NoError(t, stores.Customers.Save(ctx, alice))

	key, _, err := auth.NewAuthenticator(stores.APIKeys, []byte(cfg.APIKeyPepper)).
		Issue(ctx, "operator", auth.ScopeCatalog, auth.ScopeOrders, auth.ScopeReports)
	require.NoError(t, err)

	srv, err := newServer(ctx, zap.NewNop(), noopTelemetry{}, &cfg, stores)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.handler)
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, srv: srv, key: key}
}

func (s *testServer) do(t *testing.T, method, path, body string, header http.Header) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var out map[string]any
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		out = nil
	}
	return resp, out
}

func (s *testServer) withKey() http.Header {
	return http.Header{handler.APIKeyHeader: {s.key}}
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := ts.do(t, http.MethodGet, "/livez", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, body = ts.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "unhealthy", body["status"])

	ts.srv.health.SetReady(true)
	resp, _ = ts.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_RequestID(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, _ := ts.do(t, http.MethodGet, "/api/products", "", nil)
	assert.Len(t, resp.Header.Get(httpmiddleware.RequestIDHeader), 36)

	resp, _ = ts.do(t, http.MethodGet, "/api/products", "", http.Header{httpmiddleware.RequestIDHeader: {"trace-123"}})
	assert.Equal(t, "trace-123", resp.Header.Get(httpmiddleware.RequestIDHeader))
}

func TestServer_CORS(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, _ := ts.do(t, http.MethodOptions, "/api/carts", "", http.Header{
		"Origin":                        {"https://admin.example.com"},
		"Access-Control-Request-Method": {http.MethodPost},
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://admin.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), handler.APIKeyHeader)

	resp, _ = ts.do(t, http.MethodGet, "/api/products", "", http.Header{"Origin": {"https://admin.example.com"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, httpmiddleware.RequestIDHeader, resp.Header.Get("Access-Control-Expose-Headers"))
}

func TestServer_RateLimit(t *testing.T) {
	ts := newTestServer(t, func(cfg *Config) {
		cfg.RateLimit = RateLimitConfig{Max: 2, Window: time.Hour}
	})

	for range 2 {
		resp, _ := ts.do(t, http.MethodGet, "/api/products", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	}
	resp, body := ts.do(t, http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limited", body["kind"])

	// Keyed clients get their own budget.
	resp, _ = ts.do(t, http.MethodGet, "/api/products", "", ts.withKey())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Auth(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := ts.do(t, http.MethodPost, "/api/carts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", body["kind"])

	resp, _ = ts.do(t, http.MethodPost, "/api/carts", "", http.Header{handler.APIKeyHeader: {"kart_unknown"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = ts.do(t, http.MethodGet, "/api/products/NOPE", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["kind"])
}

func TestServer_BoletoCheckout(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := ts.do(t, http.MethodPost, "/api/carts", `{"customer":"12345678901"}`, ts.withKey())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := body["id"].(string)

	resp, _ = ts.do(t, http.MethodPost, "/api/carts/"+id+"/items", `{"sku":"LIV-001","quantity":1}`, ts.withKey())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = ts.do(t, http.MethodPost, "/api/carts/"+id+"/checkout", `{"payment":{"method":"boleto"}}`, ts.withKey())
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, json.Number("120.00"), body["subtotal"])
	assert.Equal(t, json.Number("135.00"), body["total"])

	pay := body["payment"].(map[string]any)
	assert.Equal(t, "PENDING", pay["status"])
	assert.Len(t, pay["barcode"], 44)

	code := body["code"].(string)
	resp, body = ts.do(t, http.MethodGet, "/api/orders/"+code, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, code, body["code"])
}
