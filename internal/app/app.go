// Package app wires the back-office API server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-backoffice/internal/domain/auth"
	"github.com/xenking/kart-backoffice/internal/domain/coupon"
	"github.com/xenking/kart-backoffice/internal/domain/order"
	"github.com/xenking/kart-backoffice/internal/domain/payment"
	"github.com/xenking/kart-backoffice/internal/domain/report"
	"github.com/xenking/kart-backoffice/internal/domain/stock"
	"github.com/xenking/kart-backoffice/internal/handler"
	"github.com/xenking/kart-backoffice/internal/session"
	"github.com/xenking/kart-backoffice/pkg/health"
	"github.com/xenking/kart-backoffice/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
	)

	stores, err := OpenStores(ctx, cfg.Storage)
	if err != nil {
		return errors.Wrap(err, "open stores")
	}
	defer stores.Close()

	srv, err := newServer(ctx, lg, m, cfg, stores)
	if err != nil {
		return err
	}
	healthSvc := srv.health
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           srv.handler,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

type apiServer struct {
	handler http.Handler
	health  *health.Health
}

// newServer builds the services, routes and middleware chain over stores.
// Health checks are registered but not started.
func newServer(
	ctx context.Context,
	lg *zap.Logger,
	t httpmiddleware.TelemetryProvider,
	cfg *Config,
	stores *Stores,
) (*apiServer, error) {
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("storage", 5*time.Second, health.PingCheck(cfg.Storage.Driver, stores.Ping))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))

	policy, err := cfg.Shipping.Policy()
	if err != nil {
		return nil, errors.Wrap(err, "shipping policy")
	}
	simCfg, err := cfg.Payment.SimulatorConfig()
	if err != nil {
		return nil, errors.Wrap(err, "payment simulator")
	}

	// Domain services.
	orderService := order.NewService(
		stores.Orders,
		stock.NewGuard(stores.Products, cfg.Stock.SafetyFloor),
		coupon.NewRepoResolver(stores.Coupons),
		payment.NewSimulator(simCfg),
		order.WithLogger(lg.Named("order")),
		order.WithStrictCoupons(cfg.Checkout.StrictCoupons),
		order.WithTracerProvider(t.TracerProvider()),
		order.WithMeterProvider(t.MeterProvider()),
	)

	// HTTP handlers.
	h := handler.NewHandler(
		handler.HandlerConfig{Shipping: policy},
		stores.Products,
		stores.Customers,
		orderService,
		report.NewService(stores.Orders),
		session.NewRegistry(),
	)
	securityHandler := handler.NewSecurityHandler(auth.NewAuthenticator(stores.APIKeys, []byte(cfg.APIKeyPepper)))

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux, securityHandler)
	routeFinder := httpmiddleware.MakeRouteFinder(mux)

	return &apiServer{
		health: healthSvc,
		handler: httpmiddleware.Wrap(mux,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", handler.APIKeyHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:     cfg.RateLimit.Max,
				Window:  cfg.RateLimit.Window,
				KeyFunc: httpmiddleware.KeyByHeaderOrIP(handler.APIKeyHeader),
				Skip:    httpmiddleware.SkipPaths("/livez", "/readyz"),
			}),
			httpmiddleware.Instrument("kart-backoffice", routeFinder, t),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}, nil
}
