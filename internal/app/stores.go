package app

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-backoffice/internal/domain/auth"
	"github.com/xenking/kart-backoffice/internal/domain/coupon"
	"github.com/xenking/kart-backoffice/internal/domain/customer"
	"github.com/xenking/kart-backoffice/internal/domain/order"
	"github.com/xenking/kart-backoffice/internal/domain/product"
	"github.com/xenking/kart-backoffice/internal/storage/file"
	"github.com/xenking/kart-backoffice/internal/storage/postgres"
)

// CouponStore is a coupon.Repository with bulk upserts.
type CouponStore interface {
	coupon.Repository
	SaveMany(ctx context.Context, coupons []*coupon.Coupon) error
}

// Stores bundles the repositories of the configured backend.
type Stores struct {
	Products  product.Repository
	Customers customer.Repository
	Coupons   CouponStore
	Orders    order.Repository
	APIKeys   auth.Repository

	// Ping checks the backend is reachable.
	Ping func(ctx context.Context) error
	// Close releases the backend.
	Close func()
}

// OpenStores opens the backend selected by cfg.Driver. PostgreSQL schemas
// are migrated on open.
func OpenStores(ctx context.Context, cfg StorageConfig) (*Stores, error) {
	switch cfg.Driver {
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		return &Stores{
			Products:  postgres.NewProductRepository(pool),
			Customers: postgres.NewCustomerRepository(pool),
			Coupons:   postgres.NewCouponRepository(pool),
			Orders:    postgres.NewOrderRepository(pool),
			APIKeys:   postgres.NewAPIKeyRepository(pool),
			Ping:      pool.Ping,
			Close:     pool.Close,
		}, nil
	case DriverFile, "":
		s, err := file.Open(file.Options{Dir: cfg.DataDir, Compress: cfg.Compress})
		if err != nil {
			return nil, errors.Wrap(err, "open data dir")
		}
		return &Stores{
			Products:  file.NewProductRepository(s),
			Customers: file.NewCustomerRepository(s),
			Coupons:   file.NewCouponRepository(s),
			Orders:    file.NewOrderRepository(s),
			APIKeys:   file.NewAPIKeyRepository(s),
			Ping:      func(context.Context) error { return s.Ping() },
			Close:     func() {},
		}, nil
	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
