package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-backoffice/internal/app"
	"github.com/xenking/kart-backoffice/internal/domain/auth"
	"github.com/xenking/kart-backoffice/internal/domain/coupon"
	"github.com/xenking/kart-backoffice/internal/domain/customer"
	"github.com/xenking/kart-backoffice/internal/domain/product"
)

type productJSON struct {
	SKU      string           `json:"sku"`
	Name     string           `json:"name"`
	Category string           `json:"category"`
	Price    decimal.Decimal  `json:"price"`
	Stock    int              `json:"stock"`
	Kind     string           `json:"kind"`
	Weight   *decimal.Decimal `json:"weight"`
}

func main() {
	var (
		storage      app.StorageConfig
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&storage.Driver, "driver", app.DriverFile, "storage driver: file or postgres")
	flag.StringVar(&storage.DataDir, "data-dir", "data", "data directory of the file driver")
	flag.BoolVar(&storage.Compress, "compress", false, "gzip the file driver tables")
	flag.StringVar(&storage.DatabaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "operator API key to seed (or KART_SEED_API_KEY env); generated when empty")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or KART_API_KEY_PEPPER env)")
	flag.Parse()

	if storage.DatabaseURL == "" {
		storage.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if storage.Driver == app.DriverPostgres && storage.DatabaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("KART_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("KART_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, storage, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, storage app.StorageConfig, productsFile, apiKey, pepper string) error {
	slog.Info("opening store", slog.String("driver", storage.Driver))

	stores, err := app.OpenStores(ctx, storage)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer stores.Close()

	if err := seedProducts(ctx, stores.Products, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCustomer(ctx, stores.Customers); err != nil {
		return errors.Wrap(err, "seed customer")
	}

	if err := seedCoupons(ctx, stores.Coupons); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedAPIKey(ctx, stores.APIKeys, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedProducts(ctx context.Context, repo product.Repository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		kind, err := product.ParseKind(p.Kind)
		if err != nil {
			return errors.Wrapf(err, "product %s", p.SKU)
		}
		params := product.Params{
			SKU:      p.SKU,
			Name:     p.Name,
			Category: p.Category,
			Price:    p.Price,
			Stock:    p.Stock,
			Active:   true,
			Kind:     kind,
		}
		if p.Weight != nil {
			params.Weight = *p.Weight
		}

		prod, err := product.New(params)
		if err != nil {
			return errors.Wrapf(err, "product %s", p.SKU)
		}
		if err := repo.Save(ctx, prod); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.SKU)
		}

		slog.Info("upserted product", slog.String("sku", prod.SKU()), slog.String("name", prod.Name()))
	}

	return nil
}

func seedCustomer(ctx context.Context, repo customer.Repository) error {
	slog.Info("seeding demo customer")

	c, err := customer.New("12345678901", "Alice", "alice@teste.com")
	if err != nil {
		return err
	}
	if err := c.AddAddress(customer.Address{
		PostalCode: "63040-440",
		Street:     "Rua São Pedro",
		Number:     "100",
		City:       "Juazeiro do Norte",
		Region:     "CE",
	}); err != nil {
		return err
	}
	if err := repo.Save(ctx, c); err != nil {
		return errors.Wrap(err, "upsert customer")
	}

	slog.Info("upserted customer", slog.String("document", c.Document()), slog.String("name", c.Name()))

	return nil
}

func seedCoupons(ctx context.Context, repo app.CouponStore) error {
	slog.Info("seeding demo coupons")

	first, err := coupon.New("PRIMEIRA10", decimal.NewFromInt(10), coupon.KindPercentage, nil)
	if err != nil {
		return err
	}
	freeShipping, err := coupon.New("FRETEZERO", decimal.NewFromInt(100), coupon.KindFixed, nil)
	if err != nil {
		return err
	}

	coupons := []*coupon.Coupon{first, freeShipping}
	if err := repo.SaveMany(ctx, coupons); err != nil {
		return errors.Wrap(err, "upsert coupons")
	}

	for _, c := range coupons {
		slog.Info("upserted coupon", slog.String("code", c.Code()), slog.String("kind", string(c.Kind())))
	}

	return nil
}

// seedAPIKey stores apiKey with every scope. An empty apiKey issues a new
// random key, which is logged once.
func seedAPIKey(ctx context.Context, repo auth.Repository, apiKey, pepper string) error {
	slog.Info("seeding operator API key")

	scopes := []string{auth.ScopeCatalog, auth.ScopeOrders, auth.ScopeReports}

	if apiKey == "" {
		key, info, err := auth.NewAuthenticator(repo, []byte(pepper)).Issue(ctx, "Seeded operator key", scopes...)
		if err != nil {
			return err
		}
		slog.Info("issued API key", slog.String("id", info.ID), slog.String("key", key))
		return nil
	}

	info := &auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.Hash([]byte(pepper), apiKey),
		Name:    "Default operator key",
		Scopes:  scopes,
	}
	if err := repo.Save(ctx, info); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", info.ID), slog.String("name", info.Name))

	return nil
}
