package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-backoffice/internal/domain/payment"
	"github.com/xenking/kart-backoffice/internal/domain/shipping"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Config holds the complete application configuration, loadable from
// environment variables (KART_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (KART_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Storage      StorageConfig
	Stock        StockConfig
	Shipping     ShippingConfig
	Payment      PaymentConfig
	Checkout     CheckoutConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver      string `default:"file" usage:"Storage driver: file or postgres"`
	DataDir     string `default:"data" usage:"Data directory of the file driver" flag:"data-dir"`
	Compress    bool   `default:"false" usage:"Gzip the file driver tables"`
	DatabaseURL string `usage:"PostgreSQL connection URL (KART_STORAGE_DATABASEURL or DATABASE_URL)" flag:"database-url"`
}

// StockConfig controls inventory checks at checkout.
type StockConfig struct {
	SafetyFloor int `default:"5" usage:"Minimum units left in stock after a sale" flag:"safety-floor"`
}

// ShippingConfig is the carrier price table. Amounts are decimal strings.
type ShippingConfig struct {
	Origin               string `default:"00000000" usage:"Origin postal code"`
	BaseFee              string `default:"5" usage:"Fixed fee per shipment"`
	PerKilogram          string `default:"10" usage:"Fee per kilogram"`
	MinimumCost          string `default:"15" usage:"Minimum shipment cost"`
	BaseDays             int    `default:"3" usage:"Base lead time in days"`
	KilogramsPerExtraDay string `default:"5" usage:"Kilograms per extra lead day"`
	MinimumDays          int    `default:"5" usage:"Minimum lead time in days"`
}

// Policy converts the table into a shipping.Policy.
func (c ShippingConfig) Policy() (shipping.Policy, error) {
	p := shipping.Policy{
		Origin:      c.Origin,
		BaseDays:    c.BaseDays,
		MinimumDays: c.MinimumDays,
	}
	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"base fee", c.BaseFee, &p.BaseFee},
		{"per kilogram", c.PerKilogram, &p.PerKilogram},
		{"minimum cost", c.MinimumCost, &p.MinimumCost},
		{"kilograms per extra day", c.KilogramsPerExtraDay, &p.KilogramsPerExtraDay},
	} {
		v, err := decimal.NewFromString(strings.TrimSpace(f.raw))
		if err != nil {
			return shipping.Policy{}, errors.Wrapf(err, "shipping %s", f.name)
		}
		if v.IsNegative() {
			return shipping.Policy{}, errors.Errorf("shipping %s must not be negative, got %s", f.name, v)
		}
		*f.dst = v
	}
	if c.BaseDays < 0 || c.MinimumDays < 0 {
		return shipping.Policy{}, errors.New("shipping lead days must not be negative")
	}
	return p, nil
}

// PaymentConfig tunes the payment simulator.
type PaymentConfig struct {
	MinimumAmount  string   `default:"5" usage:"Smallest payable amount"`
	DeclinedBrands []string `default:"RECUSADO" usage:"Card brands that are always declined"`
	BoletoDueDays  int      `default:"3" usage:"Days until a boleto is due"`
}

// SimulatorConfig converts the section into a payment.SimulatorConfig.
func (c PaymentConfig) SimulatorConfig() (payment.SimulatorConfig, error) {
	minimum, err := decimal.NewFromString(strings.TrimSpace(c.MinimumAmount))
	if err != nil {
		return payment.SimulatorConfig{}, errors.Wrap(err, "payment minimum amount")
	}
	if c.BoletoDueDays < 0 {
		return payment.SimulatorConfig{}, errors.Errorf("boleto due days must not be negative, got %d", c.BoletoDueDays)
	}
	cfg := payment.DefaultSimulatorConfig()
	cfg.MinimumAmount = minimum
	cfg.DeclinedBrands = c.DeclinedBrands
	cfg.BoletoDueDays = c.BoletoDueDays
	return cfg, nil
}

// CheckoutConfig controls coupon handling at checkout.
type CheckoutConfig struct {
	StrictCoupons bool `default:"false" usage:"Fail checkout on unknown or expired coupons" flag:"strict-coupons"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "KART",
		Files:     []string{"config.yaml", "/etc/kart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case DriverFile:
		if c.Storage.DataDir == "" {
			return errors.New("data directory is required for the file driver")
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("database URL is required: set KART_STORAGE_DATABASEURL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown storage driver %q, want %s or %s", c.Storage.Driver, DriverFile, DriverPostgres)
	}
	if c.Stock.SafetyFloor < 0 {
		return errors.Errorf("stock safety floor must not be negative, got %d", c.Stock.SafetyFloor)
	}
	if _, err := c.Shipping.Policy(); err != nil {
		return errors.Wrap(err, "shipping")
	}
	if _, err := c.Payment.SimulatorConfig(); err != nil {
		return errors.Wrap(err, "payment")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's KART_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Storage.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Storage.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
