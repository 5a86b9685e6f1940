package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/domain/cart"
)

// Config holds the complete agent configuration, loadable from environment
// variables (KART_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Locale    string `default:"en-US" usage:"BCP 47 locale for formatted amounts"`
	Storage   StorageConfig
	OrderAPI  OrderAPIConfig
	Checkout  CheckoutConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// Storage drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// StorageConfig selects where cart, wishlist, session and receipts live.
type StorageConfig struct {
	Driver      string `default:"file" usage:"Storage backend: file, postgres or memory"`
	Dir         string `default:"data" usage:"Data directory for the file backend"`
	DatabaseURL string `usage:"PostgreSQL connection URL (KART_STORAGE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
}

// OrderAPIConfig points at the remote order service.
type OrderAPIConfig struct {
	BaseURL string        `usage:"Order API base URL, e.g. https://shop.example.com/api/" flag:"order-api-url"`
	Timeout time.Duration `default:"30s" usage:"Order API request timeout"`
}

// CheckoutConfig holds pricing rules and the sign-in redirect.
type CheckoutConfig struct {
	DeliveryFee string `default:"10000" usage:"Flat delivery fee in whole currency units"`
	TaxRate     string `default:"0.18" usage:"Tax rate applied to the subtotal"`
	LoginPath   string `default:"/login" usage:"Where unauthenticated checkouts are sent"`
}

// Rates parses the configured pricing rules.
func (c CheckoutConfig) Rates() (cart.Rates, error) {
	fee, err := decimal.NewFromString(c.DeliveryFee)
	if err != nil {
		return cart.Rates{}, errors.Wrap(err, "parse delivery fee")
	}
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return cart.Rates{}, errors.Wrap(err, "parse tax rate")
	}
	if fee.IsNegative() || rate.IsNegative() {
		return cart.Rates{}, errors.New("delivery fee and tax rate must not be negative")
	}
	return cart.Rates{DeliveryFee: fee, TaxRate: rate}, nil
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max mutating requests per window"`
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

// LoadConfig loads configuration from environment variables, YAML config
// files and command-line flags, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return load(false)
}

// LoadConfigNoFlags is LoadConfig for tools that parse their own flags.
func LoadConfigNoFlags() (*Config, error) {
	return load(true)
}

func load(skipFlags bool) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "KART",
		SkipFlags: skipFlags,
		Files:     []string{"config.yaml", "/etc/kart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverFile:
		if c.Storage.Dir == "" {
			return errors.New("storage dir is required for the file backend")
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("database URL is required: set KART_STORAGE_DATABASE_URL or DATABASE_URL")
		}
	case DriverMemory:
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if _, err := c.Checkout.Rates(); err != nil {
		return err
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
