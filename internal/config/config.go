package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/rl1809/shopzone/internal/core/pricing"
)

type Config struct {
	AppEnv   string `env:"APP_ENV"   envDefault:"dev"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"GRPC_ADDR" envDefault:":50051"`

	RedisAddr     string        `env:"REDIS_ADDR"      envDefault:"localhost:6379"`
	RedisPoolSize int           `env:"REDIS_POOL_SIZE" envDefault:"100"`
	StateTTL      time.Duration `env:"STATE_TTL"       envDefault:"720h"`

	SessionIdleTTL       time.Duration `env:"SESSION_IDLE_TTL"       envDefault:"30m"`
	SessionEvictInterval time.Duration `env:"SESSION_EVICT_INTERVAL" envDefault:"1m"`

	// MySQLDSN enables order history when set.
	MySQLDSN string `env:"MYSQL_DSN"`

	CatalogBaseURL       string        `env:"CATALOG_BASE_URL"       envDefault:"https://fakestoreapi.com"`
	CatalogFetchTimeout  time.Duration `env:"CATALOG_FETCH_TIMEOUT"  envDefault:"5s"`
	CatalogMaxConcurrent int           `env:"CATALOG_MAX_CONCURRENT" envDefault:"10"`

	PaymentSuccessRate float64       `env:"PAYMENT_SUCCESS_RATE" envDefault:"0.9"`
	PaymentDelay       time.Duration `env:"PAYMENT_DELAY"        envDefault:"2s"`

	FreeShippingThreshold string `env:"FREE_SHIPPING_THRESHOLD" envDefault:"50.00"`
	FlatShippingFee       string `env:"FLAT_SHIPPING_FEE"       envDefault:"5.99"`
	TaxRate               string `env:"TAX_RATE"                envDefault:"0.08"`
}

// LoadDotEnv exports the variables of the given .env files (default ".env")
// that are not already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.PaymentSuccessRate < 0 || cfg.PaymentSuccessRate > 1 {
		return Config{}, fmt.Errorf("PAYMENT_SUCCESS_RATE must be within [0,1], got %v", cfg.PaymentSuccessRate)
	}
	if _, err := cfg.Pricing(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Pricing() (pricing.Config, error) {
	threshold, err := decimal.NewFromString(c.FreeShippingThreshold)
	if err != nil {
		return pricing.Config{}, fmt.Errorf("FREE_SHIPPING_THRESHOLD: %w", err)
	}
	fee, err := decimal.NewFromString(c.FlatShippingFee)
	if err != nil {
		return pricing.Config{}, fmt.Errorf("FLAT_SHIPPING_FEE: %w", err)
	}
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return pricing.Config{}, fmt.Errorf("TAX_RATE: %w", err)
	}
	if threshold.IsNegative() || fee.IsNegative() || rate.IsNegative() {
		return pricing.Config{}, fmt.Errorf("pricing values must not be negative")
	}
	return pricing.Config{
		FreeShippingThreshold: threshold,
		FlatShippingFee:       fee,
		TaxRate:               rate,
	}, nil
}
