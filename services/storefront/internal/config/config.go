package config

import (
	"errors"
	"fmt"
	"time"

	pkgconfig "github.com/zayana/storefront/pkg/config"
	"github.com/zayana/storefront/pkg/database"
	pkgkafka "github.com/zayana/storefront/pkg/kafka"
	"github.com/zayana/storefront/pkg/middleware"
	"github.com/zayana/storefront/pkg/tracing"
	"github.com/zayana/storefront/services/storefront/internal/event"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`

	Postgres database.PostgresConfig    `envPrefix:"POSTGRES_"`
	Redis    database.RedisConfig       `envPrefix:"REDIS_"`
	Kafka    pkgkafka.ProducerConfig    `envPrefix:"KAFKA_"`
	Tracing  tracing.Config             `envPrefix:"OTEL_"`
	CORS     middleware.CORSConfig      `envPrefix:"CORS_"`
	Limit    middleware.RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Outbox   event.OutboxConfig         `envPrefix:"OUTBOX_"`

	// AdminJWTSecret signs the bearer tokens of the admin API.
	AdminJWTSecret string `env:"ADMIN_JWT_SECRET"`

	CartTTL                time.Duration `env:"CART_TTL" envDefault:"168h"`
	CheckoutTimeoutSeconds int           `env:"CHECKOUT_TIMEOUT_SECONDS" envDefault:"15"`
	FeaturedCount          int           `env:"FEATURED_PRODUCTS" envDefault:"6"`

	SlowQueryThreshold time.Duration `env:"LOG_SLOW_QUERY" envDefault:"500ms"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.Postgres.Host == "" {
		return errors.New("POSTGRES_HOST is required")
	}
	if c.Postgres.User == "" {
		return errors.New("POSTGRES_USER is required")
	}
	if len(c.Kafka.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.Tracing.SampleRate)
	}
	if c.CartTTL <= 0 {
		return fmt.Errorf("CART_TTL must be positive, got %s", c.CartTTL)
	}
	if c.CheckoutTimeoutSeconds <= 0 {
		return fmt.Errorf("CHECKOUT_TIMEOUT_SECONDS must be positive, got %d", c.CheckoutTimeoutSeconds)
	}
	if c.FeaturedCount < 1 {
		return fmt.Errorf("FEATURED_PRODUCTS must be at least 1, got %d", c.FeaturedCount)
	}
	if c.Environment == "production" && len(c.AdminJWTSecret) < 32 {
		return errors.New("ADMIN_JWT_SECRET must be at least 32 bytes in production")
	}
	return nil
}

// CheckoutTimeout is CHECKOUT_TIMEOUT_SECONDS as a duration.
func (c *Config) CheckoutTimeout() time.Duration {
	return time.Duration(c.CheckoutTimeoutSeconds) * time.Second
}
