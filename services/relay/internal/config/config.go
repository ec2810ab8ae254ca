package config

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	pkgconfig "github.com/zayana/storefront/pkg/config"
	"github.com/zayana/storefront/pkg/database"
	"github.com/zayana/storefront/pkg/httpclient"
	pkgkafka "github.com/zayana/storefront/pkg/kafka"
	"github.com/zayana/storefront/pkg/middleware"
	"github.com/zayana/storefront/pkg/tracing"
	"github.com/zayana/storefront/services/relay/internal/whatsapp"
)

// Config holds all configuration for the order notification relay.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	HTTPPort int `env:"RELAY_HTTP_PORT" envDefault:"8081"`

	Postgres   database.PostgresConfig         `envPrefix:"POSTGRES_"`
	Redis      database.RedisConfig            `envPrefix:"REDIS_"`
	Kafka      pkgkafka.ConsumerConfig         `envPrefix:"KAFKA_"`
	Tracing    tracing.Config                  `envPrefix:"OTEL_"`
	Limit      middleware.RateLimitConfig      `envPrefix:"RATE_LIMIT_"`
	WhatsApp   whatsapp.Config                 `envPrefix:"WHATSAPP_"`
	HTTPClient httpclient.Config               `envPrefix:"HTTP_CLIENT_"`
	Breaker    httpclient.CircuitBreakerConfig `envPrefix:"BREAKER_"`

	// AdminPhoneNumber receives the order notifications.
	AdminPhoneNumber string `env:"ADMIN_PHONE_NUMBER"`

	// WebhookSecret, when set, must accompany database webhook calls.
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	ConsumeEvents   bool          `env:"RELAY_CONSUME_EVENTS" envDefault:"true"`
	EventDedupeTTL  time.Duration `env:"EVENT_DEDUPE_TTL" envDefault:"24h"`
	ProductCacheTTL time.Duration `env:"PRODUCT_CACHE_TTL" envDefault:"5m"`
	NotifyTimeout   time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`
	MessageTimezone string        `env:"MESSAGE_TIMEZONE" envDefault:"UTC"`

	SlowQueryThreshold time.Duration `env:"LOG_SLOW_QUERY" envDefault:"500ms"`

	location *time.Location
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load relay config: %w", err)
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
	if c.ConsumeEvents && len(c.Kafka.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when RELAY_CONSUME_EVENTS is set")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.Tracing.SampleRate)
	}
	if c.NotifyTimeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be positive, got %s", c.NotifyTimeout)
	}
	if c.WhatsApp.APIBaseURL == "" {
		return errors.New("WHATSAPP_API_BASE_URL is required")
	}
	loc, err := time.LoadLocation(c.MessageTimezone)
	if err != nil {
		return fmt.Errorf("MESSAGE_TIMEZONE: %w", err)
	}
	c.location = loc
	if c.Breaker.Name == "" {
		c.Breaker.Name = "whatsapp"
	}
	return nil
}

// Location is MESSAGE_TIMEZONE, resolved by Load.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// DeliveryConfigured reports whether notifications can be delivered. The
// relay still runs without it and only logs.
func (c *Config) DeliveryConfigured() bool {
	return c.WhatsApp.Configured() && c.AdminPhoneNumber != ""
}
