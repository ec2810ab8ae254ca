package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.HTTPPort)
	assert.Equal(t, "zayana-relay", cfg.Kafka.GroupID)
	assert.Equal(t, "https://graph.facebook.com/v18.0", cfg.WhatsApp.APIBaseURL)
	assert.Equal(t, "whatsapp", cfg.Breaker.Name)
	assert.Equal(t, 5*time.Minute, cfg.ProductCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.EventDedupeTTL)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.True(t, cfg.ConsumeEvents)
	assert.False(t, cfg.DeliveryConfigured())
}

func TestLoad_WhatsAppSettings(t *testing.T) {
	t.Setenv("WHATSAPP_TOKEN", "EAAG-token")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "1055")
	t.Setenv("WHATSAPP_VERIFY_TOKEN", "verify-me")
	t.Setenv("ADMIN_PHONE_NUMBER", "+201111111111")
	t.Setenv("MESSAGE_TIMEZONE", "Africa/Cairo")
	t.Setenv("BREAKER_MIN_REQUESTS", "3")
	t.Setenv("HTTP_CLIENT_MAX_RETRIES", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "EAAG-token", cfg.WhatsApp.Token)
	assert.Equal(t, "1055", cfg.WhatsApp.PhoneNumberID)
	assert.Equal(t, "verify-me", cfg.WhatsApp.VerifyToken)
	assert.True(t, cfg.DeliveryConfigured())
	assert.Equal(t, "Africa/Cairo", cfg.Location().String())
	assert.Equal(t, uint32(3), cfg.Breaker.MinRequests)
	assert.Zero(t, cfg.HTTPClient.MaxRetries)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"port out of range", "RELAY_HTTP_PORT", "0", "invalid HTTP port"},
		{"sample rate", "OTEL_SAMPLE_RATE", "-0.1", "OTEL_SAMPLE_RATE"},
		{"timezone", "MESSAGE_TIMEZONE", "Mars/Olympus", "MESSAGE_TIMEZONE"},
		{"notify timeout", "NOTIFY_TIMEOUT", "0s", "NOTIFY_TIMEOUT"},
		{"unparsable", "RELAY_CONSUME_EVENTS", "maybe", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_EventsDisabledNeedNoBrokers(t *testing.T) {
	t.Setenv("RELAY_CONSUME_EVENTS", "false")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.ConsumeEvents)
}
