package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconfig "github.com/zayana/storefront/pkg/config"
	apperrors "github.com/zayana/storefront/pkg/errors"
	"github.com/zayana/storefront/pkg/httpclient"
)

func fastClient() *httpclient.Client {
	return httpclient.New(httpclient.Config{
		Timeout:         2 * time.Second,
		MaxRetries:      1,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    2 * time.Millisecond,
		MaxConnsPerHost: 2,
	})
}

func TestSendText_RequestShape(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody messageRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"messages":[{"id":"wamid.1"}]}`)
	}))
	defer srv.Close()

	c := NewClient(Config{Token: "tok", PhoneNumberID: "1055", APIBaseURL: srv.URL + "/v18.0/"}, fastClient())
	require.NoError(t, c.SendText(context.Background(), "+201000000000", "hello"))

	assert.Equal(t, "/v18.0/1055/messages", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, messageRequest{
		MessagingProduct: "whatsapp",
		To:               "+201000000000",
		Type:             "text",
		Text:             textBody{Body: "hello"},
	}, gotBody)
}

func TestSendText_ProviderErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`)
	}))
	defer srv.Close()

	c := NewClient(Config{Token: "bad", PhoneNumberID: "1055", APIBaseURL: srv.URL}, fastClient())
	err := c.SendText(context.Background(), "+20", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Contains(t, err.Error(), "Invalid OAuth access token.")
}

func TestSendText_ServerErrorsTripBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := httpclient.DefaultCircuitBreakerConfig("whatsapp-test")
	cfg.MinRequests = 2
	breaker := httpclient.NewCircuitBreakerClient(httpclient.New(httpclient.Config{
		Timeout: time.Second, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond, MaxConnsPerHost: 2,
	}), cfg, logger)
	c := NewClient(Config{Token: "t", PhoneNumberID: "1", APIBaseURL: srv.URL}, breaker)

	for i := 0; i < 2; i++ {
		err := c.SendText(context.Background(), "+20", "hi")
		var se *httpclient.StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusInternalServerError, se.Status)
	}

	err := c.SendText(context.Background(), "+20", "hi")
	assert.ErrorIs(t, err, httpclient.ErrCircuitOpen)
	assert.Equal(t, int32(2), hits.Load())
}

func TestNewTransport_SendsOnceWithDefaultConfig(t *testing.T) {
	var cfg struct {
		HTTPClient httpclient.Config               `envPrefix:"HTTP_CLIENT_"`
		Breaker    httpclient.CircuitBreakerConfig `envPrefix:"BREAKER_"`
	}
	require.NoError(t, pkgconfig.Load(&cfg))
	require.Positive(t, cfg.HTTPClient.MaxRetries)
	cfg.Breaker.Name = "whatsapp-once"

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewClient(Config{Token: "t", PhoneNumberID: "1", APIBaseURL: srv.URL}, NewTransport(cfg.HTTPClient, cfg.Breaker, logger))

	err := c.SendText(context.Background(), "+20", "hi")
	var se *httpclient.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Status)
	assert.Equal(t, int32(1), hits.Load())
}

func TestConfig_Configured(t *testing.T) {
	assert.False(t, Config{}.Configured())
	assert.False(t, Config{Token: "t"}.Configured())
	assert.True(t, Config{Token: "t", PhoneNumberID: "1"}.Configured())
}
