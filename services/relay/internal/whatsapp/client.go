// Package whatsapp sends text messages through the WhatsApp Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/zayana/storefront/pkg/httpclient"
)

const upstream = "whatsapp"

// Config is embedded in the relay config with envPrefix:"WHATSAPP_".
type Config struct {
	Token         string `env:"TOKEN"`
	PhoneNumberID string `env:"PHONE_NUMBER_ID"`
	APIBaseURL    string `env:"API_BASE_URL" envDefault:"https://graph.facebook.com/v18.0"`
	VerifyToken   string `env:"VERIFY_TOKEN"`
}

// Configured reports whether messages can be sent at all.
func (c Config) Configured() bool {
	return c.Token != "" && c.PhoneNumberID != ""
}

type textBody struct {
	Body string `json:"body"`
}

type messageRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

// Client posts to {base}/{phone-number-id}/messages with a bearer token.
type Client struct {
	http     httpclient.Doer
	endpoint string
	token    string
}

// NewTransport builds the Doer used for delivery: one attempt per message
// behind a circuit breaker. A message POST is not idempotent, so MaxRetries
// from the HTTP client config is ignored.
func NewTransport(cfg httpclient.Config, breaker httpclient.CircuitBreakerConfig, logger *slog.Logger) *httpclient.CircuitBreakerClient {
	cfg.MaxRetries = 0
	return httpclient.NewCircuitBreakerClient(httpclient.New(cfg), breaker, logger)
}

func NewClient(cfg Config, doer httpclient.Doer) *Client {
	return &Client{
		http:     doer,
		endpoint: strings.TrimRight(cfg.APIBaseURL, "/") + "/" + cfg.PhoneNumberID + "/messages",
		token:    cfg.Token,
	}
}

// SendText delivers body to the recipient. A non-2xx reply is returned as an
// error carrying the provider's error message.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(messageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: body},
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, upstream)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return nil
}
