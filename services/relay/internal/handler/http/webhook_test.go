package http

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/zayana/storefront/pkg/health"
	"github.com/zayana/storefront/pkg/middleware"
	"github.com/zayana/storefront/services/relay/internal/domain"
)

const verifyToken = "zayana-verify-1158"

type mockInsertHandler struct {
	mock.Mock
}

func (m *mockInsertHandler) HandleInsert(ctx context.Context, e domain.InsertEvent) string {
	return m.Called(ctx, e).String(0)
}

func newTestRouter(t *testing.T, relay InsertHandler, verify, secret string) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewRouter(ctx, NewWebhookHandler(relay, verify, secret, logger), health.NewHandler(),
		middleware.RateLimitConfig{Enabled: false}, logger)
}

func verifyRequest(mode, token, challenge string) *http.Request {
	q := url.Values{}
	q.Set("hub.mode", mode)
	q.Set("hub.verify_token", token)
	q.Set("hub.challenge", challenge)
	return httptest.NewRequest(http.MethodGet, "/api/webhook/whatsapp?"+q.Encode(), nil)
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		mode       string
		token      string
		wantStatus int
		wantBody   string
	}{
		{"matching token", verifyToken, "subscribe", verifyToken, http.StatusOK, "1158201444"},
		{"wrong token", verifyToken, "subscribe", "nope", http.StatusForbidden, "Forbidden"},
		{"wrong mode", verifyToken, "unsubscribe", verifyToken, http.StatusForbidden, "Forbidden"},
		{"wrong token and mode", verifyToken, "unsubscribe", "nope", http.StatusForbidden, "Forbidden"},
		{"empty secret never matches", "", "subscribe", "", http.StatusForbidden, "Forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, new(mockInsertHandler), tt.configured, "")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, verifyRequest(tt.mode, tt.token, "1158201444"))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
		})
	}
}

func TestOrderInserted_AcknowledgesAndRelays(t *testing.T) {
	relay := new(mockInsertHandler)
	relay.On("HandleInsert", mock.Anything, mock.MatchedBy(func(e domain.InsertEvent) bool {
		return e.IsOrderInsert() && e.Record.ID == "o-1" && e.Record.Quantity == 2
	})).Return("sent").Once()

	body := `{"type":"INSERT","table":"orders","record":{"id":"o-1","product_id":"p-1","quantity":2}}`
	rec := httptest.NewRecorder()
	newTestRouter(t, relay, verifyToken, "").ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/api/webhook/orders", bytes.NewBufferString(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	relay.AssertExpectations(t)
}

func TestOrderInserted_FailedDeliveryStillSucceeds(t *testing.T) {
	relay := new(mockInsertHandler)
	relay.On("HandleInsert", mock.Anything, mock.Anything).Return("delivery_failed").Once()

	rec := httptest.NewRecorder()
	newTestRouter(t, relay, verifyToken, "").ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/api/webhook/orders", bytes.NewBufferString(`{"type":"UPDATE","table":"orders"}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestOrderInserted_MalformedJSON(t *testing.T) {
	relay := new(mockInsertHandler)

	rec := httptest.NewRecorder()
	newTestRouter(t, relay, verifyToken, "").ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/api/webhook/orders", bytes.NewBufferString(`{"type":`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
	relay.AssertNotCalled(t, "HandleInsert", mock.Anything, mock.Anything)
}

func TestOrderInserted_SharedSecret(t *testing.T) {
	relay := new(mockInsertHandler)
	relay.On("HandleInsert", mock.Anything, mock.Anything).Return("sent").Once()
	router := newTestRouter(t, relay, verifyToken, "hook-secret")

	req := httptest.NewRequest(http.MethodPost, "/api/webhook/orders", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/webhook/orders", bytes.NewBufferString(`{}`))
	req.Header.Set(SecretHeader, "hook-secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	relay.AssertExpectations(t)
}

func TestHealthLive(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t, new(mockInsertHandler), verifyToken, "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
