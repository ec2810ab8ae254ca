package httpclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/zayana/storefront/pkg/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func send(ctx context.Context, d Doer, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	return d.Do(ctx, req)
}

func fastConfig(retries int) Config {
	return Config{
		Timeout:         2 * time.Second,
		MaxRetries:      retries,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    5 * time.Millisecond,
		MaxConnsPerHost: 4,
	}
}

func TestClient_RetriesServerErrorsAndResendsBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"x":1}`, string(body))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(fastConfig(2))
	resp, err := send(context.Background(), c, http.MethodPost, srv.URL, strings.NewReader(`{"x":1}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_ReturnsLastServerErrorResponse(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	resp, err := send(context.Background(), New(fastConfig(1)), http.MethodGet, srv.URL, http.NoBody)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.EqualValues(t, 2, calls.Load())
}

func TestClient_DoesNotRetryClientErrorsOr501(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotImplemented} {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(status)
		}))

		resp, err := send(context.Background(), New(fastConfig(3)), http.MethodGet, srv.URL, http.NoBody)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, status, resp.StatusCode)
		assert.EqualValues(t, 1, calls.Load())
		srv.Close()
	}
}

func TestClient_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := send(ctx, New(fastConfig(3)), http.MethodGet, srv.URL, http.NoBody)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(context.Canceled))
	assert.False(t, isRetryableError(errors.New("plain")))
}

func breakerConfig(name string) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig(name)
	cfg.MinRequests = 3
	cfg.Timeout = 50 * time.Millisecond
	return cfg
}

func TestCircuitBreaker_TripsAndRecovers(t *testing.T) {
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	cb := NewCircuitBreakerClient(New(fastConfig(0)), breakerConfig("trip"), testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := send(ctx, cb, http.MethodPost, srv.URL, strings.NewReader("x"))
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusInternalServerError, se.Status)
		assert.Equal(t, "boom", se.Body)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := send(ctx, cb, http.MethodPost, srv.URL, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrCircuitOpen)

	healthy.Store(true)
	time.Sleep(80 * time.Millisecond)

	resp, err := send(ctx, cb, http.MethodPost, srv.URL, strings.NewReader("x"))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_Check(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cb := NewCircuitBreakerClient(New(fastConfig(0)), breakerConfig("check"), testLogger())
	require.NoError(t, cb.Check(context.Background()))

	for i := 0; i < 3; i++ {
		_, _ = send(context.Background(), cb, http.MethodPost, srv.URL, http.NoBody)
	}
	err := cb.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check")
	assert.Contains(t, err.Error(), "open")
}

func errorResponse(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestParseResponseError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		contains string
	}{
		{
			name:     "graph api auth error",
			status:   http.StatusUnauthorized,
			body:     `{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`,
			sentinel: apperrors.ErrUnauthorized,
			contains: "(190)",
		},
		{
			name:     "envelope with string code",
			status:   http.StatusBadRequest,
			body:     `{"error":{"code":"INVALID_INPUT","message":"bad phone"}}`,
			sentinel: apperrors.ErrInvalidInput,
			contains: "bad phone",
		},
		{
			name:     "unstructured unavailable",
			status:   http.StatusServiceUnavailable,
			body:     "try later",
			sentinel: apperrors.ErrUnavailable,
			contains: "try later",
		},
		{
			name:     "not found",
			status:   http.StatusNotFound,
			body:     `{"error":{"message":"no such phone"}}`,
			sentinel: apperrors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseResponseError(errorResponse(tt.status, tt.body), "whatsapp")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestParseResponseError_UnmappedStatus(t *testing.T) {
	err := ParseResponseError(errorResponse(http.StatusTooManyRequests, "slow down"), "whatsapp")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Status)
	assert.Equal(t, "whatsapp: slow down", se.Body)
}
