package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exp
}

func attrs(s tracetest.SpanStub) map[string]string {
	out := make(map[string]string, len(s.Attributes))
	for _, a := range s.Attributes {
		out[string(a.Key)] = a.Value.Emit()
	}
	return out
}

func TestTraceQuery(t *testing.T) {
	exp := recordSpans(t)

	_, end := TraceQuery(context.Background(), "GetProduct", "SELECT id FROM products WHERE id = $1")
	end(nil)

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "db.GetProduct", spans[0].Name)
	a := attrs(spans[0])
	assert.Equal(t, "postgresql", a["db.system"])
	assert.Equal(t, "SELECT id FROM products WHERE id = $1", a["db.statement"])
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
}

func TestTraceRedis_RecordsError(t *testing.T) {
	exp := recordSpans(t)

	_, end := TraceRedis(context.Background(), "LoadCart", "zayana-cart:s1")
	end(errors.New("i/o timeout"))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "redis", attrs(spans[0])["db.system"])
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestSlowQueryLogging(t *testing.T) {
	recordSpans(t)
	var buf bytes.Buffer
	SetSlowQueryLogging(time.Nanosecond, slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	_, end := TraceQuery(context.Background(), "ListOrders", "SELECT 1")
	time.Sleep(time.Millisecond)
	end(nil)

	assert.Contains(t, buf.String(), "slow query detected")
	assert.Contains(t, buf.String(), "ListOrders")
}

func TestSlowQueryLogging_Disabled(t *testing.T) {
	recordSpans(t)
	var buf bytes.Buffer
	SetSlowQueryLogging(0, slog.New(slog.NewJSONHandler(&buf, nil)))

	_, end := TraceQuery(context.Background(), "ListOrders", "SELECT 1")
	end(nil)

	assert.Zero(t, buf.Len())
}
