package event

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	pkgkafka "github.com/zayana/storefront/pkg/kafka"
	"github.com/zayana/storefront/services/relay/internal/domain"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, order domain.OrderRecord) string {
	return m.Called(ctx, order).String(0)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func orderEvent(t *testing.T, id string, data any) *pkgkafka.Event {
	t.Helper()
	e, err := pkgkafka.NewEvent(EventOrderCreated, "order", "o-1", "storefront", data)
	require.NoError(t, err)
	e.EventID = id
	return e
}

func TestHandle_DecodesOrderAndNotifies(t *testing.T) {
	n := new(mockNotifier)
	n.On("Notify", mock.Anything, mock.MatchedBy(func(o domain.OrderRecord) bool {
		return o.ID == "o-1" && o.ProductID == "p-1" && o.Quantity == 2 && o.Name == "Mona"
	})).Return("sent").Once()

	payload := map[string]any{"id": "o-1", "name": "Mona", "phone": "+20", "address": "Cairo", "product_id": "p-1", "quantity": 2}
	err := NewConsumerHandler(n, quietLogger()).Handle(context.Background(), orderEvent(t, "e-1", payload))
	require.NoError(t, err)
	n.AssertExpectations(t)
}

func TestHandle_FallsBackToAggregateID(t *testing.T) {
	n := new(mockNotifier)
	n.On("Notify", mock.Anything, mock.MatchedBy(func(o domain.OrderRecord) bool { return o.ID == "o-1" })).
		Return("sent").Once()

	err := NewConsumerHandler(n, quietLogger()).Handle(context.Background(), orderEvent(t, "e-1", map[string]any{"product_id": "p-1"}))
	require.NoError(t, err)
	n.AssertExpectations(t)
}

func TestHandle_UndecodablePayloadIsDropped(t *testing.T) {
	n := new(mockNotifier)
	e := orderEvent(t, "e-1", nil)
	e.Data = json.RawMessage(`"not an object"`)

	require.NoError(t, NewConsumerHandler(n, quietLogger()).Handle(context.Background(), e))
	n.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestHandle_IgnoresOtherEventTypes(t *testing.T) {
	n := new(mockNotifier)
	e := orderEvent(t, "e-1", map[string]any{})
	e.EventType = "order.deleted"

	require.NoError(t, NewConsumerHandler(n, quietLogger()).Handle(context.Background(), e))
	n.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestHandle_RepublishedEventNotifiesOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	n := new(mockNotifier)
	n.On("Notify", mock.Anything, mock.Anything).Return("sent").Once()

	store := pkgkafka.NewRedisIdempotencyStore(client, "zayana-relay:event", time.Hour)
	handle := pkgkafka.IdempotentHandler(store, NewConsumerHandler(n, quietLogger()).Handle, quietLogger())

	payload := map[string]any{"id": "o-1", "product_id": "p-1", "quantity": 1}
	for i := 0; i < 2; i++ {
		require.NoError(t, handle(context.Background(), orderEvent(t, "evt-42", payload)))
	}
	n.AssertNumberOfCalls(t, "Notify", 1)
	assert.True(t, mr.Exists("zayana-relay:event:evt-42"))
}

func TestTopicOrderCreated(t *testing.T) {
	assert.Equal(t, "zayana.order.created", TopicOrderCreated)
}
