package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	pkgkafka "github.com/zayana/storefront/pkg/kafka"
	"github.com/zayana/storefront/services/relay/internal/domain"
)

// EventOrderCreated is the event type the storefront outbox publishes.
const EventOrderCreated = "order.created"

// TopicOrderCreated carries one event per persisted order.
var TopicOrderCreated = pkgkafka.Topic("order", "created")

// Notifier is satisfied by *service.NotificationService.
type Notifier interface {
	Notify(ctx context.Context, order domain.OrderRecord) string
}

// ConsumerHandler turns order.created events into notifications.
type ConsumerHandler struct {
	notifier Notifier
	logger   *slog.Logger
}

func NewConsumerHandler(notifier Notifier, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{notifier: notifier, logger: logger}
}

// Handle never returns an error: a notification is attempted once, and a
// payload that does not decode will not decode on a retry either.
func (h *ConsumerHandler) Handle(ctx context.Context, event *pkgkafka.Event) error {
	if event.EventType != EventOrderCreated {
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	var order domain.OrderRecord
	if err := event.Decode(&order); err != nil {
		h.logger.ErrorContext(ctx, "dropping undecodable order event",
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if order.ID == "" {
		order.ID = event.AggregateID
	}

	outcome := h.notifier.Notify(ctx, order)
	h.logger.DebugContext(ctx, "order.created handled",
		slog.String("event_id", event.EventID),
		slog.String("order_id", order.ID),
		slog.String("outcome", outcome),
	)
	return nil
}

// NewConsumer subscribes the handler to TopicOrderCreated. Event ids already
// seen within dedupeTTL are skipped, so an outbox row published twice
// notifies once.
func NewConsumer(cfg pkgkafka.ConsumerConfig, handler *ConsumerHandler, client redis.Cmdable, dedupeTTL time.Duration, logger *slog.Logger) *pkgkafka.Consumer {
	store := pkgkafka.NewRedisIdempotencyStore(client, "zayana-relay:event", dedupeTTL)
	return pkgkafka.NewConsumer(cfg, TopicOrderCreated, pkgkafka.IdempotentHandler(store, handler.Handle, logger), logger)
}
