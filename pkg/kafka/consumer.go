package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"github.com/zayana/storefront/pkg/logger"
)

// maxAttempts bounds handler retries before a message is committed and skipped.
const maxAttempts = 3

// Handler processes one decoded event.
type Handler func(ctx context.Context, event *Event) error

// ConsumerConfig is embedded in service configs with envPrefix:"KAFKA_".
type ConsumerConfig struct {
	Brokers  []string `env:"BROKERS" envDefault:"localhost:9092" envSeparator:","`
	GroupID  string   `env:"GROUP_ID" envDefault:"zayana-relay"`
	MinBytes int      `env:"MIN_BYTES" envDefault:"1"`
	MaxBytes int      `env:"MAX_BYTES" envDefault:"1048576"`
}

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic in a consumer group and commits each message
// after its handler returns.
type Consumer struct {
	r         reader
	topic     string
	group     string
	handler   Handler
	logger    *slog.Logger
	backoff   time.Duration
	closeOnce sync.Once
}

func NewConsumer(cfg ConsumerConfig, topic string, handler Handler, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})
	return newConsumer(r, topic, cfg.GroupID, handler, logger)
}

func newConsumer(r reader, topic, group string, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		r:       r,
		topic:   topic,
		group:   group,
		handler: handler,
		logger:  logger.With(slog.String("topic", topic), slog.String("group", group)),
		backoff: 200 * time.Millisecond,
	}
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer func() {
		if err := c.Close(); err != nil {
			c.logger.Warn("consumer close failed", slog.String("error", err.Error()))
		}
	}()

	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("consumer stopped")
				return nil
			}
			c.logger.Error("fetch message failed", slog.String("error", err.Error()))
			if sleep(ctx, c.backoff) != nil {
				return nil
			}
			continue
		}
		consumerReceived.WithLabelValues(c.topic, c.group).Inc()
		c.process(ctx, msg)
		if err := c.r.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}

// process runs the handler with retries. Undecodable and poison messages are
// logged and counted; the caller commits them either way.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		consumerFailed.WithLabelValues(c.topic, c.group).Inc()
		c.logger.Error("dropping undecodable message",
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		return
	}

	headers := msg.Headers
	ctx = otel.GetTextMapPropagator().Extract(ctx, headerCarrier{headers: &headers})
	if event.CorrelationID != "" {
		ctx = logger.WithCorrelationID(ctx, event.CorrelationID)
	}
	ctx = withLabels(ctx, c.topic, c.group)

	began := time.Now()
	defer func() {
		consumerDuration.WithLabelValues(c.topic, c.group).Observe(time.Since(began).Seconds())
	}()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = c.handler(ctx, event)
		if err == nil {
			consumerProcessed.WithLabelValues(c.topic, c.group).Inc()
			return
		}
		c.logger.WarnContext(ctx, "handler failed",
			slog.String("event_id", event.EventID),
			slog.String("event_type", event.EventType),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		if attempt < maxAttempts && sleep(ctx, time.Duration(attempt)*c.backoff) != nil {
			return
		}
	}

	consumerFailed.WithLabelValues(c.topic, c.group).Inc()
	c.logger.ErrorContext(ctx, "giving up on message",
		slog.String("event_id", event.EventID),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
		slog.String("error", err.Error()),
	)
}

// Close is safe to call more than once.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.r.Close() })
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type labelsKey struct{}

type labels struct{ topic, group string }

func withLabels(ctx context.Context, topic, group string) context.Context {
	return context.WithValue(ctx, labelsKey{}, labels{topic: topic, group: group})
}

func labelsFrom(ctx context.Context) labels {
	if l, ok := ctx.Value(labelsKey{}).(labels); ok {
		return l
	}
	return labels{topic: "unknown", group: "unknown"}
}
