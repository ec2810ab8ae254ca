// Package event drains order_outbox onto Kafka.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	pkgkafka "github.com/zayana/storefront/pkg/kafka"
	"github.com/zayana/storefront/services/storefront/internal/domain"
	"github.com/zayana/storefront/services/storefront/internal/repository"
)

// OutboxConfig is embedded in the storefront config with envPrefix:"OUTBOX_".
type OutboxConfig struct {
	Interval  time.Duration `env:"INTERVAL" envDefault:"1s"`
	BatchSize int           `env:"BATCH_SIZE" envDefault:"100"`

	// MaxAttempts is how many failed publishes park a row.
	MaxAttempts int `env:"MAX_ATTEMPTS" envDefault:"5"`
}

// errInvalidPayload marks a row no retry can publish; it is parked at once.
var errInvalidPayload = errors.New("invalid outbox payload")

// EventPublisher is satisfied by *pkgkafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// eventNamespace seeds the deterministic event ids, so a row published twice
// carries the same id and is dropped by idempotent consumers.
var eventNamespace = uuid.MustParse("7b0c9d1e-5c43-4f7e-9a8e-3d1f2b6a9c10")

var (
	published = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "zayana",
		Subsystem: "outbox",
		Name:      "published_total",
		Help:      "Outbox rows published to Kafka.",
	})

	publishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "zayana",
		Subsystem: "outbox",
		Name:      "publish_errors_total",
		Help:      "Outbox publish or bookkeeping failures.",
	})

	parked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "zayana",
		Subsystem: "outbox",
		Name:      "parked_total",
		Help:      "Outbox rows given up on after repeated or permanent failures.",
	})
)

// OutboxPublisher polls the outbox and publishes pending rows in id order.
// Delivery is at least once: a row is marked only after Kafka acknowledged it.
type OutboxPublisher struct {
	repo        repository.OutboxRepository
	producer    EventPublisher
	topic       string
	interval    time.Duration
	batchSize   int
	maxAttempts int
	logger      *slog.Logger
}

func NewOutboxPublisher(repo repository.OutboxRepository, producer EventPublisher, cfg OutboxConfig, logger *slog.Logger) *OutboxPublisher {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &OutboxPublisher{
		repo:        repo,
		producer:    producer,
		topic:       pkgkafka.Topic("order", "created"),
		interval:    cfg.Interval,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
		logger:      logger.With(slog.String("component", "outbox")),
	}
}

// Run polls until ctx is cancelled.
func (p *OutboxPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("outbox publisher started",
		slog.String("topic", p.topic),
		slog.Duration("interval", p.interval),
	)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox publisher stopped")
			return
		case <-ticker.C:
			if _, err := p.Flush(ctx); err != nil && ctx.Err() == nil {
				publishErrors.Inc()
				p.logger.Error("outbox flush failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Flush publishes one batch and reports how many rows were marked. A publish
// failure counts an attempt against the row and stops the batch, so rows
// never overtake older ones. Once a row is parked, later rows move past it.
func (p *OutboxPublisher) Flush(ctx context.Context) (int, error) {
	pending, err := p.repo.FetchPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch pending: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	done := make([]int64, 0, len(pending))
	var publishErr error
	for i := range pending {
		row := &pending[i]
		err := p.publish(ctx, row)
		if err == nil {
			done = append(done, row.ID)
			continue
		}
		publishErr = fmt.Errorf("publish outbox row %d: %w", row.ID, err)
		if ctx.Err() != nil {
			break
		}
		skip, recErr := p.recordFailure(ctx, row, err)
		if recErr != nil {
			publishErr = errors.Join(publishErr, recErr)
			break
		}
		if !skip {
			break
		}
		publishErr = nil
	}

	if len(done) > 0 {
		if err := p.repo.MarkPublished(ctx, done); err != nil {
			return 0, fmt.Errorf("mark published: %w", err)
		}
		published.Add(float64(len(done)))
		p.logger.Debug("outbox rows published", slog.Int("count", len(done)))
	}
	return len(done), publishErr
}

// recordFailure counts the failed attempt and reports whether the row was
// parked.
func (p *OutboxPublisher) recordFailure(ctx context.Context, row *domain.OutboxEvent, cause error) (bool, error) {
	limit := p.maxAttempts
	if errors.Is(cause, errInvalidPayload) {
		limit = 1
	}
	attempts, isParked, err := p.repo.RecordFailure(ctx, row.ID, cause.Error(), limit)
	if err != nil {
		return false, fmt.Errorf("record outbox failure: %w", err)
	}
	if !isParked {
		p.logger.Warn("outbox publish failed, will retry",
			slog.Int64("outbox_id", row.ID),
			slog.Int("attempts", attempts),
			slog.String("error", cause.Error()),
		)
		return false, nil
	}
	parked.Inc()
	p.logger.Error("outbox row parked",
		slog.Int64("outbox_id", row.ID),
		slog.String("aggregate_id", row.AggregateID),
		slog.Int("attempts", attempts),
		slog.String("error", cause.Error()),
	)
	return true, nil
}

func (p *OutboxPublisher) publish(ctx context.Context, row *domain.OutboxEvent) error {
	if !json.Valid(row.Payload) {
		return fmt.Errorf("%w: payload is not valid JSON", errInvalidPayload)
	}
	event, err := pkgkafka.NewEvent(row.EventType, "order", row.AggregateID, "storefront", json.RawMessage(row.Payload))
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidPayload, err)
	}
	event.EventID = EventID(row.ID)
	event.OccurredAt = row.CreatedAt.UTC()
	event.WithMetadata("outbox_id", fmt.Sprintf("%d", row.ID))
	return p.producer.Publish(ctx, p.topic, event)
}

// EventID derives the event id of an outbox row.
func EventID(rowID int64) string {
	return uuid.NewSHA1(eventNamespace, []byte(fmt.Sprintf("order_outbox:%d", rowID))).String()
}
