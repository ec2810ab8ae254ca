// Package service forwards newly inserted orders to the shop owner over
// WhatsApp. Delivery is best effort: failures are logged and counted, never
// returned to the trigger.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apperrors "github.com/zayana/storefront/pkg/errors"
	"github.com/zayana/storefront/pkg/tracing"
	"github.com/zayana/storefront/services/relay/internal/domain"
	"github.com/zayana/storefront/services/relay/internal/repository"
)

// TimestampLayout renders the processing time at the end of a message.
const TimestampLayout = "1/2/2006, 3:04:05 PM"

// DefaultNotifyTimeout bounds one notification.
const DefaultNotifyTimeout = 10 * time.Second

// Sender is satisfied by *whatsapp.Client.
type Sender interface {
	SendText(ctx context.Context, to, body string) error
}

// Outcome labels of zayana_relay_notifications_total.
const (
	OutcomeSent          = "sent"
	OutcomeIgnored       = "ignored"
	OutcomeUnconfigured  = "unconfigured"
	OutcomeLookupFailed  = "lookup_failed"
	OutcomeDeliveryError = "delivery_failed"
)

var notifications = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "zayana",
		Subsystem: "relay",
		Name:      "notifications_total",
		Help:      "Order notifications by outcome.",
	},
	[]string{"outcome"},
)

type NotifyConfig struct {
	// Recipient is the shop owner's number; empty disables delivery.
	Recipient string
	Location  *time.Location
	Timeout   time.Duration
}

// NotificationService turns order inserts into owner messages.
type NotificationService struct {
	products  repository.ProductReader
	sender    Sender
	enabled   bool
	recipient string
	location  *time.Location
	timeout   time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewNotificationService builds the service. A nil sender, as when the WhatsApp credentials are
// missing, disables delivery without disabling the webhook.
func NewNotificationService(products repository.ProductReader, sender Sender, cfg NotifyConfig, logger *slog.Logger) *NotificationService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultNotifyTimeout
	}
	return &NotificationService{
		products:  products,
		sender:    sender,
		enabled:   sender != nil && cfg.Recipient != "",
		recipient: cfg.Recipient,
		location:  cfg.Location,
		timeout:   cfg.Timeout,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "relay")),
	}
}

// HandleInsert processes a database-webhook event. Only order inserts are
// relayed.
func (r *NotificationService) HandleInsert(ctx context.Context, e domain.InsertEvent) string {
	if !e.IsOrderInsert() {
		r.logger.DebugContext(ctx, "ignoring webhook event",
			slog.String("type", e.Type),
			slog.String("table", e.Table),
		)
		notifications.WithLabelValues(OutcomeIgnored).Inc()
		return OutcomeIgnored
	}
	return r.Notify(ctx, e.Record)
}

// Notify sends the new-order message for order and reports the outcome.
func (r *NotificationService) Notify(ctx context.Context, order domain.OrderRecord) string {
	outcome := r.notify(ctx, order)
	notifications.WithLabelValues(outcome).Inc()
	return outcome
}

func (r *NotificationService) notify(ctx context.Context, order domain.OrderRecord) string {
	ctx, span := tracing.Tracer("github.com/zayana/storefront/services/relay/service").Start(ctx, "notification.Notify")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("product.id", order.ProductID),
	)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	log := r.logger.With(slog.String("order_id", order.ID), slog.String("product_id", order.ProductID))

	product, err := r.products.GetByID(ctx, order.ProductID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "product lookup failed")
		if errors.Is(err, apperrors.ErrNotFound) {
			log.WarnContext(ctx, "ordered product not found, notification skipped")
		} else {
			log.ErrorContext(ctx, "product lookup failed, notification skipped", slog.String("error", err.Error()))
		}
		return OutcomeLookupFailed
	}

	if !r.enabled {
		log.DebugContext(ctx, "whatsapp not configured, notification skipped")
		return OutcomeUnconfigured
	}

	msg := FormatMessage(order, *product, r.now().In(r.location))
	if err := r.sender.SendText(ctx, r.recipient, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
		log.ErrorContext(ctx, "whatsapp delivery failed", slog.String("error", err.Error()))
		return OutcomeDeliveryError
	}

	log.InfoContext(ctx, "order notification sent")
	return OutcomeSent
}

// FormatMessage renders the owner notification for order.
func FormatMessage(order domain.OrderRecord, product domain.Product, at time.Time) string {
	var b strings.Builder
	b.WriteString("📦 New Zayana Order!\n\n")
	fmt.Fprintf(&b, "Name: %s\n", order.Name)
	fmt.Fprintf(&b, "Product: %s\n", product.NameEN)
	fmt.Fprintf(&b, "Quantity: %d\n", order.Quantity)
	fmt.Fprintf(&b, "Phone: %s\n", order.Phone)
	fmt.Fprintf(&b, "Address: %s\n\n", order.Address)
	fmt.Fprintf(&b, "Order ID: %s\n", order.ID)
	fmt.Fprintf(&b, "Total: $%s\n\n", product.Total(order.Quantity).StringFixed(2))
	fmt.Fprintf(&b, "🕐 %s", at.Format(TimestampLayout))
	return b.String()
}
