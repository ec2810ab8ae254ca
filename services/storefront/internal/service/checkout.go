package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apperrors "github.com/zayana/storefront/pkg/errors"
	"github.com/zayana/storefront/pkg/tracing"
	"github.com/zayana/storefront/pkg/validator"
	"github.com/zayana/storefront/services/storefront/internal/domain"
)

// DefaultCheckoutTimeout bounds one submission when the config leaves it unset.
const DefaultCheckoutTimeout = 15 * time.Second

// OrderCreator persists one order. repository.OrderRepository satisfies it.
type OrderCreator interface {
	CreateOrder(ctx context.Context, in domain.NewOrder) (*domain.Order, error)
}

// CheckoutForm is the customer's delivery details.
type CheckoutForm struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required"`
	Notes   string `json:"notes"`
}

func (f CheckoutForm) trimmed() CheckoutForm {
	return CheckoutForm{
		Name:    strings.TrimSpace(f.Name),
		Phone:   strings.TrimSpace(f.Phone),
		Address: strings.TrimSpace(f.Address),
		Notes:   strings.TrimSpace(f.Notes),
	}
}

// CheckoutResult identifies the orders of a successful submission. OrderID is the
// order of the first cart line and serves as the confirmation reference.
type CheckoutResult struct {
	OrderID    string   `json:"order_id"`
	OrderIDs   []string `json:"order_ids"`
	CheckoutID string   `json:"checkout_id"`
}

var (
	submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zayana",
			Subsystem: "checkout",
			Name:      "submissions_total",
			Help:      "Checkout submissions by outcome.",
		},
		[]string{"outcome"},
	)

	ordersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zayana",
			Subsystem: "checkout",
			Name:      "orders_created_total",
			Help:      "Orders persisted by checkout, including those of failed submissions.",
		},
	)
)

// CheckoutService turns a session cart into orders, one per cart line.
type CheckoutService struct {
	orders  OrderCreator
	logger  *slog.Logger
	timeout time.Duration
	newID   func() string
}

func NewCheckoutService(orders OrderCreator, timeout time.Duration, logger *slog.Logger) *CheckoutService {
	if timeout <= 0 {
		timeout = DefaultCheckoutTimeout
	}
	return &CheckoutService{
		orders:  orders,
		logger:  logger,
		timeout: timeout,
		newID:   uuid.NewString,
	}
}

type lineResult struct {
	order *domain.Order
	err   error
}

// Submit persists the cart as orders and clears it once every order exists.
// An empty cart fails with CART_EMPTY and an incomplete form with a
// validation error, both before any order is written. When any order fails
// the cart is left as it was and the orders that did succeed remain.
func (s *CheckoutService) Submit(ctx context.Context, store *CartStore, form CheckoutForm) (*CheckoutResult, error) {
	snapshot := store.Snapshot()
	if snapshot.IsEmpty() {
		submissions.WithLabelValues("cart_empty").Inc()
		return nil, apperrors.CartEmpty("cart is empty")
	}

	form = form.trimmed()
	if err := validator.Validate(form); err != nil {
		submissions.WithLabelValues("invalid").Inc()
		return nil, err
	}

	checkoutID := s.newID()
	ctx, span := tracing.Tracer("github.com/zayana/storefront/services/storefront/checkout").
		Start(ctx, "checkout.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("checkout.id", checkoutID),
		attribute.Int("checkout.lines", len(snapshot.Lines)),
	)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results := make([]lineResult, len(snapshot.Lines))
	var wg sync.WaitGroup
	for i, line := range snapshot.Lines {
		wg.Add(1)
		go func(i int, line domain.CartLine) {
			defer wg.Done()
			order, err := s.orders.CreateOrder(ctx, domain.NewOrder{
				Name:       form.Name,
				Phone:      form.Phone,
				Address:    form.Address,
				Notes:      form.Notes,
				ProductID:  line.Product.ID,
				Quantity:   line.Quantity,
				CheckoutID: checkoutID,
			})
			results[i] = lineResult{order: order, err: err}
		}(i, line)
	}
	wg.Wait()

	var (
		ids  []string
		errs []error
	)
	for i, res := range results {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("line %d (product %s): %w", i, snapshot.Lines[i].Product.ID, res.err))
			continue
		}
		ids = append(ids, res.order.ID)
	}
	ordersCreated.Add(float64(len(ids)))

	if len(errs) > 0 {
		cause := errors.Join(errs...)
		span.RecordError(cause)
		span.SetStatus(codes.Error, "order creation failed")
		submissions.WithLabelValues("failed").Inc()
		s.logger.ErrorContext(ctx, "checkout failed, cart kept",
			slog.String("checkout_id", checkoutID),
			slog.Int("lines", len(snapshot.Lines)),
			slog.Int("failed", len(errs)),
			slog.Any("created_order_ids", ids),
			slog.String("error", cause.Error()),
		)
		return nil, apperrors.SubmissionFailed("failed to create order, please try again", cause)
	}

	// Every order exists by now, so a failed clear is only logged.
	if err := store.Clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.WarnContext(ctx, "clear cart after checkout failed",
			slog.String("checkout_id", checkoutID),
			slog.String("session_id", store.SessionID()),
			slog.String("error", err.Error()),
		)
	}

	submissions.WithLabelValues("succeeded").Inc()
	s.logger.InfoContext(ctx, "checkout submitted",
		slog.String("checkout_id", checkoutID),
		slog.Int("orders", len(ids)),
	)
	return &CheckoutResult{OrderID: ids[0], OrderIDs: ids, CheckoutID: checkoutID}, nil
}
