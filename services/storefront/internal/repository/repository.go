package repository

import (
	"context"

	"github.com/zayana/storefront/services/storefront/internal/domain"
)

// ProductRepository reads and administers the catalog.
type ProductRepository interface {
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, in domain.ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id string, in domain.ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}

// CartRepository persists one cart per session. Load returns (nil, nil)
// when the session has no saved cart and an error wrapping
// domain.ErrCorruptCart when the slot holds unreadable data.
type CartRepository interface {
	Load(ctx context.Context, sessionID string) (*domain.Cart, error)
	Save(ctx context.Context, sessionID string, cart *domain.Cart) error
}

// OrderRepository persists orders. CreateOrder also queues the
// order.created outbox row in the same transaction.
type OrderRepository interface {
	CreateOrder(ctx context.Context, in domain.NewOrder) (*domain.Order, error)
	List(ctx context.Context, page, perPage int) ([]domain.OrderWithProduct, int, error)
	Delete(ctx context.Context, id string) error
}

// UpdateRepository administers the dashboard's news posts.
type UpdateRepository interface {
	List(ctx context.Context, page, perPage int) ([]domain.Update, int, error)
	Create(ctx context.Context, in domain.UpdateInput) (*domain.Update, error)
	Delete(ctx context.Context, id string) error
}

// OutboxRepository is drained by the outbox publisher.
type OutboxRepository interface {
	FetchPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, ids []int64) error
	RecordFailure(ctx context.Context, id int64, reason string, maxAttempts int) (attempts int, parked bool, err error)
}
