package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zayana/storefront/pkg/database"
	apperrors "github.com/zayana/storefront/pkg/errors"
	"github.com/zayana/storefront/services/storefront/internal/domain"
)

type OrderRepository struct {
	db database.DBTX
}

func NewOrderRepository(db database.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateOrder inserts the order and its order.created outbox row atomically.
func (r *OrderRepository) CreateOrder(ctx context.Context, in domain.NewOrder) (_ *domain.Order, err error) {
	const (
		insertOrder = `
		INSERT INTO orders (id, name, phone, address, notes, product_id, quantity, checkout_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`
		insertOutbox = `
		INSERT INTO order_outbox (aggregate_id, event_type, payload)
		VALUES ($1, $2, $3)`
	)

	ctx, end := database.TraceQuery(ctx, "CreateOrder", insertOrder)
	defer func() { end(err) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o := domain.Order{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Phone:      in.Phone,
		Address:    in.Address,
		Notes:      in.Notes,
		ProductID:  in.ProductID,
		Quantity:   in.Quantity,
		CheckoutID: in.CheckoutID,
	}
	if err := tx.QueryRow(ctx, insertOrder,
		o.ID, o.Name, o.Phone, o.Address, o.Notes, o.ProductID, o.Quantity, o.CheckoutID,
	).Scan(&o.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	payload, err := json.Marshal(domain.NewOrderCreatedPayload(&o))
	if err != nil {
		return nil, fmt.Errorf("marshal outbox payload: %w", err)
	}
	if _, err := tx.Exec(ctx, insertOutbox, o.ID, domain.EventOrderCreated, payload); err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &o, nil
}

// List returns orders newest first with their product, if it still exists.
func (r *OrderRepository) List(ctx context.Context, page, perPage int) (_ []domain.OrderWithProduct, _ int, err error) {
	query := `
		SELECT o.id, o.name, o.phone, o.address, o.notes, o.product_id, o.quantity, o.checkout_id, o.created_at,
			p.name_en, p.name_ar, p.price,
			count(*) OVER() AS total_count
		FROM orders o
		LEFT JOIN products p ON p.id = o.product_id
		ORDER BY o.created_at DESC, o.id
		LIMIT $1 OFFSET $2`
	ctx, end := database.TraceQuery(ctx, "ListOrders", query)
	defer func() { end(err) }()

	if page < 1 {
		page = 1
	}
	rows, err := r.db.Query(ctx, query, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var (
		orders []domain.OrderWithProduct
		total  int
	)
	for rows.Next() {
		var (
			o              domain.OrderWithProduct
			nameEN, nameAR *string
			price          decimal.NullDecimal
		)
		if err := rows.Scan(
			&o.ID, &o.Name, &o.Phone, &o.Address, &o.Notes, &o.ProductID, &o.Quantity, &o.CheckoutID, &o.CreatedAt,
			&nameEN, &nameAR, &price, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		if nameEN != nil && price.Valid {
			o.Product = &domain.OrderProduct{NameEN: *nameEN, Price: price.Decimal}
			if nameAR != nil {
				o.Product.NameAR = *nameAR
			}
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, total, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM orders WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "DeleteOrder", query)
	defer func() { end(err) }()

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete order %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}
	return nil
}
