package domain

import "time"

// EventOrderCreated is the outbox event type written with every order.
const EventOrderCreated = "order.created"

// OutboxEvent is a row of order_outbox awaiting publication.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// OrderCreatedPayload is the event body; it mirrors the orders row.
type OrderCreatedPayload struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	Notes      string    `json:"notes,omitempty"`
	ProductID  string    `json:"product_id"`
	Quantity   int       `json:"quantity"`
	CheckoutID string    `json:"checkout_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewOrderCreatedPayload(o *Order) OrderCreatedPayload {
	return OrderCreatedPayload{
		ID:         o.ID,
		Name:       o.Name,
		Phone:      o.Phone,
		Address:    o.Address,
		Notes:      o.Notes,
		ProductID:  o.ProductID,
		Quantity:   o.Quantity,
		CheckoutID: o.CheckoutID,
		CreatedAt:  o.CreatedAt,
	}
}
