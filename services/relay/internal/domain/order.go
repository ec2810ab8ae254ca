package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InsertEvent is the database-webhook payload announcing a new row.
type InsertEvent struct {
	Type   string      `json:"type"`
	Table  string      `json:"table"`
	Record OrderRecord `json:"record"`
}

// IsOrderInsert reports whether the event announces a new order.
func (e InsertEvent) IsOrderInsert() bool {
	return e.Type == "INSERT" && e.Table == "orders"
}

// OrderRecord is the inserted orders row. The storefront's order.created
// event body decodes into it as well.
type OrderRecord struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	Notes      string    `json:"notes,omitempty"`
	ProductID  string    `json:"product_id"`
	Quantity   int       `json:"quantity"`
	CheckoutID string    `json:"checkout_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Product is what a notification needs to know about the ordered product.
type Product struct {
	ID     string          `json:"id"`
	NameEN string          `json:"name_en"`
	Price  decimal.Decimal `json:"price"`
}

// Total is price times quantity.
func (p Product) Total(quantity int) decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(quantity)))
}
