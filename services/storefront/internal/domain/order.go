package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is one persisted cart line of a checkout. Orders of the same
// submission share CheckoutID. Orders are never updated.
type Order struct {
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

// NewOrder is what checkout asks persistence to create.
type NewOrder struct {
	Name       string
	Phone      string
	Address    string
	Notes      string
	ProductID  string
	Quantity   int
	CheckoutID string
}

// OrderWithProduct is the admin listing row. Product is nil when the product
// has since been deleted.
type OrderWithProduct struct {
	Order
	Product *OrderProduct `json:"product"`
}

// OrderProduct is the slice of Product the admin table shows.
type OrderProduct struct {
	NameEN string          `json:"name_en"`
	NameAR string          `json:"name_ar"`
	Price  decimal.Decimal `json:"price"`
}

// Total is price times quantity, or zero without a product.
func (o OrderWithProduct) Total() decimal.Decimal {
	if o.Product == nil {
		return decimal.Zero
	}
	return o.Product.Price.Mul(decimal.NewFromInt(int64(o.Quantity)))
}
