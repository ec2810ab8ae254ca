package domain

import (
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

// CartNamespace prefixes every persisted cart slot.
const CartNamespace = "zayana-cart"

// ErrCorruptCart marks a saved cart that exists but cannot be decoded.
var ErrCorruptCart = errors.New("corrupt cart data")

// CartLine is one product in a cart. Quantity is always positive.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Subtotal is price times quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds at most one line per product id, in insertion order. Totals
// are derived on every call and never stored.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

func (c Cart) TotalItems() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

func (c Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// IndexOf returns the line index for productID, or -1.
func (c Cart) IndexOf(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares nothing mutable with c.
func (c Cart) Clone() Cart {
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	return Cart{Lines: lines}
}

// cartView is the JSON rendering, with the derived totals.
type cartView struct {
	Lines      []CartLine      `json:"lines"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func (c Cart) MarshalJSON() ([]byte, error) {
	lines := c.Lines
	if lines == nil {
		lines = []CartLine{}
	}
	return json.Marshal(cartView{Lines: lines, TotalItems: c.TotalItems(), TotalPrice: c.TotalPrice()})
}

// UnmarshalJSON ignores any rendered totals.
func (c *Cart) UnmarshalJSON(b []byte) error {
	var v cartView
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	c.Lines = v.Lines
	return nil
}
