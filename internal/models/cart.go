package models

import (
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Product is the catalog data needed to put something in the cart.
type Product struct {
	ID       string          `json:"id" binding:"required"`
	Name     string          `json:"name" binding:"required"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"imageUrl,omitempty"`
}

// CartItem is one cart line. ID is generated locally; ProductID is unique
// within a cart.
type CartItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"imageUrl,omitempty"`
}

// LineTotal is price × quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is an immutable, insertion-ordered view of the cart contents.
type Cart struct {
	items []CartItem
}

// NewCart copies items into a new Cart.
func NewCart(items []CartItem) Cart {
	if len(items) == 0 {
		return Cart{}
	}
	out := make([]CartItem, len(items))
	copy(out, items)
	return Cart{items: out}
}

// Items returns a copy of the lines in insertion order.
func (c Cart) Items() []CartItem {
	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c Cart) Len() int {
	return len(c.items)
}

func (c Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// ItemCount sums quantities across lines.
func (c Cart) ItemCount() int {
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

func (c Cart) FindByProduct(productID string) (CartItem, bool) {
	for _, item := range c.items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return CartItem{}, false
}

func (c Cart) FindByID(id string) (CartItem, bool) {
	for _, item := range c.items {
		if item.ID == id {
			return item, true
		}
	}
	return CartItem{}, false
}

// Total is Σ(price × quantity), unrounded.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

type cartJSON struct {
	Items []CartItem `json:"items"`
}

func (c Cart) MarshalJSON() ([]byte, error) {
	items := c.items
	if items == nil {
		items = []CartItem{}
	}
	return json.Marshal(cartJSON{Items: items})
}

// UnmarshalJSON drops lines that could never have been produced by the cart
// store: missing product id, non-positive quantity, or a repeated product.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var raw cartJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(raw.Items))
	items := make([]CartItem, 0, len(raw.Items))
	for _, item := range raw.Items {
		if item.ProductID == "" || item.Quantity <= 0 {
			continue
		}
		if _, dup := seen[item.ProductID]; dup {
			continue
		}
		seen[item.ProductID] = struct{}{}
		items = append(items, item)
	}
	c.items = items
	return nil
}
