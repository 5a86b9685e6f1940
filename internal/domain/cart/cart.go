// Package cart maintains the device's shopping cart: its data model, the pure
// mutation operations, persistence through a key-value store and the change
// notifications other components re-read state on.
package cart

import (
	"maps"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// MaxQuantity caps the quantity of a single line.
const MaxQuantity = 9999

// lineKeys are the stored line's own fields. Product attributes with these
// names are never copied into Extra.
var lineKeys = map[string]struct{}{
	"id":       {},
	"title":    {},
	"name":     {},
	"price":    {},
	"quantity": {},
	"image":    {},
	"category": {},
}

func isLineKey(k string) bool {
	_, ok := lineKeys[k]
	return ok
}

// addQuantity returns a+b saturated at MaxQuantity.
func addQuantity(a, b int) int {
	if b >= MaxQuantity-a {
		return MaxQuantity
	}
	return a + b
}

// Line is one product's presence in the cart. Title, price and image are
// captured when the product is first added and are not refreshed from the
// catalog afterwards.
type Line struct {
	ProductID string
	Title     string
	UnitPrice decimal.Decimal
	Image     string
	Category  string
	Quantity  int
	// Extra keeps the remaining product fields copied at add time.
	Extra map[string]jx.Raw
}

// Subtotal returns UnitPrice × Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l Line) clone() Line {
	if l.Extra != nil {
		l.Extra = maps.Clone(l.Extra)
	}
	return l
}

// Cart is the ordered list of lines. It holds at most one line per product
// and every quantity is at least 1.
type Cart []Line

// Index returns the position of the line for productID, or -1.
func (c Cart) Index(productID string) int {
	for i, l := range c {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// Contains reports whether productID has a line in the cart.
func (c Cart) Contains(productID string) bool {
	return c.Index(productID) >= 0
}

// Count returns the total quantity across all lines.
func (c Cart) Count() int {
	n := 0
	for _, l := range c {
		n += l.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c) == 0
}

// Clone returns a deep copy of c.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	for i, l := range c {
		out[i] = l.clone()
	}
	return out
}
