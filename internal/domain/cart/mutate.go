package cart

import (
	"github.com/go-faster/jx"

	"github.com/xenking/kart-storefront/internal/domain/product"
)

// AddItem returns a cart with qty more of p. An existing line for p.ID keeps
// its original snapshot and only grows in quantity; otherwise a new line is
// appended. A qty below 1 leaves the cart unchanged; quantities saturate at
// MaxQuantity.
func AddItem(c Cart, p product.Product, qty int) Cart {
	next := c.Clone()
	if qty < 1 || p.ID == "" {
		return next
	}
	if i := next.Index(p.ID); i >= 0 {
		next[i].Quantity = addQuantity(next[i].Quantity, qty)
		return next
	}
	return append(next, snapshot(p, min(qty, MaxQuantity)))
}

// Increase returns a cart with the line for productID incremented by one.
// Unknown products and lines at MaxQuantity are left unchanged.
func Increase(c Cart, productID string) Cart {
	next := c.Clone()
	if i := next.Index(productID); i >= 0 {
		next[i].Quantity = addQuantity(next[i].Quantity, 1)
	}
	return next
}

// Decrease returns a cart with the line for productID decremented by one.
// A line that reaches zero is removed. Unknown products are ignored.
func Decrease(c Cart, productID string) Cart {
	next := c.Clone()
	i := next.Index(productID)
	if i < 0 {
		return next
	}
	if next[i].Quantity <= 1 {
		return append(next[:i], next[i+1:]...)
	}
	next[i].Quantity--
	return next
}

// Remove returns a cart without the line for productID.
func Remove(c Cart, productID string) Cart {
	next := c.Clone()
	if i := next.Index(productID); i >= 0 {
		return append(next[:i], next[i+1:]...)
	}
	return next
}

func snapshot(p product.Product, qty int) Line {
	l := Line{
		ProductID: p.ID,
		Title:     p.Name,
		UnitPrice: p.Price,
		Image:     p.Image,
		Category:  p.Category,
		Quantity:  qty,
	}
	if len(p.Attributes) > 0 {
		l.Extra = make(map[string]jx.Raw, len(p.Attributes))
		for k, v := range p.Attributes {
			if isLineKey(k) {
				continue
			}
			l.Extra[k] = append(jx.Raw(nil), v...)
		}
	}
	return l
}
