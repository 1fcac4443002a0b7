// Package shop implements the shopping cart and the tools a reasoner can
// call on it: catalog search, add to cart, view cart and checkout.
package shop

import (
	"github.com/kalambet/shopper/internal/catalog"
)

// Cart is an ordered list of product copies. It is not safe for concurrent
// use; the owning session serializes access.
type Cart struct {
	items []catalog.Product
}

// Add appends a copy of p.
func (c *Cart) Add(p catalog.Product) {
	c.items = append(c.items, p.Clone())
}

// Items returns copies of the cart entries in insertion order.
func (c *Cart) Items() []catalog.Product {
	out := make([]catalog.Product, len(c.items))
	for i, p := range c.items {
		out[i] = p.Clone()
	}
	return out
}

// Remove drops the first entry with the given product id.
func (c *Cart) Remove(id string) (catalog.Product, bool) {
	for i, p := range c.items {
		if p.ID == id {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			return p, true
		}
	}
	return catalog.Product{}, false
}

func (c *Cart) Clear() {
	c.items = nil
}

// Total is the sum of the entry prices.
func (c *Cart) Total() float64 {
	var sum float64
	for _, p := range c.items {
		sum += p.Price
	}
	return sum
}

func (c *Cart) Len() int {
	return len(c.items)
}
