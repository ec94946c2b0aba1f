// Package cart holds an ephemeral, client-scoped reservation of intended
// quantities. The clamp against last-known weekly availability is purely
// advisory and shapes quote responses; the authoritative capacity check
// happens at order insert time inside the storage transaction.
package cart

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ovenworks/breadstore/internal/domain/product"
)

// MaxItems is the hard per-cart ceiling, matching the weekly supply cap.
const MaxItems = 10

// Item is a cart line with a unit price snapshot.
type Item struct {
	Product string
	Qty     int
	Price   decimal.Decimal
}

// LimitError reports that an add or update would exceed the effective
// weekly maximum.
type LimitError struct {
	Max     int
	Current int
}

func (e *LimitError) Error() string {
	if e.Max == 0 {
		return "sold out for this week, check back next week"
	}
	return fmt.Sprintf("max %d items this week, you have %d", e.Max, e.Current)
}

// Cart accumulates intended quantities, clamped against the last-known
// remaining weekly capacity. Not safe for concurrent use; a cart belongs to
// a single shopper session.
type Cart struct {
	items []Item
	// weeklyAvailable is the last-known remaining capacity, or -1 when the
	// inventory endpoint has not been consulted yet.
	weeklyAvailable int
}

// New returns an empty cart with no known weekly availability.
func New() *Cart {
	return &Cart{weeklyAvailable: -1}
}

// SetWeeklyAvailable records the last-known remaining capacity. Negative
// values clear it.
func (c *Cart) SetWeeklyAvailable(n int) {
	if n < 0 {
		n = -1
	}
	c.weeklyAvailable = n
}

// EffectiveMax is the quantity ceiling currently in force:
// min(MaxItems, weeklyAvailable) when availability is known.
func (c *Cart) EffectiveMax() int {
	if c.weeklyAvailable < 0 || c.weeklyAvailable >= MaxItems {
		return MaxItems
	}
	return c.weeklyAvailable
}

// Add puts qty units of a catalog product in the cart, merging with an
// existing line. Rejects unknown products and quantities past the clamp.
func (c *Cart) Add(productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	p, err := product.ByID(productID)
	if err != nil {
		return err
	}
	if c.ItemCount()+qty > c.EffectiveMax() {
		return &LimitError{Max: c.EffectiveMax(), Current: c.ItemCount()}
	}
	for i := range c.items {
		if c.items[i].Product == productID {
			c.items[i].Qty += qty
			return nil
		}
	}
	c.items = append(c.items, Item{Product: p.ID, Qty: qty, Price: p.Price})
	return nil
}

// UpdateQty sets an absolute quantity for a product. Zero or negative
// removes the line.
func (c *Cart) UpdateQty(productID string, qty int) error {
	if qty <= 0 {
		c.Remove(productID)
		return nil
	}
	otherTotal := 0
	for _, it := range c.items {
		if it.Product != productID {
			otherTotal += it.Qty
		}
	}
	if otherTotal+qty > c.EffectiveMax() {
		return &LimitError{Max: c.EffectiveMax(), Current: c.ItemCount()}
	}
	for i := range c.items {
		if c.items[i].Product == productID {
			c.items[i].Qty = qty
			return nil
		}
	}
	return c.Add(productID, qty)
}

// Remove drops a product line from the cart.
func (c *Cart) Remove(productID string) {
	kept := c.items[:0]
	for _, it := range c.items {
		if it.Product != productID {
			kept = append(kept, it)
		}
	}
	c.items = kept
}

// Clear empties the cart. Called on successful order submission.
func (c *Cart) Clear() { c.items = nil }

// Items returns a copy of the cart lines.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// ItemCount sums quantities across all lines.
func (c *Cart) ItemCount() int {
	total := 0
	for _, it := range c.items {
		total += it.Qty
	}
	return total
}

// Subtotal sums price × qty across all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return sum
}

// CanAdd reports whether qty more units fit under the clamp.
func (c *Cart) CanAdd(qty int) bool {
	return c.ItemCount()+qty <= c.EffectiveMax()
}
