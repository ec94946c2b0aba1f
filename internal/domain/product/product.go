// Package product holds the static bakery catalog. The storefront sells a
// fixed set of baked goods priced in USD; there is no product table.
package product

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

var catalog = []Product{
	{ID: "loaf", Name: "Sourdough Loaf", Price: decimal.NewFromInt(10)},
	{ID: "roll", Name: "Rolls (half dozen)", Price: decimal.NewFromInt(20)},
}

// List returns every product in the catalog, in display order.
func List() []Product {
	out := make([]Product, len(catalog))
	copy(out, catalog)
	return out
}

// ByID looks up a single product. Returns ErrNotFound for unknown IDs.
func ByID(id string) (Product, error) {
	for _, p := range catalog {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

// Exists reports whether id names a catalog product.
func Exists(id string) bool {
	_, err := ByID(id)
	return err == nil
}
