package order

import "github.com/shopspring/decimal"

// Shipping options. Flat USD rates.
const (
	ShippingOvernight = "overnight"
	ShippingTwoDay    = "2day"
)

var shippingRates = map[string]decimal.Decimal{
	ShippingOvernight: decimal.RequireFromString("24.99"),
	ShippingTwoDay:    decimal.RequireFromString("12.99"),
}

// ShippingRate returns the flat rate for a shipping option. The second
// return value is false for unknown options.
func ShippingRate(option string) (decimal.Decimal, bool) {
	rate, ok := shippingRates[option]
	return rate, ok
}
