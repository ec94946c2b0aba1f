// Package order implements order intake: draft validation, server-side
// pricing, weekly-cap admission and persistence.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/ovenworks/breadstore/internal/domain/payment"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Status is an order's fulfillment state. Orders are created in StatusPaid,
// immediately after confirmed on-chain payment, and moved to baked then
// shipped by back-office tooling.
type Status string

const (
	StatusPaid    Status = "paid"
	StatusBaked   Status = "baked"
	StatusShipped Status = "shipped"
)

// ValidStatus reports whether s is a known order status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPaid, StatusBaked, StatusShipped:
		return true
	}
	return false
}

// Item is a single order line. Price is the server-side unit price at order
// time; client-submitted prices are never stored.
type Item struct {
	Product string          `json:"product"`
	Qty     int             `json:"qty"`
	Price   decimal.Decimal `json:"price"`
}

// Order is the durable record of a transaction.
type Order struct {
	ID           string
	CreatedAt    time.Time
	CustomerName string
	Email        string
	Address      string
	City         string
	State        string
	Zip          string
	Phone        string
	Items        []Item
	// ShippingOption is "overnight" or "2day".
	ShippingOption string
	// PaymentMethod is the token+chain pair ID, e.g. "usdc-base".
	PaymentMethod string
	// PaymentChain is derived from PaymentMethod, never client-supplied.
	PaymentChain payment.Chain
	// PaymentAmount is the token quantity requested from the payer.
	PaymentAmount string
	TotalUSD      decimal.Decimal
	Status        Status
	TxHash        string
	Notes         string
}

// Quantity sums line-item quantities.
func (o *Order) Quantity() int {
	total := 0
	for _, it := range o.Items {
		total += it.Qty
	}
	return total
}

// Repository defines persistence operations for orders. CreateReserving must
// perform the weekly-cap admission check and the insert atomically: the
// read-check-insert sequence runs under a single serialization point so two
// concurrent submissions cannot both pass the check and oversell the cap.
type Repository interface {
	// CreateReserving persists o if the trailing-week quantity plus o's
	// quantity stays within cap. Returns *inventory.CapacityError when it
	// would not.
	CreateReserving(ctx context.Context, o *Order, cap int) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// List returns orders newest first, optionally filtered by status.
	List(ctx context.Context, status Status, limit int) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}
