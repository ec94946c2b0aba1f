// Package inventory derives the weekly supply window from persisted order
// history and enforces the global weekly cap.
package inventory

import (
	"context"
	"fmt"
	"time"
)

// DefaultWeeklyCap is the number of baked goods sold per rolling week.
const DefaultWeeklyCap = 10

// Window is the trailing period the cap applies to. Rolling, anchored to
// wall-clock "now" at call time; not a calendar week.
const Window = 7 * 24 * time.Hour

// CountedStatuses are the order statuses that consume weekly supply.
var CountedStatuses = []string{"paid", "baked", "shipped"}

// SoldCounter reads the quantity sold from persisted order history.
type SoldCounter interface {
	// QuantitySoldSince sums line-item quantities across orders with a
	// counted status created at or after since. Orders with empty or
	// malformed item lists contribute zero.
	QuantitySoldSince(ctx context.Context, since time.Time) (int, error)
}

// Usage is the state of the weekly supply window at a point in time.
type Usage struct {
	Sold      int `json:"soldThisWeek"`
	Cap       int `json:"cap"`
	Available int `json:"available"`
}

// StorageUnavailableError reports that the backing store could not be read.
// Callers must not assume infinite capacity on failure.
type StorageUnavailableError struct {
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("inventory storage unavailable: %v", e.Err)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }

// CapacityError rejects an order that would exceed the weekly cap. It
// carries the current sold count for user-facing messaging.
type CapacityError struct {
	Sold int
	Cap  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf(
		"weekly supply limit reached (%d baked goods/week), %d already sold",
		e.Cap, e.Sold)
}

// Ledger computes remaining weekly capacity against a fixed cap. The sold
// count is recomputed from the order table on every read, so it is always
// consistent as of query time.
type Ledger struct {
	counter SoldCounter
	cap     int
	now     func() time.Time
}

// NewLedger creates a Ledger over the given counter. A non-positive cap
// falls back to DefaultWeeklyCap.
func NewLedger(counter SoldCounter, cap int) *Ledger {
	if cap <= 0 {
		cap = DefaultWeeklyCap
	}
	return &Ledger{counter: counter, cap: cap, now: time.Now}
}

// Cap returns the fixed weekly cap.
func (l *Ledger) Cap() int { return l.cap }

// Remaining reports how much of this week's supply has been sold and how
// much is left. Two calls a few seconds apart can differ as orders age out
// of the window.
func (l *Ledger) Remaining(ctx context.Context) (Usage, error) {
	since := l.now().Add(-Window)
	sold, err := l.counter.QuantitySoldSince(ctx, since)
	if err != nil {
		return Usage{}, &StorageUnavailableError{Err: err}
	}

	available := l.cap - sold
	if available < 0 {
		available = 0
	}
	return Usage{Sold: sold, Cap: l.cap, Available: available}, nil
}
