package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCounter struct {
	sold      int
	err       error
	lastSince time.Time
}

func (m *mockCounter) QuantitySoldSince(_ context.Context, since time.Time) (int, error) {
	m.lastSince = since
	return m.sold, m.err
}

func TestRemaining(t *testing.T) {
	tests := []struct {
		name      string
		sold      int
		cap       int
		available int
	}{
		{"empty week", 0, 10, 10},
		{"partially sold", 6, 10, 4},
		{"sold out", 10, 10, 0},
		{"oversold clamps to zero", 12, 10, 0},
		{"custom cap", 3, 5, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := NewLedger(&mockCounter{sold: tt.sold}, tt.cap)

			usage, err := ledger.Remaining(context.Background())
			require.NoError(t, err)
			assert.Equal(t, Usage{Sold: tt.sold, Cap: tt.cap, Available: tt.available}, usage)
		})
	}
}

func TestRemaining_WindowIsTrailingWeek(t *testing.T) {
	counter := &mockCounter{}
	ledger := NewLedger(counter, 10)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return now }

	_, err := ledger.Remaining(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now.Add(-7*24*time.Hour), counter.lastSince)
}

func TestRemaining_StorageError(t *testing.T) {
	dbErr := errors.New("connection refused")
	ledger := NewLedger(&mockCounter{err: dbErr}, 10)

	_, err := ledger.Remaining(context.Background())
	var sErr *StorageUnavailableError
	require.ErrorAs(t, err, &sErr)
	assert.ErrorIs(t, err, dbErr)
}

func TestNewLedger_DefaultCap(t *testing.T) {
	assert.Equal(t, DefaultWeeklyCap, NewLedger(&mockCounter{}, 0).Cap())
	assert.Equal(t, DefaultWeeklyCap, NewLedger(&mockCounter{}, -3).Cap())
	assert.Equal(t, 25, NewLedger(&mockCounter{}, 25).Cap())
}

func TestCapacityError_Message(t *testing.T) {
	err := &CapacityError{Sold: 8, Cap: 10}
	assert.Equal(t,
		"weekly supply limit reached (10 baked goods/week), 8 already sold",
		err.Error())
}
