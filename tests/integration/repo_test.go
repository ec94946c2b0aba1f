//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ovenworks/breadstore/internal/domain/inventory"
	"github.com/ovenworks/breadstore/internal/domain/order"
	"github.com/ovenworks/breadstore/internal/domain/payment"
	"github.com/ovenworks/breadstore/internal/storage/postgres"
)

// openOrderRepo connects to the compose-managed database directly. Used by
// tests that read stored rows back or plant rows at specific creation
// times, which the HTTP surface cannot do.
func openOrderRepo(t *testing.T) (*postgres.OrderRepository, *pgxpool.Pool) {
	t.Helper()

	pool, err := postgres.NewPool(context.Background(), databaseURL)
	if err != nil {
		t.Fatalf("connect to database: %v", err)
	}
	t.Cleanup(pool.Close)
	return postgres.NewOrderRepository(pool), pool
}

func deleteOrder(t *testing.T, pool *pgxpool.Pool, id string) {
	t.Helper()
	if _, err := pool.Exec(context.Background(), `DELETE FROM orders WHERE id = $1`, id); err != nil {
		t.Fatalf("delete order %s: %v", id, err)
	}
}

// storedOrder builds a persistable order created at the given time. Postgres
// keeps microsecond precision, so the timestamp is truncated up front to
// survive the round trip unchanged.
func storedOrder(createdAt time.Time, qty int) *order.Order {
	return &order.Order{
		ID:             uuid.NewString(),
		CreatedAt:      createdAt.UTC().Truncate(time.Microsecond),
		CustomerName:   "Jane Dough",
		Email:          "jane@example.com",
		Address:        "123 Rye Street",
		City:           "Portland",
		State:          "OR",
		Zip:            "97201",
		Phone:          "503-555-0142",
		Items:          []order.Item{{Product: "loaf", Qty: qty, Price: decimal.NewFromInt(10)}},
		ShippingOption: "2day",
		PaymentMethod:  "usdc-base",
		PaymentChain:   payment.ChainBase,
		TotalUSD:       decimal.NewFromInt(10).Mul(decimal.NewFromInt(int64(qty))).Add(decimal.RequireFromString("12.99")),
		Status:         order.StatusPaid,
	}
}

func TestOrderRepository_RoundTrip(t *testing.T) {
	repo, pool := openOrderRepo(t)
	ctx := context.Background()

	in := storedOrder(time.Now(), 2)
	in.PaymentAmount = "20.603415"
	in.TxHash = "0xdeadbeef"
	in.Notes = "ring the bell twice"

	// The generous cap keeps this out of the weekly-supply admission path;
	// the storefront cap is exercised over HTTP elsewhere.
	if err := repo.CreateReserving(ctx, in, 1000); err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { deleteOrder(t, pool, in.ID) })

	got, err := repo.GetByID(ctx, in.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.ID != in.ID || got.CustomerName != in.CustomerName || got.Email != in.Email {
		t.Errorf("identity fields changed: %+v", got)
	}
	if !got.CreatedAt.Equal(in.CreatedAt) {
		t.Errorf("created_at: want %v, got %v", in.CreatedAt, got.CreatedAt)
	}
	if len(got.Items) != 1 || got.Items[0].Product != "loaf" || got.Items[0].Qty != 2 {
		t.Errorf("items changed: %+v", got.Items)
	}
	if !got.Items[0].Price.Equal(decimal.NewFromInt(10)) {
		t.Errorf("item price: %s", got.Items[0].Price)
	}
	if !got.TotalUSD.Equal(in.TotalUSD) {
		t.Errorf("total: want %s, got %s", in.TotalUSD, got.TotalUSD)
	}
	if got.Status != order.StatusPaid || got.PaymentChain != payment.ChainBase {
		t.Errorf("status/chain changed: %s %s", got.Status, got.PaymentChain)
	}
	if got.PaymentAmount != in.PaymentAmount || got.TxHash != in.TxHash || got.Notes != in.Notes {
		t.Errorf("optional fields changed: %+v", got)
	}
}

func TestOrderRepository_RoundTripEmptyOptionals(t *testing.T) {
	repo, pool := openOrderRepo(t)
	ctx := context.Background()

	// Empty amount, tx hash and notes are stored as NULL and must come back
	// as empty strings, not scan errors.
	in := storedOrder(time.Now(), 1)
	if err := repo.CreateReserving(ctx, in, 1000); err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { deleteOrder(t, pool, in.ID) })

	got, err := repo.GetByID(ctx, in.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PaymentAmount != "" || got.TxHash != "" || got.Notes != "" {
		t.Errorf("expected empty optional fields, got %+v", got)
	}
}

func TestOrderRepository_GetByIDNotFound(t *testing.T) {
	repo, _ := openOrderRepo(t)

	_, err := repo.GetByID(context.Background(), uuid.NewString())
	if err != order.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestWeeklyWindowBoundary plants orders on both sides of the trailing
// 7-day mark and checks that only the one inside the window is counted.
// Deltas against a baseline keep the test independent of whatever the HTTP
// tests left in the table.
func TestWeeklyWindowBoundary(t *testing.T) {
	repo, pool := openOrderRepo(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	since := now.Add(-inventory.Window)

	aged := storedOrder(since.Add(-time.Hour), 1)
	recent := storedOrder(since.Add(time.Hour), 1)

	baseWindow, err := repo.QuantitySoldSince(ctx, since)
	if err != nil {
		t.Fatalf("baseline count: %v", err)
	}
	baseAll, err := repo.QuantitySoldSince(ctx, aged.CreatedAt)
	if err != nil {
		t.Fatalf("baseline count: %v", err)
	}

	for _, o := range []*order.Order{aged, recent} {
		if err := repo.CreateReserving(ctx, o, 1000); err != nil {
			t.Fatalf("create: %v", err)
		}
		id := o.ID
		t.Cleanup(func() { deleteOrder(t, pool, id) })
	}

	// The aged order sits an hour outside the window and must not count.
	gotWindow, err := repo.QuantitySoldSince(ctx, since)
	if err != nil {
		t.Fatalf("window count: %v", err)
	}
	if gotWindow != baseWindow+1 {
		t.Errorf("window count: want %d, got %d", baseWindow+1, gotWindow)
	}

	// A cutoff equal to the aged order's own timestamp includes it: the
	// boundary is inclusive.
	gotAll, err := repo.QuantitySoldSince(ctx, aged.CreatedAt)
	if err != nil {
		t.Fatalf("inclusive count: %v", err)
	}
	if gotAll != baseAll+2 {
		t.Errorf("inclusive count: want %d, got %d", baseAll+2, gotAll)
	}
}
