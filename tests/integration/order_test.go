//go:build integration

package integration

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"testing"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func validOrder(qty int) orderRequest {
	return orderRequest{
		CustomerName:   "Jane Dough",
		Email:          "jane@example.com",
		Address:        "123 Rye Street",
		City:           "Portland",
		State:          "OR",
		Zip:            "97201",
		Phone:          "503-555-0142",
		Items:          []orderItemRequest{{Product: "loaf", Qty: qty}},
		ShippingOption: "2day",
		PaymentMethod:  "usdc-base",
		TotalUSD:       float64(qty)*10 + 12.99,
	}
}

func TestCreateOrder_ValidationRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*orderRequest)
	}{
		{"missing email", func(r *orderRequest) { r.Email = "" }},
		{"bad state", func(r *orderRequest) { r.State = "ZZ" }},
		{"bad zip", func(r *orderRequest) { r.Zip = "9720" }},
		{"no items", func(r *orderRequest) { r.Items = nil }},
		{"unknown product", func(r *orderRequest) { r.Items[0].Product = "croissant" }},
		{"bad shipping", func(r *orderRequest) { r.ShippingOption = "standard" }},
		{"bad payment method", func(r *orderRequest) { r.PaymentMethod = "doge-base" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validOrder(1)
			tt.mutate(&req)

			resp := doPost(t, "/api/create-order", req)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			// Rejected orders must not consume weekly supply.
			if inv := getInventory(t); inv.SoldThisWeek != 0 {
				t.Fatalf("rejected order consumed supply: %+v", inv)
			}
		})
	}
}

// TestWeeklySupplyLifecycle walks the cap from a fresh week to sold out. The
// subtests share database state and must run in order.
func TestWeeklySupplyLifecycle(t *testing.T) {
	t.Run("fresh week", func(t *testing.T) {
		inv := getInventory(t)
		if inv.SoldThisWeek != 0 || inv.Cap != 10 || inv.Available != 10 {
			t.Fatalf("unexpected initial inventory: %+v", inv)
		}
	})

	t.Run("first order", func(t *testing.T) {
		resp := doPost(t, "/api/create-order", validOrder(2))
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		order := decodeJSON[orderResponse](t, resp)
		if !uuidPattern.MatchString(order.OrderID) {
			t.Errorf("order ID %q is not a valid UUID", order.OrderID)
		}

		inv := getInventory(t)
		if inv.SoldThisWeek != 2 || inv.Available != 8 {
			t.Fatalf("inventory after order: %+v", inv)
		}
	})

	t.Run("order past remaining capacity", func(t *testing.T) {
		// 8 remaining; 9 must be rejected whole, not partially filled.
		resp := doPost(t, "/api/create-order", validOrder(9))
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", resp.StatusCode)
		}
		body := decodeJSON[errorResponse](t, resp)
		if !strings.Contains(body.Error, "Weekly supply limit reached") {
			t.Errorf("unexpected error message: %q", body.Error)
		}

		if inv := getInventory(t); inv.SoldThisWeek != 2 {
			t.Fatalf("rejected order consumed supply: %+v", inv)
		}
	})

	t.Run("oversized fields stored truncated", func(t *testing.T) {
		// Oversized free-text fields are truncated to fixed rune prefixes,
		// not rejected. Read the row back to check the stored prefixes.
		req := validOrder(1)
		req.CustomerName = strings.Repeat("n", 500)
		req.Notes = strings.Repeat("x", 2000)

		resp := doPost(t, "/api/create-order", req)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		created := decodeJSON[orderResponse](t, resp)

		repo, _ := openOrderRepo(t)
		stored, err := repo.GetByID(context.Background(), created.OrderID)
		if err != nil {
			t.Fatalf("read back order: %v", err)
		}
		if stored.CustomerName != strings.Repeat("n", 100) {
			t.Errorf("customer name not truncated to 100 runes: %d", len(stored.CustomerName))
		}
		if stored.Notes != strings.Repeat("x", 500) {
			t.Errorf("notes not truncated to 500 runes: %d", len(stored.Notes))
		}
		if len(stored.Items) != 1 || stored.Items[0].Product != "loaf" || stored.Items[0].Qty != 1 {
			t.Errorf("items changed in storage: %+v", stored.Items)
		}
		// Server-side pricing: one loaf plus 2-day shipping.
		if stored.TotalUSD.String() != "22.99" {
			t.Errorf("stored total: %s", stored.TotalUSD)
		}
		if string(stored.Status) != "paid" {
			t.Errorf("stored status: %s", stored.Status)
		}

		if inv := getInventory(t); inv.SoldThisWeek != 3 {
			t.Fatalf("inventory after truncated order: %+v", inv)
		}
	})

	t.Run("fill the week", func(t *testing.T) {
		resp := doPost(t, "/api/create-order", validOrder(7))
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		inv := getInventory(t)
		if inv.SoldThisWeek != 10 || inv.Available != 0 {
			t.Fatalf("inventory after filling: %+v", inv)
		}
	})

	t.Run("sold out", func(t *testing.T) {
		resp := doPost(t, "/api/create-order", validOrder(1))
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", resp.StatusCode)
		}
	})
}

func TestCreateOrder_MalformedJSON(t *testing.T) {
	resp := doPost(t, "/api/create-order", "not-an-object")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
