package order

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovenworks/breadstore/internal/domain/payment"
)

func validDraft() Draft {
	return Draft{
		CustomerName:   "Jane Dough",
		Email:          "jane@example.com",
		Address:        "123 Rye Street",
		City:           "Portland",
		State:          "OR",
		Zip:            "97201",
		Phone:          "503-555-0142",
		Items:          []DraftItem{{Product: "loaf", Qty: 2}},
		ShippingOption: ShippingTwoDay,
		PaymentMethod:  "usdc-base",
		PaymentAmount:  "33.155850",
		TotalUSD:       decimal.RequireFromString("32.99"),
	}
}

func TestValidate_OK(t *testing.T) {
	d := validDraft()
	require.NoError(t, d.Validate())
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Draft)
		field  string
	}{
		{"missing name", func(d *Draft) { d.CustomerName = "  " }, "customer_name"},
		{"bad email", func(d *Draft) { d.Email = "jane-at-example" }, "email"},
		{"email with spaces", func(d *Draft) { d.Email = "ja ne@example.com" }, "email"},
		{"short address", func(d *Draft) { d.Address = "12a" }, "address"},
		{"missing city", func(d *Draft) { d.City = "" }, "city"},
		{"bad state", func(d *Draft) { d.State = "XX" }, "state"},
		{"long zip", func(d *Draft) { d.Zip = "97201-1234" }, "zip"},
		{"alpha zip", func(d *Draft) { d.Zip = "9720a" }, "zip"},
		{"short phone", func(d *Draft) { d.Phone = "555-0142" }, "phone"},
		{"long phone", func(d *Draft) { d.Phone = strings.Repeat("5", 21) }, "phone"},
		{"no items", func(d *Draft) { d.Items = nil }, "items"},
		{"zero quantity", func(d *Draft) { d.Items[0].Qty = 0 }, "items"},
		{"unknown product", func(d *Draft) { d.Items[0].Product = "bagel" }, "items"},
		{"bad shipping", func(d *Draft) { d.ShippingOption = "carrier-pigeon" }, "shipping_option"},
		{"bad method", func(d *Draft) { d.PaymentMethod = "doge-base" }, "payment_method"},
		{"negative total", func(d *Draft) { d.TotalUSD = decimal.NewFromInt(-1) }, "total_usd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)

			var vErr *ValidationError
			require.ErrorAs(t, d.Validate(), &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestValidate_StateCaseInsensitive(t *testing.T) {
	d := validDraft()
	d.State = " or "
	require.NoError(t, d.Validate())
}

func TestBuild_ServerSidePricing(t *testing.T) {
	d := validDraft()
	d.Items = []DraftItem{
		// Client-quoted prices are ignored.
		{Product: "loaf", Qty: 2, Price: decimal.NewFromInt(1)},
		{Product: "roll", Qty: 1, Price: decimal.NewFromInt(1)},
	}
	d.ShippingOption = ShippingOvernight

	o, err := d.build()
	require.NoError(t, err)

	// 2 loaves at $10 + half dozen rolls at $20 + $24.99 overnight.
	assert.True(t, decimal.RequireFromString("64.99").Equal(o.TotalUSD),
		"got %s", o.TotalUSD)
	assert.True(t, decimal.NewFromInt(10).Equal(o.Items[0].Price))
	assert.True(t, decimal.NewFromInt(20).Equal(o.Items[1].Price))
}

func TestBuild_DerivesChainFromMethod(t *testing.T) {
	d := validDraft()
	d.PaymentMethod = "cult-ethereum"

	o, err := d.build()
	require.NoError(t, err)
	assert.Equal(t, payment.ChainEthereum, o.PaymentChain)
}

func TestBuild_NormalizesFields(t *testing.T) {
	d := validDraft()
	d.CustomerName = "  Jane Dough  "
	d.State = "or"

	o, err := d.build()
	require.NoError(t, err)
	assert.Equal(t, "Jane Dough", o.CustomerName)
	assert.Equal(t, "OR", o.State)
	assert.Empty(t, o.ID)
	assert.True(t, o.CreatedAt.IsZero())
	assert.Empty(t, o.Status)
}

func TestBuild_TruncatesLongFields(t *testing.T) {
	d := validDraft()
	d.CustomerName = strings.Repeat("n", 150)
	d.Notes = strings.Repeat("x", 600)
	d.TxHash = "0x" + strings.Repeat("ab", 60)

	o, err := d.build()
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("n", 100), o.CustomerName)
	assert.Equal(t, strings.Repeat("x", 500), o.Notes)
	assert.Len(t, o.TxHash, 100)
}

func TestTruncate_Runes(t *testing.T) {
	// Truncation counts runes, not bytes, so multi-byte text is never cut
	// mid-character.
	s := strings.Repeat("å", 10)
	assert.Equal(t, strings.Repeat("å", 4), truncate(s, 4))
	assert.Equal(t, s, truncate(s, 10))
	assert.Equal(t, s, truncate(s, 20))
}

func TestShippingRate(t *testing.T) {
	rate, ok := ShippingRate(ShippingOvernight)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("24.99").Equal(rate))

	rate, ok = ShippingRate(ShippingTwoDay)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("12.99").Equal(rate))

	_, ok = ShippingRate("standard")
	assert.False(t, ok)
}
