package payment

import "github.com/shopspring/decimal"

// priceBuffer absorbs price drift between quote display and on-chain
// settlement. 0.5% on top of the USD total.
var priceBuffer = decimal.RequireFromString("1.005")

// amountPlaces is the precision of the requested token amount.
const amountPlaces = 6

// TokenAmount converts a USD total into the exact token quantity to request
// from the payer: (totalUSD * 1.005) / priceUSD, rounded up to 6 decimal
// places. Rounding up guarantees the merchant is never underpaid by
// truncation.
//
// A non-positive price returns zero; callers must treat zero as "cannot
// proceed", never as a free order. Pure function of its inputs.
func TokenAmount(totalUSD, priceUSD decimal.Decimal) decimal.Decimal {
	if priceUSD.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return totalUSD.Mul(priceBuffer).DivRound(priceUSD, amountPlaces+4).RoundUp(amountPlaces)
}
