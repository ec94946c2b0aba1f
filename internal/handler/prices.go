package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/ovenworks/breadstore/internal/domain/cart"
	"github.com/ovenworks/breadstore/internal/domain/order"
	"github.com/ovenworks/breadstore/internal/domain/payment"
	"github.com/ovenworks/breadstore/internal/pricing"
)

// prices quotes every payment option in one call. Unavailable prices come
// back as null; the client retries on its own refresh cadence.
func (h *Handler) prices(w http.ResponseWriter, r *http.Request) {
	options := payment.Options()
	sources := make([]pricing.NamedSource, len(options))
	for i, o := range options {
		sources[i] = pricing.NamedSource{ID: o.ID, Source: o.PriceSource}
	}

	quotes := pricing.FetchAll(r.Context(), h.quoter, sources)

	out := make(map[string]*float64, len(quotes))
	for id, price := range quotes {
		if price == nil {
			out[id] = nil
			continue
		}
		f := price.InexactFloat64()
		out[id] = &f
	}
	respondJSON(w, http.StatusOK, map[string]any{"prices": out})
}

type quoteItemRequest struct {
	Product string `json:"product"`
	Qty     int    `json:"qty"`
}

type checkoutQuoteRequest struct {
	Items          []quoteItemRequest `json:"items"`
	ShippingOption string             `json:"shipping_option"`
	PaymentMethod  string             `json:"payment_method"`
}

type checkoutQuoteResponse struct {
	Subtotal      float64 `json:"subtotal"`
	Shipping      float64 `json:"shipping"`
	TotalUSD      float64 `json:"total_usd"`
	PaymentMethod string  `json:"payment_method"`
	Chain         string  `json:"chain"`
	PriceUSD      float64 `json:"price_usd"`
	// TokenAmount is the exact token quantity to send, as a decimal string
	// so precision survives JSON round trips.
	TokenAmount string `json:"token_amount"`
	Decimals    int    `json:"decimals"`
}

// checkoutQuote answers "how much token X should I send for this cart right
// now": server-side subtotal + shipping, a live price quote and the exact
// token amount including the settlement buffer. The quantity clamp against
// remaining capacity here is advisory; the authoritative check happens at
// order insert time.
func (h *Handler) checkoutQuote(w http.ResponseWriter, r *http.Request) {
	var req checkoutQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "items: non-empty list required")
		return
	}

	rate, ok := order.ShippingRate(req.ShippingOption)
	if !ok {
		respondError(w, http.StatusBadRequest, "shipping_option: must be overnight or 2day")
		return
	}
	option, err := payment.OptionByID(req.PaymentMethod)
	if err != nil {
		respondError(w, http.StatusBadRequest, "payment_method: unknown payment method")
		return
	}

	c := cart.New()
	if usage, err := h.ledger.Remaining(r.Context()); err == nil {
		c.SetWeeklyAvailable(usage.Available)
	} else {
		// Advisory clamp only: quote against the cart ceiling and let the
		// insert-time check reject if capacity is actually gone.
		zctx.From(r.Context()).Warn("inventory unavailable for quote clamp", zap.Error(err))
	}
	for _, it := range req.Items {
		if err := c.Add(it.Product, it.Qty); err != nil {
			var limitErr *cart.LimitError
			if errors.As(err, &limitErr) {
				respondError(w, http.StatusTooManyRequests, limitErr.Error())
				return
			}
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	priceUSD, ok := h.quoter.PriceUSD(r.Context(), option.PriceSource)
	if !ok {
		respondError(w, http.StatusServiceUnavailable, "price unavailable")
		return
	}

	subtotal := c.Subtotal()
	total := subtotal.Add(rate).Round(2)
	amount := payment.TokenAmount(total, priceUSD)

	respondJSON(w, http.StatusOK, checkoutQuoteResponse{
		Subtotal:      subtotal.InexactFloat64(),
		Shipping:      rate.InexactFloat64(),
		TotalUSD:      total.InexactFloat64(),
		PaymentMethod: option.ID,
		Chain:         string(option.Chain),
		PriceUSD:      priceUSD.InexactFloat64(),
		TokenAmount:   amount.StringFixed(6),
		Decimals:      option.Decimals,
	})
}

type paymentOptionResponse struct {
	ID              string  `json:"id"`
	Label           string  `json:"label"`
	Token           string  `json:"token"`
	Chain           string  `json:"chain"`
	ChainID         int     `json:"chainId"`
	ContractAddress *string `json:"contractAddress"`
	Decimals        int     `json:"decimals"`
}

// paymentOptions lists the static payment configuration for checkout UIs.
func (h *Handler) paymentOptions(w http.ResponseWriter, _ *http.Request) {
	options := payment.Options()
	out := make([]paymentOptionResponse, len(options))
	for i, o := range options {
		var contract *string
		if o.ContractAddress != "" {
			addr := o.ContractAddress
			contract = &addr
		}
		out[i] = paymentOptionResponse{
			ID:              o.ID,
			Label:           o.Label,
			Token:           o.Token,
			Chain:           string(o.Chain),
			ChainID:         o.ChainID,
			ContractAddress: contract,
			Decimals:        o.Decimals,
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"options": out})
}
