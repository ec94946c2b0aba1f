// Package handler exposes the storefront HTTP API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ovenworks/breadstore/internal/domain/inventory"
	"github.com/ovenworks/breadstore/internal/domain/order"
	"github.com/ovenworks/breadstore/internal/pricing"
)

// Handler serves the storefront API, delegating business logic to the
// inventory ledger, order intake service and price oracle.
type Handler struct {
	ledger *inventory.Ledger
	orders *order.Service
	quoter pricing.Quoter
}

// New constructs a Handler with the required domain dependencies.
func New(ledger *inventory.Ledger, orders *order.Service, quoter pricing.Quoter) *Handler {
	return &Handler{ledger: ledger, orders: orders, quoter: quoter}
}

// Routes builds the API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)

	r.Get("/weekly-inventory", h.weeklyInventory)
	r.Post("/create-order", h.createOrder)
	r.Get("/prices", h.prices)
	r.Post("/checkout-quote", h.checkoutQuote)
	r.Get("/payment-options", h.paymentOptions)

	return r
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, code int, msg string) {
	respondJSON(w, code, errorResponse{Error: msg})
}
