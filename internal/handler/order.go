package handler

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ovenworks/breadstore/internal/domain/inventory"
	"github.com/ovenworks/breadstore/internal/domain/order"
)

type orderItemRequest struct {
	Product string  `json:"product"`
	Qty     int     `json:"qty"`
	Price   float64 `json:"price"`
}

type createOrderRequest struct {
	CustomerName   string             `json:"customer_name"`
	Email          string             `json:"email"`
	Address        string             `json:"address"`
	City           string             `json:"city"`
	State          string             `json:"state"`
	Zip            string             `json:"zip"`
	Phone          string             `json:"phone"`
	Items          []orderItemRequest `json:"items"`
	ShippingOption string             `json:"shipping_option"`
	PaymentMethod  string             `json:"payment_method"`
	PaymentAmount  string             `json:"payment_amount"`
	TotalUSD       float64            `json:"total_usd"`
	TxHash         string             `json:"tx_hash"`
	Notes          string             `json:"notes"`
}

type createOrderResponse struct {
	OrderID string `json:"orderId"`
}

// createOrder validates the incoming draft, re-checks the weekly supply
// window at write time and persists the order. Payment is assumed confirmed
// upstream unless a settlement verifier is wired into the intake service.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if math.IsNaN(req.TotalUSD) || math.IsInf(req.TotalUSD, 0) {
		respondError(w, http.StatusBadRequest, "total_usd: must be a finite number")
		return
	}

	items := make([]order.DraftItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.DraftItem{
			Product: it.Product,
			Qty:     it.Qty,
			Price:   decimal.NewFromFloat(it.Price),
		}
	}

	draft := order.Draft{
		CustomerName:   req.CustomerName,
		Email:          req.Email,
		Address:        req.Address,
		City:           req.City,
		State:          req.State,
		Zip:            req.Zip,
		Phone:          req.Phone,
		Items:          items,
		ShippingOption: req.ShippingOption,
		PaymentMethod:  req.PaymentMethod,
		PaymentAmount:  req.PaymentAmount,
		TotalUSD:       decimal.NewFromFloat(req.TotalUSD),
		TxHash:         req.TxHash,
		Notes:          req.Notes,
	}

	id, err := h.orders.Submit(r.Context(), draft)
	if err != nil {
		h.respondOrderError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, createOrderResponse{OrderID: id})
}

// respondOrderError maps intake errors to status codes. Validation and
// capacity rejections are expected, user-facing outcomes and are not logged
// as system errors.
func (h *Handler) respondOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *order.ValidationError
	if errors.As(err, &vErr) {
		respondError(w, http.StatusBadRequest, vErr.Error())
		return
	}

	var capErr *inventory.CapacityError
	if errors.As(err, &capErr) {
		respondError(w, http.StatusTooManyRequests, capacityMessage(capErr))
		return
	}

	var subErr *order.SubmissionError
	if errors.As(err, &subErr) {
		respondError(w, http.StatusPaymentRequired, subErr.Error())
		return
	}

	zctx.From(r.Context()).Error("order creation failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "order failed")
}

func capacityMessage(e *inventory.CapacityError) string {
	return fmt.Sprintf(
		"Weekly supply limit reached (%d baked goods/week). %d already sold — please try again next week.",
		e.Cap, e.Sold)
}
