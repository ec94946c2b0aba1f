package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// weeklyInventory reports the weekly supply window. Storage failures are
// logged in detail and surfaced as a generic 500: callers must not assume
// any remaining capacity from an error response.
func (h *Handler) weeklyInventory(w http.ResponseWriter, r *http.Request) {
	usage, err := h.ledger.Remaining(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("weekly inventory read failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to fetch inventory")
		return
	}
	respondJSON(w, http.StatusOK, usage)
}
