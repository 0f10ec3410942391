package handler

import (
	"log/slog"
	"net/http"
	"regexp"

	"github.com/smartape/apebot/internal/ledger"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// PricesHandler serves recorded price observations.
type PricesHandler struct {
	ledger *ledger.Ledger
	logger *slog.Logger
}

// NewPricesHandler creates a PricesHandler.
func NewPricesHandler(l *ledger.Ledger, logger *slog.Logger) *PricesHandler {
	return &PricesHandler{ledger: l, logger: logger}
}

// ListPrices returns recent price samples for one token, newest first.
// GET /api/prices/{token}
func (h *PricesHandler) ListPrices(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if !addressPattern.MatchString(token) {
		writeError(w, http.StatusBadRequest, "invalid token address")
		return
	}

	samples, err := h.ledger.RecentPrices(r.Context(), token, parseLimit(r))
	if err != nil {
		h.logger.Error("list prices", slog.String("token", token),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list prices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":  token,
		"prices": samples,
	})
}
