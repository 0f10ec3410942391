package handler

import (
	"log/slog"
	"net/http"

	"github.com/smartape/apebot/internal/ledger"
)

// ArbHandler serves recorded arbitrage opportunities.
type ArbHandler struct {
	ledger *ledger.Ledger
	logger *slog.Logger
}

// NewArbHandler creates an ArbHandler.
func NewArbHandler(l *ledger.Ledger, logger *slog.Logger) *ArbHandler {
	return &ArbHandler{ledger: l, logger: logger}
}

// ListRecent returns the opportunities still marked DETECTED.
// GET /api/arbitrage/recent
func (h *ArbHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	opps, err := h.ledger.ActiveOpportunities(r.Context())
	if err != nil {
		h.logger.Error("list opportunities", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"opportunities": opps})
}
