package handler

import (
	"log/slog"
	"net/http"
	"regexp"

	"github.com/smartape/apebot/internal/ledger"
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// TradesHandler serves the trade ledger endpoints.
type TradesHandler struct {
	ledger    *ledger.Ledger
	walletRef string
	logger    *slog.Logger
}

// NewTradesHandler creates a TradesHandler scoped to the agent's wallet.
func NewTradesHandler(l *ledger.Ledger, walletRef string, logger *slog.Logger) *TradesHandler {
	return &TradesHandler{ledger: l, walletRef: walletRef, logger: logger}
}

// ListTrades returns the most recent trades, newest first.
// GET /api/trades
func (h *TradesHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.ledger.RecentTrades(r.Context(), h.walletRef, parseLimit(r))
	if err != nil {
		h.logger.Error("list trades", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}

// TradeStatus reconciles and returns the status of one trade by tx hash.
// GET /api/trades/{hash}
func (h *TradesHandler) TradeStatus(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	if !txHashPattern.MatchString(hash) {
		writeError(w, http.StatusBadRequest, "invalid transaction hash")
		return
	}

	status, found, err := h.ledger.TradeStatus(r.Context(), hash)
	if err != nil {
		h.logger.Error("trade status", slog.String("tx_hash", hash),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to check trade status")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no trade found with that transaction hash")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tx_hash": hash,
		"status":  status,
	})
}
