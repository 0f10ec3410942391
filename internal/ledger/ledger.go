// Package ledger owns all persisted trading state. Orchestration components
// stay stateless and hand their results to the ledger, which records them and
// later reconciles pending trades against on-chain receipts.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/smartape/apebot/internal/domain"
)

// Pub/sub channels carrying live ledger events to the websocket hub.
const (
	ChannelTrades = "events:trades"
	ChannelPrices = "events:prices"
	ChannelArbs   = "events:arbitrage"
)

// TradeEvent is the payload published whenever a trade is recorded or its
// status resolves.
type TradeEvent struct {
	Type     string             `json:"type"`
	TxHash   string             `json:"tx_hash,omitempty"`
	Status   domain.TradeStatus `json:"status"`
	TokenIn  string             `json:"token_in"`
	TokenOut string             `json:"token_out"`
	AmountIn string             `json:"amount_in"`
}

// PriceEvent is the payload published for each fresh price observation.
type PriceEvent struct {
	Type         string `json:"type"`
	TokenAddress string `json:"token_address"`
	Price        string `json:"price"`
}

// ArbEvent is the payload published when an opportunity is detected.
type ArbEvent struct {
	Type             string   `json:"type"`
	TokenPath        []string `json:"token_path"`
	ProfitPercentage string   `json:"profit_percentage"`
}

// Ledger records trades, prices, and opportunities, and reconciles trade
// statuses against the chain.
type Ledger struct {
	wallets  domain.WalletStore
	trades   domain.TradeStore
	prices   domain.PriceStore
	arbs     domain.ArbStore
	receipts domain.ReceiptReader
	bus      domain.SignalBus
	logger   *slog.Logger
}

// New wires a Ledger. bus may be nil when no live consumers exist (sweep-only
// mode); events are then dropped.
func New(wallets domain.WalletStore, trades domain.TradeStore, prices domain.PriceStore,
	arbs domain.ArbStore, receipts domain.ReceiptReader, bus domain.SignalBus,
	logger *slog.Logger) *Ledger {
	return &Ledger{
		wallets:  wallets,
		trades:   trades,
		prices:   prices,
		arbs:     arbs,
		receipts: receipts,
		bus:      bus,
		logger:   logger.With(slog.String("component", "ledger")),
	}
}

// RegisterWallet makes a custody wallet reference known to the ledger so
// trades can later be recorded against it.
func (l *Ledger) RegisterWallet(ctx context.Context, ref, address string) (int64, error) {
	return l.wallets.Upsert(ctx, ref, address)
}

// RecordTrade persists one trade attempt under the given wallet reference.
// An unknown reference is a caller/collaborator mismatch and surfaces as
// domain.ErrWalletNotFound with nothing recorded. A trade without a tx hash
// is stored FAILED (submission never happened); with a hash it is stored
// PENDING unless the caller set a status explicitly.
func (l *Ledger) RecordTrade(ctx context.Context, walletRef string, t domain.Trade) (int64, error) {
	walletID, err := l.wallets.Resolve(ctx, walletRef)
	if err != nil {
		return 0, fmt.Errorf("ledger: record trade for %q: %w", walletRef, err)
	}
	t.WalletID = walletID

	if t.Status == "" {
		if t.TxHash == nil {
			t.Status = domain.TradeFailed
		} else {
			t.Status = domain.TradePending
		}
	}
	if t.TxHash == nil && t.Status != domain.TradeFailed {
		return 0, fmt.Errorf("ledger: trade without tx hash must be FAILED, got %s", t.Status)
	}

	id, err := l.trades.Insert(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("ledger: record trade: %w", err)
	}

	hash := ""
	if t.TxHash != nil {
		hash = *t.TxHash
	}
	l.publish(ctx, ChannelTrades, TradeEvent{
		Type:     "trade_recorded",
		TxHash:   hash,
		Status:   t.Status,
		TokenIn:  t.TokenIn,
		TokenOut: t.TokenOut,
		AmountIn: t.AmountIn,
	})
	return id, nil
}

// TradeStatus returns the status of the trade with the given hash. Terminal
// statuses come straight from the store with no RPC. A PENDING trade triggers
// one receipt lookup: no receipt keeps it PENDING, a receipt resolves it and
// the new status is persisted before returning. found is false for a hash the
// ledger has never seen.
func (l *Ledger) TradeStatus(ctx context.Context, txHash string) (domain.TradeStatus, bool, error) {
	t, err := l.trades.GetByTxHash(ctx, txHash)
	if errors.Is(err, domain.ErrTradeNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ledger: trade status %s: %w", txHash, err)
	}

	if t.Status.Terminal() {
		return t.Status, true, nil
	}

	status, err := l.resolvePending(ctx, t)
	if err != nil {
		return "", true, err
	}
	return status, true, nil
}

// SweepPending reconciles every PENDING trade against the chain. Each trade
// resolves independently: a transient failure is logged and skipped, never
// escalated to abort the sweep. It returns how many trades reached a terminal
// state.
func (l *Ledger) SweepPending(ctx context.Context) (int, error) {
	pending, err := l.trades.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("ledger: sweep: %w", err)
	}

	resolved := 0
	for _, t := range pending {
		status, err := l.resolvePending(ctx, t)
		if err != nil {
			l.logger.Warn("sweep: trade left unresolved",
				slog.String("tx_hash", deref(t.TxHash)),
				slog.String("error", err.Error()))
			continue
		}
		if status.Terminal() {
			resolved++
		}
	}
	if len(pending) > 0 {
		l.logger.Info("sweep finished",
			slog.Int("pending", len(pending)),
			slog.Int("resolved", resolved))
	}
	return resolved, nil
}

// resolvePending runs one receipt lookup for a PENDING trade and persists the
// outcome. A trade that somehow lost its hash is a data error.
func (l *Ledger) resolvePending(ctx context.Context, t domain.Trade) (domain.TradeStatus, error) {
	if t.TxHash == nil {
		return "", fmt.Errorf("ledger: pending trade %d has no tx hash", t.ID)
	}

	receipt, found, err := l.receipts.Receipt(ctx, *t.TxHash)
	if err != nil {
		return "", fmt.Errorf("ledger: receipt lookup: %w", err)
	}
	if !found {
		// Still in flight.
		return domain.TradePending, nil
	}

	status := domain.TradeFailed
	if receipt.Succeeded() {
		status = domain.TradeCompleted
	}
	if err := l.trades.UpdateStatus(ctx, *t.TxHash, status); err != nil {
		// A concurrent resolver may have won the transition; the stored state
		// is authoritative either way.
		if errors.Is(err, domain.ErrTradeNotFound) {
			current, gerr := l.trades.GetByTxHash(ctx, *t.TxHash)
			if gerr == nil && current.Status.Terminal() {
				return current.Status, nil
			}
		}
		return "", fmt.Errorf("ledger: persist status: %w", err)
	}

	l.publish(ctx, ChannelTrades, TradeEvent{
		Type:     "trade_resolved",
		TxHash:   *t.TxHash,
		Status:   status,
		TokenIn:  t.TokenIn,
		TokenOut: t.TokenOut,
		AmountIn: t.AmountIn,
	})
	return status, nil
}

// RecordPrice appends one price observation.
func (l *Ledger) RecordPrice(ctx context.Context, sample domain.PriceSample) error {
	if err := l.prices.Insert(ctx, sample); err != nil {
		return fmt.Errorf("ledger: record price: %w", err)
	}
	l.publish(ctx, ChannelPrices, PriceEvent{
		Type:         "price_sample",
		TokenAddress: sample.TokenAddress,
		Price:        sample.Price,
	})
	return nil
}

// RecordOpportunity appends one detected arbitrage opportunity.
func (l *Ledger) RecordOpportunity(ctx context.Context, o domain.ArbOpportunity) error {
	if err := l.arbs.Insert(ctx, o); err != nil {
		return fmt.Errorf("ledger: record opportunity: %w", err)
	}
	l.publish(ctx, ChannelArbs, ArbEvent{
		Type:             "arbitrage_detected",
		TokenPath:        o.TokenPath,
		ProfitPercentage: o.ProfitPercentage,
	})
	return nil
}

// RecentTrades lists a wallet's trades, newest first.
func (l *Ledger) RecentTrades(ctx context.Context, walletRef string, limit int) ([]domain.Trade, error) {
	walletID, err := l.wallets.Resolve(ctx, walletRef)
	if err != nil {
		return nil, fmt.Errorf("ledger: recent trades for %q: %w", walletRef, err)
	}
	return l.trades.ListRecent(ctx, walletID, limit)
}

// RecentPrices lists the newest samples for a token.
func (l *Ledger) RecentPrices(ctx context.Context, tokenAddress string, limit int) ([]domain.PriceSample, error) {
	return l.prices.ListRecent(ctx, tokenAddress, limit)
}

// ActiveOpportunities lists DETECTED opportunities, most profitable first.
func (l *Ledger) ActiveOpportunities(ctx context.Context) ([]domain.ArbOpportunity, error) {
	return l.arbs.ListDetected(ctx)
}

// publish sends an event on the signal bus. Delivery is best effort: a bus
// failure never fails the ledger operation that triggered it.
func (l *Ledger) publish(ctx context.Context, channel string, event any) {
	if l.bus == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		l.logger.Warn("marshal event", slog.String("error", err.Error()))
		return
	}
	if err := l.bus.Publish(ctx, channel, payload); err != nil {
		l.logger.Warn("publish event",
			slog.String("channel", channel),
			slog.String("error", err.Error()))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
