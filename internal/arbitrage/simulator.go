// Package arbitrage simulates multi-hop swap paths against the exchange
// quoter and records the profitable ones. Simulation is read-only: nothing
// here ever submits a transaction.
package arbitrage

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/smartape/apebot/internal/domain"
)

// Recorder persists detected opportunities. Satisfied by the ledger.
type Recorder interface {
	RecordOpportunity(ctx context.Context, o domain.ArbOpportunity) error
}

// Result is one simulated round trip along a token path.
type Result struct {
	Path     []string
	AmountIn *big.Int
	// HopAmounts holds the output of each hop; the last entry is the final
	// output amount.
	HopAmounts       []*big.Int
	ProfitPercentage decimal.Decimal
	Profitable       bool
}

// AmountOut is the final output of the simulated path.
func (r Result) AmountOut() *big.Int {
	if len(r.HopAmounts) == 0 {
		return nil
	}
	return r.HopAmounts[len(r.HopAmounts)-1]
}

// Simulator quotes token paths hop by hop and reports round-trip profit.
type Simulator struct {
	quoter    domain.Quoter
	recorder  Recorder
	minProfit decimal.Decimal
	logger    *slog.Logger
}

// NewSimulator creates a Simulator. minProfitPct is the profit percentage a
// path must clear before it is recorded as an opportunity.
func NewSimulator(quoter domain.Quoter, recorder Recorder, minProfitPct float64, logger *slog.Logger) *Simulator {
	return &Simulator{
		quoter:    quoter,
		recorder:  recorder,
		minProfit: decimal.NewFromFloat(minProfitPct),
		logger:    logger.With(slog.String("component", "arbitrage")),
	}
}

// Check simulates swapping amountIn along path and compares the final output
// with the input. Paths normally start and end on the same token so the
// percentage is a true round-trip profit. A profitable path is recorded as a
// DETECTED opportunity before returning.
func (s *Simulator) Check(ctx context.Context, path []string, amountIn *big.Int) (Result, error) {
	if len(path) < 2 {
		return Result{}, fmt.Errorf("arbitrage: path needs at least 2 tokens, got %d", len(path))
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return Result{}, fmt.Errorf("arbitrage: input amount must be positive: %w", domain.ErrInvalidAmount)
	}

	res := Result{Path: path, AmountIn: amountIn}
	current := amountIn
	for i := 0; i < len(path)-1; i++ {
		out, err := s.quoter.Quote(ctx, path[i], path[i+1], current)
		if err != nil {
			return res, fmt.Errorf("arbitrage: hop %s->%s: %w", path[i], path[i+1], err)
		}
		res.HopAmounts = append(res.HopAmounts, out)
		current = out
	}

	in := decimal.NewFromBigInt(amountIn, 0)
	out := decimal.NewFromBigInt(current, 0)
	res.ProfitPercentage = out.Sub(in).Div(in).Mul(decimal.NewFromInt(100))
	res.Profitable = res.ProfitPercentage.GreaterThan(s.minProfit)

	if !res.Profitable {
		s.logger.Debug("path not profitable",
			slog.String("profit_pct", res.ProfitPercentage.String()))
		return res, nil
	}

	opp := domain.ArbOpportunity{
		TokenPath:        path,
		ProfitPercentage: res.ProfitPercentage.StringFixed(6),
		MinInputAmount:   amountIn.String(),
		Status:           domain.ArbDetected,
	}
	if err := s.recorder.RecordOpportunity(ctx, opp); err != nil {
		return res, fmt.Errorf("arbitrage: record opportunity: %w", err)
	}
	s.logger.Info("opportunity detected",
		slog.String("profit_pct", opp.ProfitPercentage),
		slog.String("input", opp.MinInputAmount))
	return res, nil
}
