package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/smartape/apebot/internal/arbitrage"
	"github.com/smartape/apebot/internal/domain"
	"github.com/smartape/apebot/internal/ledger"
	"github.com/smartape/apebot/internal/trading"
)

// ethDecimals is the precision of the reference unit prices are quoted in.
const ethDecimals = 18

// Toolkit holds the callable tools and turns their typed results into the
// user-visible strings the chat stream relays. Every method returns a
// descriptive message rather than surfacing an error past this boundary, so
// the dispatcher never has to re-derive failure context.
type Toolkit struct {
	orchestrator *trading.Orchestrator
	ledger       *ledger.Ledger
	quoter       domain.Quoter
	assets       domain.AssetFetcher
	cache        domain.PriceCache
	simulator    *arbitrage.Simulator
	walletRef    string
	book         TokenBook
	// defaultSlippage applies when a request does not carry one.
	defaultSlippage float64
	// arbProbeAmount is the input used for round-trip arbitrage checks, in
	// atomic units of USDC.
	arbProbeAmount *big.Int
	logger         *slog.Logger
}

// ToolkitConfig wires a Toolkit.
type ToolkitConfig struct {
	Orchestrator    *trading.Orchestrator
	Ledger          *ledger.Ledger
	Quoter          domain.Quoter
	Assets          domain.AssetFetcher
	Cache           domain.PriceCache
	Simulator       *arbitrage.Simulator
	WalletRef       string
	Book            TokenBook
	DefaultSlippage float64
	Logger          *slog.Logger
}

// NewToolkit creates a Toolkit.
func NewToolkit(cfg ToolkitConfig) *Toolkit {
	return &Toolkit{
		orchestrator:    cfg.Orchestrator,
		ledger:          cfg.Ledger,
		quoter:          cfg.Quoter,
		assets:          cfg.Assets,
		cache:           cfg.Cache,
		simulator:       cfg.Simulator,
		walletRef:       cfg.WalletRef,
		book:            cfg.Book,
		defaultSlippage: cfg.DefaultSlippage,
		arbProbeAmount:  big.NewInt(1_000_000_000), // 1000 USDC
		logger:          cfg.Logger.With(slog.String("component", "toolkit")),
	}
}

// ExecuteSwap runs the swap workflow and records the attempt. The returned
// message names the failing step so the user knows exactly where it stopped.
func (t *Toolkit) ExecuteSwap(ctx context.Context, intent Intent) string {
	slippage := intent.Slippage
	if slippage < 0 {
		slippage = t.defaultSlippage
	}

	res, err := t.orchestrator.Execute(ctx, trading.SwapRequest{
		TokenIn:  intent.TokenIn,
		TokenOut: intent.TokenOut,
		Amount:   intent.Amount,
		Slippage: slippage,
	})

	// A trade is recorded once submission was attempted, whether or not a
	// transaction made it on-chain.
	if res.MinAmountOut != nil {
		t.recordSwap(ctx, res, err)
	}

	if err == nil {
		minOut := res.AssetOut.FromAtomic(res.MinAmountOut)
		return fmt.Sprintf("Successfully swapped %s %s for at least %s %s. Transaction hash: %s",
			intent.Amount, res.AssetIn.Symbol, minOut, res.AssetOut.Symbol, res.TxHash)
	}

	var insufficient *domain.InsufficientBalanceError
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return fmt.Sprintf("Error: swap amount must be greater than 0, got %s.", intent.Amount)
	case errors.Is(err, domain.ErrInvalidSlippage):
		return fmt.Sprintf("Error: slippage must be at least 0 and below 100, got %v.", slippage)
	case errors.As(err, &insufficient):
		return fmt.Sprintf("Error: insufficient %s balance: have %s, need %s (atomic units).",
			res.AssetIn.Symbol, insufficient.Have, insufficient.Need)
	case errors.Is(err, domain.ErrApprovalFailed):
		return fmt.Sprintf("Error approving token: %v", err)
	case errors.Is(err, domain.ErrQuoteUnavailable):
		return fmt.Sprintf("Error getting quote: %v", err)
	case errors.Is(err, domain.ErrGasEstimation):
		return fmt.Sprintf("Error estimating gas: %v", err)
	case errors.Is(err, domain.ErrSwapFailed):
		return fmt.Sprintf("Error executing swap: %v", err)
	default:
		return fmt.Sprintf("Error executing swap: %v", err)
	}
}

// recordSwap persists the attempt through the ledger. Recording failures are
// logged, never surfaced into the chat reply; an unknown wallet reference is
// a wiring bug and logged at error level.
func (t *Toolkit) recordSwap(ctx context.Context, res trading.SwapResult, execErr error) {
	trade := domain.Trade{
		TokenIn:      res.AssetIn.Address,
		TokenOut:     res.AssetOut.Address,
		AmountIn:     res.AmountIn.String(),
		MinAmountOut: res.MinAmountOut.String(),
	}
	if res.TxHash != "" {
		hash := res.TxHash
		trade.TxHash = &hash
	}
	if res.GasPrice != nil {
		price := res.GasPrice.String()
		trade.GasPrice = &price
	}
	if execErr != nil {
		trade.Status = domain.TradeFailed
	}

	if _, err := t.ledger.RecordTrade(ctx, t.walletRef, trade); err != nil {
		level := slog.LevelWarn
		if errors.Is(err, domain.ErrWalletNotFound) {
			level = slog.LevelError
		}
		t.logger.Log(ctx, level, "record trade failed",
			slog.String("tx_hash", res.TxHash),
			slog.String("error", err.Error()))
	}
}

// CheckTradeStatus reconciles one trade against the chain and reports its
// current status.
func (t *Toolkit) CheckTradeStatus(ctx context.Context, txHash string) string {
	status, found, err := t.ledger.TradeStatus(ctx, txHash)
	if err != nil {
		return fmt.Sprintf("Error checking trade status: %v", err)
	}
	if !found {
		return fmt.Sprintf("No trade found with transaction hash %s.", txHash)
	}
	return fmt.Sprintf("Trade %s status: %s.", txHash, status)
}

// TokenPrice reports a token's price in ETH terms, serving from the cache
// when a fresh observation exists and recording each fresh read.
func (t *Toolkit) TokenPrice(ctx context.Context, token string) string {
	asset, err := t.assets.Asset(ctx, token)
	if err != nil {
		return fmt.Sprintf("Error resolving token %s: %v", token, err)
	}

	if t.cache != nil {
		if price, _, err := t.cache.GetPrice(ctx, token); err == nil {
			return fmt.Sprintf("Current price of %s: %s ETH.", asset.Symbol, price)
		}
	}

	price, err := t.freshPrice(ctx, token, asset)
	if err != nil {
		return fmt.Sprintf("Error getting price for %s: %v", asset.Symbol, err)
	}

	now := time.Now().UTC()
	if t.cache != nil {
		if err := t.cache.SetPrice(ctx, token, price, now); err != nil {
			t.logger.Warn("cache price", slog.String("error", err.Error()))
		}
	}
	if err := t.ledger.RecordPrice(ctx, domain.PriceSample{
		TokenAddress: token,
		Price:        price,
		Timestamp:    now,
	}); err != nil {
		t.logger.Warn("record price", slog.String("error", err.Error()))
	}
	return fmt.Sprintf("Current price of %s: %s ETH.", asset.Symbol, price)
}

// freshPrice quotes one whole token into WETH.
func (t *Toolkit) freshPrice(ctx context.Context, token string, asset domain.Asset) (string, error) {
	if token == t.book.WETH {
		return "1", nil
	}

	oneToken := asset.ToAtomic(decimal.NewFromInt(1))
	out, err := t.quoter.Quote(ctx, token, t.book.WETH, oneToken)
	if err != nil {
		return "", err
	}
	return decimal.NewFromBigInt(out, 0).Shift(-ethDecimals).String(), nil
}

// CheckArbitrage probes the USDC -> WETH -> USDC round trip and reports
// whether it clears the profit threshold. Profitable paths are recorded by
// the simulator.
func (t *Toolkit) CheckArbitrage(ctx context.Context) string {
	path := []string{t.book.USDC, t.book.WETH, t.book.USDC}
	res, err := t.simulator.Check(ctx, path, t.arbProbeAmount)
	if err != nil {
		return fmt.Sprintf("Error checking arbitrage: %v", err)
	}

	pct := res.ProfitPercentage.StringFixed(4)
	if res.Profitable {
		return fmt.Sprintf("Arbitrage opportunity detected on USDC -> WETH -> USDC: %s%% profit on %s atomic USDC in. Recorded for review.",
			pct, t.arbProbeAmount)
	}
	return fmt.Sprintf("No profitable arbitrage right now: USDC -> WETH -> USDC round trip yields %s%%.", pct)
}
