package trading

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/smartape/apebot/internal/domain"
	"github.com/smartape/apebot/internal/platform/uniswap"
)

// State is where a swap invocation currently stands. Any state can fall
// straight to StateFailed; there is no retry inside a single invocation.
type State string

const (
	StateValidating     State = "VALIDATING"
	StateBalanceChecked State = "BALANCE_CHECKED"
	StateApproved       State = "APPROVED"
	StateQuoted         State = "QUOTED"
	StateGasEstimated   State = "GAS_ESTIMATED"
	StateSubmitted      State = "SUBMITTED"
	StateSucceeded      State = "SUCCEEDED"
	StateFailed         State = "FAILED"
)

// SwapRequest is a parsed swap intent. Amount is in whole units of TokenIn;
// Slippage is a percentage of the quoted output.
type SwapRequest struct {
	TokenIn  string
	TokenOut string
	Amount   decimal.Decimal
	Slippage float64
}

// SwapResult is what an invocation produced, complete or not. On failure the
// fields filled before the failing step are still populated so the caller can
// record the attempt.
type SwapResult struct {
	State        State
	AssetIn      domain.Asset
	AssetOut     domain.Asset
	AmountIn     *big.Int
	Quote        *big.Int
	MinAmountOut *big.Int
	Approval     ApprovalOutcome
	GasPrice     *big.Int
	TxHash       string
}

// Approver keeps a spender authorized for exact amounts.
type Approver interface {
	Approve(ctx context.Context, wallet domain.Wallet, token string, amount *big.Int) (ApprovalOutcome, error)
}

// SwapGateway quotes and submits swaps on the exchange.
type SwapGateway interface {
	Quote(ctx context.Context, tokenIn, tokenOut string, amountIn *big.Int) (*big.Int, error)
	SubmitSwap(ctx context.Context, wallet domain.Wallet, p uniswap.SwapParams) (uniswap.SwapOutcome, error)
}

// Orchestrator drives one swap request end to end. It is stateless with
// respect to persistence: results go back to the dispatcher, which records
// them through the ledger.
type Orchestrator struct {
	wallet  domain.Wallet
	assets  domain.AssetFetcher
	approve Approver
	gateway SwapGateway
	logger  *slog.Logger
}

// NewOrchestrator wires the swap workflow's collaborators.
func NewOrchestrator(wallet domain.Wallet, assets domain.AssetFetcher, approver Approver, gateway SwapGateway, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		wallet:  wallet,
		assets:  assets,
		approve: approver,
		gateway: gateway,
		logger:  logger.With(slog.String("component", "orchestrator")),
	}
}

// Execute runs the swap state machine. Validation failures happen before any
// network call. Every step failure is terminal for this invocation; the
// returned result keeps whatever was established before the failure.
func (o *Orchestrator) Execute(ctx context.Context, req SwapRequest) (SwapResult, error) {
	res := SwapResult{State: StateValidating}

	// Validate before anything touches the network.
	if req.Amount.Sign() <= 0 {
		res.State = StateFailed
		return res, fmt.Errorf("trading: amount %s must be positive: %w",
			req.Amount, domain.ErrInvalidAmount)
	}
	if err := uniswap.ValidateSlippage(req.Slippage); err != nil {
		res.State = StateFailed
		return res, err
	}

	assetIn, err := o.assets.Asset(ctx, req.TokenIn)
	if err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("trading: resolve token in: %w", err)
	}
	res.AssetIn = assetIn
	assetOut, err := o.assets.Asset(ctx, req.TokenOut)
	if err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("trading: resolve token out: %w", err)
	}
	res.AssetOut = assetOut

	need := assetIn.ToAtomic(req.Amount)
	res.AmountIn = need

	// Balance check sums token_in across every address under the wallet.
	have, err := o.walletBalance(ctx, req.TokenIn, assetIn)
	if err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("trading: balance check: %w", err)
	}
	if have.Sign() == 0 || have.Cmp(need) < 0 {
		res.State = StateFailed
		return res, &domain.InsufficientBalanceError{Have: have, Need: need}
	}
	res.State = StateBalanceChecked

	outcome, err := o.approve.Approve(ctx, o.wallet, req.TokenIn, need)
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	res.Approval = outcome
	res.State = StateApproved

	quote, err := o.gateway.Quote(ctx, req.TokenIn, req.TokenOut, need)
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	res.Quote = quote
	res.State = StateQuoted

	minOut, err := uniswap.ComputeMinOutput(quote, req.Slippage)
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	res.MinAmountOut = minOut

	out, err := o.gateway.SubmitSwap(ctx, o.wallet, uniswap.SwapParams{
		TokenIn:      req.TokenIn,
		TokenOut:     req.TokenOut,
		Recipient:    o.wallet.Address(),
		AmountIn:     need,
		MinAmountOut: minOut,
	})
	res.TxHash = out.TxHash
	res.GasPrice = out.GasPrice
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	res.State = StateSucceeded

	o.logger.Info("swap submitted",
		slog.String("token_in", assetIn.Symbol),
		slog.String("token_out", assetOut.Symbol),
		slog.String("amount_in", need.String()),
		slog.String("min_out", minOut.String()),
		slog.String("tx_hash", out.TxHash))
	return res, nil
}

// walletBalance sums whole-unit balances across every wallet address and
// converts to atomic units with the token's decimals.
func (o *Orchestrator) walletBalance(ctx context.Context, token string, asset domain.Asset) (*big.Int, error) {
	addrs, err := o.wallet.Addresses(ctx)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, addr := range addrs {
		bal, err := o.wallet.Balance(ctx, addr, token)
		if err != nil {
			return nil, err
		}
		total = total.Add(bal)
	}
	return asset.ToAtomic(total), nil
}
