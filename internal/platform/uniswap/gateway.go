// Package uniswap is the quote and swap gateway for a single Uniswap V3
// deployment. Quotes go through eth_call; swaps go through the custody
// wallet, which signs and submits exactInputSingle on the agent's behalf.
package uniswap

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/smartape/apebot/internal/domain"
)

// ContractCaller executes a read-only contract call and returns the raw
// return data.
type ContractCaller interface {
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// SwapParams describes one exact-input single-hop swap.
type SwapParams struct {
	TokenIn      string
	TokenOut     string
	Recipient    string
	AmountIn     *big.Int
	MinAmountOut *big.Int
}

// SwapOutcome carries what the orchestrator needs to record a submitted
// swap. TxHash may be set even when SubmitSwap returns an error, if the
// transaction was broadcast before reverting.
type SwapOutcome struct {
	TxHash   string
	GasPrice *big.Int
}

// Gateway quotes and executes swaps against one exchange deployment.
type Gateway struct {
	caller   ContractCaller
	router   string
	fee      int64
	deadline time.Duration
	abi      abi.ABI

	// now is swapped out in tests to pin the deadline.
	now func() time.Time
}

var _ domain.Quoter = (*Gateway)(nil)

// NewGateway builds a Gateway for the router contract at routerAddress.
// fee is the pool fee tier in hundredths of a bip (3000 = 0.3%); deadline is
// the validity window stamped into each swap.
func NewGateway(caller ContractCaller, routerAddress string, fee int64, deadline time.Duration) (*Gateway, error) {
	parsed, err := abi.JSON(strings.NewReader(routerABI))
	if err != nil {
		return nil, fmt.Errorf("uniswap: parse router abi: %w", err)
	}
	return &Gateway{
		caller:   caller,
		router:   routerAddress,
		fee:      fee,
		deadline: deadline,
		abi:      parsed,
		now:      time.Now,
	}, nil
}

// Quote returns the expected output of swapping amountIn of tokenIn for
// tokenOut at the configured fee tier. Any failure to obtain a usable quote
// wraps domain.ErrQuoteUnavailable.
func (g *Gateway) Quote(ctx context.Context, tokenIn, tokenOut string, amountIn *big.Int) (*big.Int, error) {
	data, err := g.abi.Pack("quoteExactInputSingle",
		common.HexToAddress(tokenIn),
		common.HexToAddress(tokenOut),
		big.NewInt(g.fee),
		amountIn,
		big.NewInt(0),
	)
	if err != nil {
		return nil, fmt.Errorf("uniswap: pack quote: %w", err)
	}

	raw, err := g.caller.Call(ctx, common.HexToAddress(g.router), data)
	if err != nil {
		return nil, fmt.Errorf("uniswap: quote %s->%s: %w: %w",
			tokenIn, tokenOut, domain.ErrQuoteUnavailable, err)
	}
	out, err := g.abi.Unpack("quoteExactInputSingle", raw)
	if err != nil {
		return nil, fmt.Errorf("uniswap: unpack quote: %w: %w", domain.ErrQuoteUnavailable, err)
	}

	amountOut := out[0].(*big.Int)
	if amountOut.Sign() <= 0 {
		return nil, fmt.Errorf("uniswap: zero quote for %s->%s: %w",
			tokenIn, tokenOut, domain.ErrQuoteUnavailable)
	}
	return amountOut, nil
}

// ValidateSlippage rejects slippage percentages outside [0, 100). Callers
// run this before any network round trip so a bad request fails fast.
func ValidateSlippage(slippagePct float64) error {
	if slippagePct < 0 || slippagePct >= 100 ||
		math.IsNaN(slippagePct) || math.IsInf(slippagePct, 0) {
		return fmt.Errorf("uniswap: slippage %v out of range [0, 100): %w",
			slippagePct, domain.ErrInvalidSlippage)
	}
	return nil
}

// ComputeMinOutput applies a slippage percentage to a quoted output and
// returns floor(quote * (1 - slippagePct/100)). slippagePct is a percentage
// (0.5 means 0.5%) and must satisfy 0 <= slippagePct < 100. The arithmetic
// is exact decimal: the percentage is never quantized, so sub-basis-point
// slippage keeps its full protection.
func ComputeMinOutput(quote *big.Int, slippagePct float64) (*big.Int, error) {
	if err := ValidateSlippage(slippagePct); err != nil {
		return nil, err
	}

	retained := decimal.NewFromInt(100).Sub(decimal.NewFromFloat(slippagePct))
	min := decimal.NewFromBigInt(quote, 0).Mul(retained).Shift(-2).Floor()
	return min.BigInt(), nil
}

// SubmitSwap estimates gas for the swap, then routes it through the custody
// wallet and waits for submission. Gas estimation failures wrap
// domain.ErrGasEstimation and happen before anything reaches the chain;
// submission failures wrap domain.ErrSwapFailed.
func (g *Gateway) SubmitSwap(ctx context.Context, wallet domain.Wallet, p SwapParams) (SwapOutcome, error) {
	deadline := g.now().Add(g.deadline).Unix()
	call := domain.ContractCall{
		Contract: g.router,
		Method:   "exactInputSingle",
		Args: map[string]any{
			"tokenIn":           p.TokenIn,
			"tokenOut":          p.TokenOut,
			"fee":               g.fee,
			"recipient":         p.Recipient,
			"deadline":          deadline,
			"amountIn":          p.AmountIn.String(),
			"amountOutMinimum":  p.MinAmountOut.String(),
			"sqrtPriceLimitX96": "0",
		},
	}

	est, err := wallet.EstimateGas(ctx, call)
	if err != nil {
		return SwapOutcome{}, fmt.Errorf("uniswap: %w: %w", domain.ErrGasEstimation, err)
	}

	inv, err := wallet.InvokeContract(ctx, call)
	outcome := SwapOutcome{TxHash: inv.TxHash, GasPrice: est.GasPrice}
	if err != nil {
		return outcome, fmt.Errorf("uniswap: %w: %w", domain.ErrSwapFailed, err)
	}
	if !inv.Success {
		return outcome, fmt.Errorf("uniswap: swap reverted: %s: %w", inv.Revert, domain.ErrSwapFailed)
	}
	return outcome, nil
}
