package trading

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/smartape/apebot/internal/domain"
	"github.com/smartape/apebot/internal/platform/uniswap"
)

const (
	usdcAddr = "0x036CbD53842c5426634e7929541eC2318f3dCF7e"
	wethAddr = "0x4200000000000000000000000000000000000006"
)

type fakeWallet struct {
	addresses []string
	balances  map[string]decimal.Decimal // address -> whole-unit token_in balance
	invokes   int
	invokeErr error
	success   bool
	txHash    string
}

func (f *fakeWallet) Ref() string     { return "wallet-1" }
func (f *fakeWallet) Address() string { return f.addresses[0] }
func (f *fakeWallet) Addresses(context.Context) ([]string, error) {
	return f.addresses, nil
}
func (f *fakeWallet) Balance(_ context.Context, address, _ string) (decimal.Decimal, error) {
	return f.balances[address], nil
}
func (f *fakeWallet) InvokeContract(context.Context, domain.ContractCall) (domain.Invocation, error) {
	f.invokes++
	if f.invokeErr != nil {
		return domain.Invocation{}, f.invokeErr
	}
	return domain.Invocation{TxHash: f.txHash, Success: f.success}, nil
}
func (f *fakeWallet) EstimateGas(context.Context, domain.ContractCall) (domain.GasEstimate, error) {
	return domain.GasEstimate{Gas: 210_000, GasPrice: big.NewInt(1_000_000)}, nil
}

type fakeAssets struct {
	calls int
}

func (f *fakeAssets) Asset(_ context.Context, token string) (domain.Asset, error) {
	f.calls++
	switch token {
	case usdcAddr:
		return domain.Asset{Address: token, Symbol: "USDC", Decimals: 6}, nil
	case wethAddr:
		return domain.Asset{Address: token, Symbol: "WETH", Decimals: 18}, nil
	}
	return domain.Asset{}, errors.New("unknown token")
}

type fakeAllowances struct {
	current *big.Int
	err     error
	calls   int
}

func (f *fakeAllowances) Allowance(context.Context, string, string, string) (*big.Int, error) {
	f.calls++
	return f.current, f.err
}

type fakeGateway struct {
	quote      *big.Int
	quoteErr   error
	quoteCalls int
	outcome    uniswap.SwapOutcome
	submitErr  error
	params     uniswap.SwapParams
}

func (f *fakeGateway) Quote(context.Context, string, string, *big.Int) (*big.Int, error) {
	f.quoteCalls++
	return f.quote, f.quoteErr
}
func (f *fakeGateway) SubmitSwap(_ context.Context, _ domain.Wallet, p uniswap.SwapParams) (uniswap.SwapOutcome, error) {
	f.params = p
	return f.outcome, f.submitErr
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newFixture(haveUSDC string) (*Orchestrator, *fakeWallet, *fakeAllowances, *fakeGateway) {
	w := &fakeWallet{
		addresses: []string{"0xabc0000000000000000000000000000000000001"},
		balances: map[string]decimal.Decimal{
			"0xabc0000000000000000000000000000000000001": decimal.RequireFromString(haveUSDC),
		},
		success: true,
		txHash:  "0xapprove",
	}
	allowances := &fakeAllowances{current: big.NewInt(0)}
	quote, _ := new(big.Int).SetString("50000000000000000", 10)
	gw := &fakeGateway{
		quote:   quote,
		outcome: uniswap.SwapOutcome{TxHash: "0xswap", GasPrice: big.NewInt(1_000_000)},
	}
	o := NewOrchestrator(w, &fakeAssets{},
		NewAllowanceManager(allowances, "0x94cC0AaC535CCDB3C01d6787D6413C739ae12bc4", discard()),
		gw, discard())
	return o, w, allowances, gw
}

func TestExecuteSwap(t *testing.T) {
	o, w, _, gw := newFixture("250")

	res, err := o.Execute(context.Background(), SwapRequest{
		TokenIn:  usdcAddr,
		TokenOut: wethAddr,
		Amount:   decimal.RequireFromString("100"),
		Slippage: 0.5,
	})
	require.NoError(t, err)
	require.Equal(t, StateSucceeded, res.State)
	require.Equal(t, "100000000", res.AmountIn.String())
	require.Equal(t, "50000000000000000", res.Quote.String())
	require.Equal(t, "49750000000000000", res.MinAmountOut.String())
	require.Equal(t, Approved, res.Approval)
	require.Equal(t, "0xswap", res.TxHash)

	// Exactly one approval transaction went through the wallet.
	require.Equal(t, 1, w.invokes)
	require.Equal(t, "100000000", gw.params.AmountIn.String())
	require.Equal(t, w.Address(), gw.params.Recipient)
}

func TestExecuteInvalidAmountMakesNoCalls(t *testing.T) {
	o, w, allowances, gw := newFixture("250")

	for _, amount := range []string{"0", "-5"} {
		res, err := o.Execute(context.Background(), SwapRequest{
			TokenIn: usdcAddr, TokenOut: wethAddr,
			Amount: decimal.RequireFromString(amount), Slippage: 0.5,
		})
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
		require.Equal(t, StateFailed, res.State)
	}
	require.Zero(t, w.invokes)
	require.Zero(t, allowances.calls)
	require.Zero(t, gw.quoteCalls)
}

func TestExecuteInvalidSlippageFailsFast(t *testing.T) {
	o, _, allowances, gw := newFixture("250")

	_, err := o.Execute(context.Background(), SwapRequest{
		TokenIn: usdcAddr, TokenOut: wethAddr,
		Amount: decimal.RequireFromString("100"), Slippage: 100,
	})
	require.ErrorIs(t, err, domain.ErrInvalidSlippage)
	require.Zero(t, allowances.calls)
	require.Zero(t, gw.quoteCalls)
}

func TestExecuteInsufficientBalance(t *testing.T) {
	o, w, allowances, gw := newFixture("40")

	_, err := o.Execute(context.Background(), SwapRequest{
		TokenIn: usdcAddr, TokenOut: wethAddr,
		Amount: decimal.RequireFromString("100"), Slippage: 0.5,
	})
	var insufficient *domain.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, "40000000", insufficient.Have.String())
	require.Equal(t, "100000000", insufficient.Need.String())

	// Nothing past the balance check ran.
	require.Zero(t, w.invokes)
	require.Zero(t, allowances.calls)
	require.Zero(t, gw.quoteCalls)
}

func TestExecuteSkipsRedundantApproval(t *testing.T) {
	o, w, allowances, _ := newFixture("250")
	allowances.current = big.NewInt(100_000_000)

	res, err := o.Execute(context.Background(), SwapRequest{
		TokenIn: usdcAddr, TokenOut: wethAddr,
		Amount: decimal.RequireFromString("100"), Slippage: 0.5,
	})
	require.NoError(t, err)
	require.Equal(t, AlreadyApproved, res.Approval)
	// No approval transaction was needed.
	require.Zero(t, w.invokes)
}

func TestExecuteQuoteUnavailable(t *testing.T) {
	o, _, _, gw := newFixture("250")
	gw.quoteErr = domain.ErrQuoteUnavailable

	res, err := o.Execute(context.Background(), SwapRequest{
		TokenIn: usdcAddr, TokenOut: wethAddr,
		Amount: decimal.RequireFromString("100"), Slippage: 0.5,
	})
	require.ErrorIs(t, err, domain.ErrQuoteUnavailable)
	require.Equal(t, StateFailed, res.State)
	// The approval step already ran and its outcome is preserved.
	require.Equal(t, Approved, res.Approval)
}

func TestExecuteSubmitFailureKeepsHash(t *testing.T) {
	o, _, _, gw := newFixture("250")
	gw.outcome = uniswap.SwapOutcome{TxHash: "0xdead"}
	gw.submitErr = domain.ErrSwapFailed

	res, err := o.Execute(context.Background(), SwapRequest{
		TokenIn: usdcAddr, TokenOut: wethAddr,
		Amount: decimal.RequireFromString("100"), Slippage: 0.5,
	})
	require.ErrorIs(t, err, domain.ErrSwapFailed)
	require.Equal(t, StateFailed, res.State)
	require.Equal(t, "0xdead", res.TxHash)
	require.Equal(t, "49750000000000000", res.MinAmountOut.String())
}

func TestExecuteBalanceSummedAcrossAddresses(t *testing.T) {
	o, w, _, _ := newFixture("60")
	w.addresses = append(w.addresses, "0xabc0000000000000000000000000000000000002")
	w.balances["0xabc0000000000000000000000000000000000002"] = decimal.RequireFromString("60")

	res, err := o.Execute(context.Background(), SwapRequest{
		TokenIn: usdcAddr, TokenOut: wethAddr,
		Amount: decimal.RequireFromString("100"), Slippage: 0.5,
	})
	require.NoError(t, err)
	require.Equal(t, StateSucceeded, res.State)
}
