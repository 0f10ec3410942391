package agent

import (
	"context"
	"log/slog"
	"math/big"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/smartape/apebot/internal/arbitrage"
	"github.com/smartape/apebot/internal/domain"
	"github.com/smartape/apebot/internal/ledger"
	"github.com/smartape/apebot/internal/platform/uniswap"
	"github.com/smartape/apebot/internal/store/sqlite"
	"github.com/smartape/apebot/internal/trading"
)

type stubWallet struct {
	balance decimal.Decimal
}

func (w *stubWallet) Ref() string     { return "agent-wallet" }
func (w *stubWallet) Address() string { return "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" }
func (w *stubWallet) Addresses(context.Context) ([]string, error) {
	return []string{w.Address()}, nil
}
func (w *stubWallet) Balance(context.Context, string, string) (decimal.Decimal, error) {
	return w.balance, nil
}
func (w *stubWallet) InvokeContract(context.Context, domain.ContractCall) (domain.Invocation, error) {
	return domain.Invocation{TxHash: "0x" + strings.Repeat("cd", 32), Success: true}, nil
}
func (w *stubWallet) EstimateGas(context.Context, domain.ContractCall) (domain.GasEstimate, error) {
	return domain.GasEstimate{Gas: 200_000, GasPrice: big.NewInt(1_000_000)}, nil
}

type stubAssets struct{}

func (stubAssets) Asset(_ context.Context, token string) (domain.Asset, error) {
	switch token {
	case testBook.USDC:
		return domain.Asset{Address: token, Symbol: "USDC", Decimals: 6}, nil
	case testBook.WETH:
		return domain.Asset{Address: token, Symbol: "WETH", Decimals: 18}, nil
	}
	return domain.Asset{}, domain.ErrNotFound
}

type stubApprover struct{}

func (stubApprover) Approve(context.Context, domain.Wallet, string, *big.Int) (trading.ApprovalOutcome, error) {
	return trading.AlreadyApproved, nil
}

// stubGateway serves both the orchestrator's swap gateway and the toolkit's
// quoter. Quotes are keyed by "tokenIn->tokenOut".
type stubGateway struct {
	quotes map[string]*big.Int
}

func (g *stubGateway) Quote(_ context.Context, tokenIn, tokenOut string, _ *big.Int) (*big.Int, error) {
	q, ok := g.quotes[tokenIn+"->"+tokenOut]
	if !ok {
		return nil, domain.ErrQuoteUnavailable
	}
	return new(big.Int).Set(q), nil
}

func (g *stubGateway) SubmitSwap(context.Context, domain.Wallet, uniswap.SwapParams) (uniswap.SwapOutcome, error) {
	return uniswap.SwapOutcome{
		TxHash:   "0x" + strings.Repeat("cd", 32),
		GasPrice: big.NewInt(1_000_000),
	}, nil
}

type stubReceipts struct{}

func (stubReceipts) Receipt(context.Context, string) (domain.Receipt, bool, error) {
	return domain.Receipt{}, false, nil
}

type fixture struct {
	dispatcher *Dispatcher
	ledger     *ledger.Ledger
}

func newFixture(t *testing.T, haveUSDC decimal.Decimal) fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	client, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "agent.db"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	led := ledger.New(sqlite.NewWalletStore(client), sqlite.NewTradeStore(client),
		sqlite.NewPriceStore(client), sqlite.NewArbStore(client),
		stubReceipts{}, nil, logger)

	wallet := &stubWallet{balance: haveUSDC}
	_, err = led.RegisterWallet(ctx, wallet.Ref(), wallet.Address())
	require.NoError(t, err)

	gateway := &stubGateway{quotes: map[string]*big.Int{
		// USDC quotes to 0.05 WETH; the reverse hop pays back 1010 USDC on
		// the 1000 USDC arbitrage probe, a 1% round trip.
		testBook.USDC + "->" + testBook.WETH: big.NewInt(50_000_000_000_000_000),
		testBook.WETH + "->" + testBook.USDC: big.NewInt(1_010_000_000),
	}}

	toolkit := NewToolkit(ToolkitConfig{
		Orchestrator:    trading.NewOrchestrator(wallet, stubAssets{}, stubApprover{}, gateway, logger),
		Ledger:          led,
		Quoter:          gateway,
		Assets:          stubAssets{},
		Simulator:       arbitrage.NewSimulator(gateway, led, 0.5, logger),
		WalletRef:       wallet.Ref(),
		Book:            testBook,
		DefaultSlippage: 0.5,
		Logger:          logger,
	})

	return fixture{
		dispatcher: NewDispatcher(toolkit, nil, logger),
		ledger:     led,
	}
}

func collect(t *testing.T, f fixture, input string) []Event {
	t.Helper()
	var events []Event
	err := f.dispatcher.Handle(context.Background(), input, "", func(e Event) error {
		events = append(events, e)
		return nil
	})
	require.NoError(t, err)
	return events
}

func TestHandleSwapStreamsAndRecords(t *testing.T) {
	f := newFixture(t, decimal.NewFromInt(500))

	events := collect(t, f, "swap 100 USDC for WETH")
	require.Len(t, events, 3)
	require.Equal(t, EventAgent, events[0].Type)
	require.Equal(t, EventTools, events[1].Type)
	require.Equal(t, EventCompleted, events[2].Type)

	// 0.5% default slippage on a 0.05 WETH quote.
	require.Contains(t, events[2].Data, "Successfully swapped 100 USDC for at least 0.04975 WETH")
	require.Contains(t, events[2].Data, "0x"+strings.Repeat("cd", 32))

	trades, err := f.ledger.RecentTrades(context.Background(), "agent-wallet", 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.Equal(t, domain.TradePending, trades[0].Status)
	require.NotNil(t, trades[0].TxHash)
}

func TestHandleSwapInsufficientBalance(t *testing.T) {
	f := newFixture(t, decimal.NewFromInt(40))

	events := collect(t, f, "swap 100 USDC for WETH")
	final := events[len(events)-1]
	require.Equal(t, EventCompleted, final.Type)
	require.Contains(t, final.Data, "insufficient USDC balance")
	require.Contains(t, final.Data, "have 40000000, need 100000000")

	trades, err := f.ledger.RecentTrades(context.Background(), "agent-wallet", 10)
	require.NoError(t, err)
	require.Empty(t, trades)
}

func TestHandleStatusUnknownHash(t *testing.T) {
	f := newFixture(t, decimal.NewFromInt(500))
	hash := "0x" + strings.Repeat("99", 32)

	events := collect(t, f, "check the status of trade "+hash)
	final := events[len(events)-1]
	require.Contains(t, final.Data, "No trade found with transaction hash "+hash)
}

func TestHandleStatusAfterSwap(t *testing.T) {
	f := newFixture(t, decimal.NewFromInt(500))
	collect(t, f, "swap 100 USDC for WETH")

	hash := "0x" + strings.Repeat("cd", 32)
	events := collect(t, f, "status of "+hash)
	final := events[len(events)-1]
	require.Contains(t, final.Data, "status: PENDING")
}

func TestHandlePrice(t *testing.T) {
	f := newFixture(t, decimal.NewFromInt(500))

	events := collect(t, f, "what's the price of USDC?")
	final := events[len(events)-1]
	// One whole USDC quotes to 0.05 WETH in the stub.
	require.Contains(t, final.Data, "Current price of USDC: 0.05 ETH")

	prices, err := f.ledger.RecentPrices(context.Background(), testBook.USDC, 10)
	require.NoError(t, err)
	require.Len(t, prices, 1)
}

func TestHandleArbitrage(t *testing.T) {
	f := newFixture(t, decimal.NewFromInt(500))

	events := collect(t, f, "check for arbitrage")
	final := events[len(events)-1]
	require.Contains(t, final.Data, "Arbitrage opportunity detected")
	require.Contains(t, final.Data, "1.0000%")

	arbs, err := f.ledger.ActiveOpportunities(context.Background())
	require.NoError(t, err)
	require.Len(t, arbs, 1)
}

func TestHandleUnknown(t *testing.T) {
	f := newFixture(t, decimal.NewFromInt(500))

	events := collect(t, f, "tell me a joke")
	require.Len(t, events, 1)
	require.Equal(t, EventCompleted, events[0].Type)
	require.Contains(t, events[0].Data, "execute token swaps")
}
