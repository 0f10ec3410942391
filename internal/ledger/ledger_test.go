package ledger

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartape/apebot/internal/domain"
	"github.com/smartape/apebot/internal/store/sqlite"
)

type receiptResult struct {
	receipt domain.Receipt
	found   bool
	err     error
}

type fakeReceipts struct {
	results map[string]receiptResult
	calls   int
}

func (f *fakeReceipts) Receipt(_ context.Context, txHash string) (domain.Receipt, bool, error) {
	f.calls++
	r := f.results[txHash]
	return r.receipt, r.found, r.err
}

type fakeBus struct {
	published map[string]int
}

func (f *fakeBus) Publish(_ context.Context, channel string, _ []byte) error {
	if f.published == nil {
		f.published = map[string]int{}
	}
	f.published[channel]++
	return nil
}

func (f *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func newFixture(t *testing.T) (*Ledger, *fakeReceipts, *fakeBus) {
	t.Helper()
	c, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "agent.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	receipts := &fakeReceipts{results: map[string]receiptResult{}}
	bus := &fakeBus{}
	l := New(
		sqlite.NewWalletStore(c),
		sqlite.NewTradeStore(c),
		sqlite.NewPriceStore(c),
		sqlite.NewArbStore(c),
		receipts, bus,
		slog.New(slog.DiscardHandler),
	)
	_, err = l.RegisterWallet(context.Background(), "wallet-1", "0xabc0000000000000000000000000000000000001")
	require.NoError(t, err)
	return l, receipts, bus
}

func ptr(s string) *string { return &s }

func TestRecordTradeUnknownWallet(t *testing.T) {
	l, _, _ := newFixture(t)

	_, err := l.RecordTrade(context.Background(), "no-such-wallet", domain.Trade{
		TokenIn: "0x01", TokenOut: "0x02", AmountIn: "1", MinAmountOut: "1",
	})
	require.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestRecordTradeDefaultsStatus(t *testing.T) {
	ctx := context.Background()
	l, _, bus := newFixture(t)

	// No hash: submission never happened, stored FAILED.
	_, err := l.RecordTrade(ctx, "wallet-1", domain.Trade{
		TokenIn: "0x01", TokenOut: "0x02", AmountIn: "1", MinAmountOut: "1",
	})
	require.NoError(t, err)

	// With hash: stored PENDING.
	_, err = l.RecordTrade(ctx, "wallet-1", domain.Trade{
		TokenIn: "0x01", TokenOut: "0x02", AmountIn: "1", MinAmountOut: "1",
		TxHash: ptr("0xaaa"),
	})
	require.NoError(t, err)

	trades, err := l.RecentTrades(ctx, "wallet-1", 10)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	byHash := map[string]domain.TradeStatus{}
	for _, tr := range trades {
		if tr.TxHash == nil {
			byHash[""] = tr.Status
		} else {
			byHash[*tr.TxHash] = tr.Status
		}
	}
	require.Equal(t, domain.TradeFailed, byHash[""])
	require.Equal(t, domain.TradePending, byHash["0xaaa"])
	require.Equal(t, 2, bus.published[ChannelTrades])
}

func TestTradeStatusUnknownHash(t *testing.T) {
	l, receipts, _ := newFixture(t)

	status, found, err := l.TradeStatus(context.Background(), "0xunknown")
	require.NoError(t, err)
	require.False(t, found)
	require.Empty(t, status)
	require.Zero(t, receipts.calls)
}

func TestTradeStatusTerminalSkipsChain(t *testing.T) {
	ctx := context.Background()
	l, receipts, _ := newFixture(t)

	_, err := l.RecordTrade(ctx, "wallet-1", domain.Trade{
		TokenIn: "0x01", TokenOut: "0x02", AmountIn: "1", MinAmountOut: "1",
		TxHash: ptr("0xdone"), Status: domain.TradeCompleted,
	})
	require.NoError(t, err)

	status, found, err := l.TradeStatus(ctx, "0xdone")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, domain.TradeCompleted, status)
	// Terminal statuses are cached: no receipt lookup.
	require.Zero(t, receipts.calls)
}

func TestTradeStatusResolvesPending(t *testing.T) {
	ctx := context.Background()
	l, receipts, _ := newFixture(t)

	for _, hash := range []string{"0xwin", "0xlose", "0xflight"} {
		_, err := l.RecordTrade(ctx, "wallet-1", domain.Trade{
			TokenIn: "0x01", TokenOut: "0x02", AmountIn: "1", MinAmountOut: "1",
			TxHash: ptr(hash),
		})
		require.NoError(t, err)
	}
	receipts.results["0xwin"] = receiptResult{receipt: domain.Receipt{TxHash: "0xwin", Status: 1}, found: true}
	receipts.results["0xlose"] = receiptResult{receipt: domain.Receipt{TxHash: "0xlose", Status: 0}, found: true}
	receipts.results["0xflight"] = receiptResult{found: false}

	status, found, err := l.TradeStatus(ctx, "0xwin")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, domain.TradeCompleted, status)

	status, _, err = l.TradeStatus(ctx, "0xlose")
	require.NoError(t, err)
	require.Equal(t, domain.TradeFailed, status)

	// No receipt yet: stays pending, no persisted change.
	status, _, err = l.TradeStatus(ctx, "0xflight")
	require.NoError(t, err)
	require.Equal(t, domain.TradePending, status)

	// The resolved statuses are now served from the store.
	receipts.calls = 0
	status, _, err = l.TradeStatus(ctx, "0xwin")
	require.NoError(t, err)
	require.Equal(t, domain.TradeCompleted, status)
	require.Zero(t, receipts.calls)
}

func TestSweepPendingIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	l, receipts, _ := newFixture(t)

	for _, hash := range []string{"0xone", "0xtwo", "0xthree"} {
		_, err := l.RecordTrade(ctx, "wallet-1", domain.Trade{
			TokenIn: "0x01", TokenOut: "0x02", AmountIn: "1", MinAmountOut: "1",
			TxHash: ptr(hash),
		})
		require.NoError(t, err)
	}
	receipts.results["0xone"] = receiptResult{receipt: domain.Receipt{TxHash: "0xone", Status: 1}, found: true}
	receipts.results["0xtwo"] = receiptResult{err: errors.New("rpc timeout")}
	receipts.results["0xthree"] = receiptResult{receipt: domain.Receipt{TxHash: "0xthree", Status: 0}, found: true}

	resolved, err := l.SweepPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, resolved)

	status, _, err := l.TradeStatus(ctx, "0xone")
	require.NoError(t, err)
	require.Equal(t, domain.TradeCompleted, status)

	status, _, err = l.TradeStatus(ctx, "0xthree")
	require.NoError(t, err)
	require.Equal(t, domain.TradeFailed, status)

	// The failed lookup left its trade pending for the next sweep.
	receipts.results["0xtwo"] = receiptResult{found: false}
	status, _, err = l.TradeStatus(ctx, "0xtwo")
	require.NoError(t, err)
	require.Equal(t, domain.TradePending, status)
}

func TestRecordPriceAndOpportunity(t *testing.T) {
	ctx := context.Background()
	l, _, bus := newFixture(t)

	require.NoError(t, l.RecordPrice(ctx, domain.PriceSample{
		TokenAddress: "0x4200000000000000000000000000000000000006",
		Price:        "0.00042",
	}))
	require.NoError(t, l.RecordOpportunity(ctx, domain.ArbOpportunity{
		TokenPath:        []string{"0x01", "0x02", "0x01"},
		ProfitPercentage: "1.5",
		MinInputAmount:   "1000000",
	}))

	opps, err := l.ActiveOpportunities(ctx)
	require.NoError(t, err)
	require.Len(t, opps, 1)

	samples, err := l.RecentPrices(ctx, "0x4200000000000000000000000000000000000006", 5)
	require.NoError(t, err)
	require.Len(t, samples, 1)

	require.Equal(t, 1, bus.published[ChannelPrices])
	require.Equal(t, 1, bus.published[ChannelArbs])
}
