package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smartape/apebot/internal/domain"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.db")
	c, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestWalletUpsertAndResolve(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	wallets := NewWalletStore(c)

	id, err := wallets.Upsert(ctx, "wallet-1", "0xabc0000000000000000000000000000000000001")
	require.NoError(t, err)
	require.NotZero(t, id)

	// Upserting the same ref keeps the id stable.
	again, err := wallets.Upsert(ctx, "wallet-1", "0xabc0000000000000000000000000000000000002")
	require.NoError(t, err)
	require.Equal(t, id, again)

	resolved, err := wallets.Resolve(ctx, "wallet-1")
	require.NoError(t, err)
	require.Equal(t, id, resolved)

	_, err = wallets.Resolve(ctx, "no-such-wallet")
	require.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestTradeRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	wallets := NewWalletStore(c)
	trades := NewTradeStore(c)

	wid, err := wallets.Upsert(ctx, "wallet-1", "0xabc0000000000000000000000000000000000001")
	require.NoError(t, err)

	txHash := "0x" + strings.Repeat("ab", 32)
	_, err = trades.Insert(ctx, domain.Trade{
		WalletID:     wid,
		TokenIn:      "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		TokenOut:     "0x4200000000000000000000000000000000000006",
		AmountIn:     "100000000",
		MinAmountOut: "49750000000000000",
		Status:       domain.TradePending,
		TxHash:       &txHash,
	})
	require.NoError(t, err)

	got, err := trades.GetByTxHash(ctx, txHash)
	require.NoError(t, err)
	require.Equal(t, domain.TradePending, got.Status)
	require.Equal(t, "100000000", got.AmountIn)
	require.NotNil(t, got.TxHash)
	require.Equal(t, txHash, *got.TxHash)

	_, err = trades.GetByTxHash(ctx, "0x"+strings.Repeat("de", 32))
	require.ErrorIs(t, err, domain.ErrTradeNotFound)
}

func TestTradeStatusMonotonic(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	wallets := NewWalletStore(c)
	trades := NewTradeStore(c)

	wid, err := wallets.Upsert(ctx, "wallet-1", "0xabc0000000000000000000000000000000000001")
	require.NoError(t, err)

	txHash := "0x" + strings.Repeat("11", 32)
	_, err = trades.Insert(ctx, domain.Trade{
		WalletID: wid, TokenIn: "0x01", TokenOut: "0x02",
		AmountIn: "1", MinAmountOut: "1",
		Status: domain.TradePending, TxHash: &txHash,
	})
	require.NoError(t, err)

	require.NoError(t, trades.UpdateStatus(ctx, txHash, domain.TradeCompleted))

	got, err := trades.GetByTxHash(ctx, txHash)
	require.NoError(t, err)
	require.Equal(t, domain.TradeCompleted, got.Status)

	// A second transition attempt must not move the trade out of its
	// terminal state.
	err = trades.UpdateStatus(ctx, txHash, domain.TradeFailed)
	require.ErrorIs(t, err, domain.ErrTradeNotFound)

	got, err = trades.GetByTxHash(ctx, txHash)
	require.NoError(t, err)
	require.Equal(t, domain.TradeCompleted, got.Status)
}

func TestListPendingAndRecent(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	wallets := NewWalletStore(c)
	trades := NewTradeStore(c)

	wid, err := wallets.Upsert(ctx, "wallet-1", "0xabc0000000000000000000000000000000000001")
	require.NoError(t, err)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	hashes := make([]string, 3)
	for i := range hashes {
		h := "0x" + strings.Repeat([]string{"aa", "bb", "cc"}[i], 32)
		hashes[i] = h
		_, err = trades.Insert(ctx, domain.Trade{
			WalletID: wid, TokenIn: "0x01", TokenOut: "0x02",
			AmountIn: "1", MinAmountOut: "1",
			Status: domain.TradePending, TxHash: &h,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	// One failed trade with no hash: never part of the pending sweep.
	_, err = trades.Insert(ctx, domain.Trade{
		WalletID: wid, TokenIn: "0x01", TokenOut: "0x02",
		AmountIn: "1", MinAmountOut: "0",
		Status: domain.TradeFailed, Timestamp: base.Add(time.Hour),
	})
	require.NoError(t, err)

	pending, err := trades.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	// Oldest first.
	require.Equal(t, hashes[0], *pending[0].TxHash)

	recent, err := trades.ListRecent(ctx, wid, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	// Newest first.
	require.Equal(t, domain.TradeFailed, recent[0].Status)
}

func TestPriceSamplesAppendOnly(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	prices := NewPriceStore(c)

	token := "0x4200000000000000000000000000000000000006"
	require.NoError(t, prices.Insert(ctx, domain.PriceSample{TokenAddress: token, Price: "0.00042"}))
	require.NoError(t, prices.Insert(ctx, domain.PriceSample{TokenAddress: token, Price: "0.00043"}))

	samples, err := prices.ListRecent(ctx, token, 10)
	require.NoError(t, err)
	require.Len(t, samples, 2)
}

func TestArbOpportunityPathRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	arbs := NewArbStore(c)

	path := []string{
		"0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		"0x4200000000000000000000000000000000000006",
		"0x036CbD53842c5426634e7929541eC2318f3dCF7e",
	}
	require.NoError(t, arbs.Insert(ctx, domain.ArbOpportunity{
		TokenPath:        path,
		ProfitPercentage: "1.25",
		MinInputAmount:   "1000000",
	}))
	require.NoError(t, arbs.Insert(ctx, domain.ArbOpportunity{
		TokenPath:        path[:2],
		ProfitPercentage: "3.5",
		MinInputAmount:   "2000000",
	}))

	// Single-hop path is rejected.
	err := arbs.Insert(ctx, domain.ArbOpportunity{TokenPath: path[:1], ProfitPercentage: "0", MinInputAmount: "0"})
	require.Error(t, err)

	opps, err := arbs.ListDetected(ctx)
	require.NoError(t, err)
	require.Len(t, opps, 2)
	// Highest profit first.
	require.Equal(t, "3.5", opps[0].ProfitPercentage)
	require.Equal(t, path, opps[1].TokenPath)
	require.Equal(t, domain.ArbDetected, opps[0].Status)
}
