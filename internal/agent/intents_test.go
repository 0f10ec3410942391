package agent

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testBook = TokenBook{
	USDC: "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
	WETH: "0x4200000000000000000000000000000000000006",
}

func TestDetectSwapWithSymbols(t *testing.T) {
	intent := DetectIntent("Swap 100 USDC for WETH", testBook)

	require.Equal(t, IntentSwap, intent.Kind)
	require.True(t, intent.Amount.Equal(decimal.NewFromInt(100)))
	require.Equal(t, testBook.USDC, intent.TokenIn)
	require.Equal(t, testBook.WETH, intent.TokenOut)
	require.Equal(t, float64(-1), intent.Slippage)
}

func TestDetectSwapWithSlippage(t *testing.T) {
	intent := DetectIntent("please swap 2.5 ETH for USDC with 1.5% slippage", testBook)

	require.Equal(t, IntentSwap, intent.Kind)
	require.True(t, intent.Amount.Equal(decimal.RequireFromString("2.5")))
	require.Equal(t, testBook.WETH, intent.TokenIn)
	require.Equal(t, testBook.USDC, intent.TokenOut)
	require.Equal(t, 1.5, intent.Slippage)
}

func TestDetectSwapWithAddresses(t *testing.T) {
	in := "0x1111111111111111111111111111111111111111"
	out := "0x2222222222222222222222222222222222222222"
	intent := DetectIntent("trade 50 of "+in+" into "+out, testBook)

	require.Equal(t, IntentSwap, intent.Kind)
	require.Equal(t, in, intent.TokenIn)
	require.Equal(t, out, intent.TokenOut)
}

func TestDetectSwapAmountIgnoresAddressDigits(t *testing.T) {
	// Digits inside a hex address must not be mistaken for the amount.
	intent := DetectIntent(
		"swap 7 USDC for 0x4200000000000000000000000000000000000006", testBook)

	require.Equal(t, IntentSwap, intent.Kind)
	require.True(t, intent.Amount.Equal(decimal.NewFromInt(7)))
}

func TestDetectSwapMissingPair(t *testing.T) {
	intent := DetectIntent("swap 100 FOO for BAR", testBook)
	require.Equal(t, IntentUnknown, intent.Kind)
}

func TestDetectStatus(t *testing.T) {
	hash := "0x" + strings.Repeat("ab", 32)
	intent := DetectIntent("what is the status of "+hash+"?", testBook)

	require.Equal(t, IntentStatus, intent.Kind)
	require.Equal(t, hash, intent.TxHash)
}

func TestDetectStatusNeedsFullHash(t *testing.T) {
	intent := DetectIntent("status of 0xabcd", testBook)
	require.Equal(t, IntentUnknown, intent.Kind)
}

func TestDetectPriceBySymbol(t *testing.T) {
	intent := DetectIntent("what's the price of USDC?", testBook)

	require.Equal(t, IntentPrice, intent.Kind)
	require.Equal(t, testBook.USDC, intent.Token)
}

func TestDetectPriceByAddress(t *testing.T) {
	addr := "0x3333333333333333333333333333333333333333"
	intent := DetectIntent("price for "+addr, testBook)

	require.Equal(t, IntentPrice, intent.Kind)
	require.Equal(t, addr, intent.Token)
}

func TestDetectArbitrage(t *testing.T) {
	intent := DetectIntent("any arbitrage opportunities?", testBook)
	require.Equal(t, IntentArbitrage, intent.Kind)
}

func TestDetectUnknown(t *testing.T) {
	intent := DetectIntent("tell me a joke", testBook)
	require.Equal(t, IntentUnknown, intent.Kind)
}

func TestResolveAliases(t *testing.T) {
	addr, ok := testBook.Resolve("eth")
	require.True(t, ok)
	require.Equal(t, testBook.WETH, addr)

	_, ok = testBook.Resolve("DOGE")
	require.False(t, ok)
}
