package domain

import (
	"context"
	"math/big"
)

// Receipt is the on-chain record of a mined transaction. Status follows the
// EVM convention: 1 for success, 0 for revert.
type Receipt struct {
	TxHash            string
	Status            uint64
	BlockNumber       uint64
	GasUsed           uint64
	EffectiveGasPrice *big.Int
}

// Succeeded reports whether the transaction executed without reverting.
func (r Receipt) Succeeded() bool {
	return r.Status == 1
}

// ReceiptReader looks up transaction receipts on the chain RPC provider.
type ReceiptReader interface {
	// Receipt returns the receipt for txHash. found is false while the
	// transaction is still in flight (no receipt yet); that is not an error.
	Receipt(ctx context.Context, txHash string) (receipt Receipt, found bool, err error)
}

// Quoter obtains an exchange price quote for swapping amountIn of tokenIn
// into tokenOut, in atomic units. A revert surfaces as ErrQuoteUnavailable.
type Quoter interface {
	Quote(ctx context.Context, tokenIn, tokenOut string, amountIn *big.Int) (*big.Int, error)
}
