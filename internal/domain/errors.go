package domain

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrNotFound is the generic miss for cache and store lookups.
	ErrNotFound = errors.New("not found")

	// ErrInvalidAmount means the requested input amount did not parse as a
	// positive decimal. Detected before any network call.
	ErrInvalidAmount = errors.New("input amount must be greater than 0")

	// ErrInvalidSlippage means the slippage percentage was negative or >= 100.
	ErrInvalidSlippage = errors.New("slippage must be at least 0 and below 100")

	// ErrQuoteUnavailable means the exchange quoting call reverted, typically
	// because no pool exists for the pair and fee tier. It is never silently
	// mapped to a zero quote.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrApprovalFailed means the ERC-20 approval transaction reverted or
	// could not be submitted.
	ErrApprovalFailed = errors.New("approval failed")

	// ErrGasEstimation means gas estimation for the swap failed; the swap is
	// not submitted in that case.
	ErrGasEstimation = errors.New("gas estimation failed")

	// ErrSwapFailed means the swap transaction reverted or errored on
	// submission.
	ErrSwapFailed = errors.New("swap failed")

	// ErrWalletNotFound means a wallet reference could not be resolved to a
	// ledger wallet row. It indicates a caller/collaborator mismatch, not a
	// transaction failure.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrTradeNotFound means no trade with the given transaction hash is
	// known to the ledger.
	ErrTradeNotFound = errors.New("trade not found")
)

// InsufficientBalanceError reports an atomic balance shortfall detected
// before any on-chain call is made.
type InsufficientBalanceError struct {
	Have *big.Int
	Need *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %s, need %s", e.Have, e.Need)
}
