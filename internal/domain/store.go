package domain

import "context"

// WalletStore maps custody wallet references to ledger wallet rows. Records
// are never created implicitly: recording against an unknown reference is an
// error, not an upsert.
type WalletStore interface {
	// Upsert registers (or refreshes) a wallet reference and returns its id.
	Upsert(ctx context.Context, ref, address string) (int64, error)

	// Resolve returns the wallet id for ref, or ErrWalletNotFound.
	Resolve(ctx context.Context, ref string) (int64, error)
}

// TradeStore persists trades. Inserts are append-only; the only permitted
// mutation is the PENDING -> terminal status transition.
type TradeStore interface {
	Insert(ctx context.Context, t Trade) (int64, error)

	// GetByTxHash returns the trade with the given hash, or ErrTradeNotFound.
	GetByTxHash(ctx context.Context, txHash string) (Trade, error)

	// UpdateStatus sets the status of the trade with the given hash.
	UpdateStatus(ctx context.Context, txHash string, status TradeStatus) error

	// ListPending returns every trade still awaiting receipt resolution.
	ListPending(ctx context.Context) ([]Trade, error)

	// ListRecent returns a wallet's trades, newest first, bounded by limit.
	ListRecent(ctx context.Context, walletID int64, limit int) ([]Trade, error)
}

// PriceStore persists append-only price observations.
type PriceStore interface {
	Insert(ctx context.Context, s PriceSample) error
	ListRecent(ctx context.Context, tokenAddress string, limit int) ([]PriceSample, error)
}

// ArbStore persists detected arbitrage opportunities.
type ArbStore interface {
	Insert(ctx context.Context, o ArbOpportunity) error

	// ListDetected returns opportunities still in DETECTED state, ordered by
	// profit percentage descending.
	ListDetected(ctx context.Context) ([]ArbOpportunity, error)
}
