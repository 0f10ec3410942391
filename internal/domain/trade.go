// Package domain defines the core types, collaborator interfaces, and store
// interfaces shared by the trading agent. It has no dependencies on
// infrastructure packages; concrete implementations live under
// internal/store, internal/chain, and internal/platform.
package domain

import "time"

// TradeStatus is the lifecycle state of a recorded trade. Transitions are
// strictly PENDING -> {COMPLETED, FAILED}; terminal states never change.
type TradeStatus string

const (
	TradePending   TradeStatus = "PENDING"
	TradeCompleted TradeStatus = "COMPLETED"
	TradeFailed    TradeStatus = "FAILED"
)

// Terminal reports whether the status can no longer change.
func (s TradeStatus) Terminal() bool {
	return s == TradeCompleted || s == TradeFailed
}

// Trade is one attempted exchange of TokenIn for TokenOut. Amounts are
// decimal strings in atomic token units; floating point is never used for
// token quantities.
type Trade struct {
	ID           int64
	WalletID     int64
	TokenIn      string
	TokenOut     string
	AmountIn     string
	MinAmountOut string
	Status       TradeStatus
	// TxHash is nil until a transaction was actually submitted. A trade
	// with no hash is always FAILED (submission never happened).
	TxHash    *string
	GasPrice  *string
	Timestamp time.Time
}

// PriceSample is a timestamped observation of a token's price in the
// reference unit (ETH). Samples are append-only.
type PriceSample struct {
	ID           int64
	TokenAddress string
	Price        string
	Timestamp    time.Time
}

// ArbStatus is the lifecycle state of an arbitrage opportunity.
type ArbStatus string

const (
	ArbDetected ArbStatus = "DETECTED"
	ArbExecuted ArbStatus = "EXECUTED"
	ArbExpired  ArbStatus = "EXPIRED"
)

// ArbOpportunity is a detected profitable multi-hop path. TokenPath holds
// the ordered token addresses (length >= 2).
type ArbOpportunity struct {
	ID               int64
	TokenPath        []string
	ProfitPercentage string
	MinInputAmount   string
	Status           ArbStatus
	Timestamp        time.Time
}
