package domain

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"
)

// Asset is the metadata needed to convert between whole and atomic token
// units. It is fetched from the custody provider, never hardcoded.
type Asset struct {
	Address  string
	Symbol   string
	Decimals int32
}

// ToAtomic converts a whole-unit amount to atomic units, truncating any
// fraction below the token's precision.
func (a Asset) ToAtomic(amount decimal.Decimal) *big.Int {
	return amount.Shift(a.Decimals).Truncate(0).BigInt()
}

// FromAtomic converts an atomic amount back to whole units.
func (a Asset) FromAtomic(atomic *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(atomic, 0).Shift(-a.Decimals)
}

// ContractCall describes one contract method invocation routed through the
// custody provider, which signs and submits on the agent's behalf. Args are
// keyed by ABI parameter name, mirroring the provider's invocation API.
type ContractCall struct {
	Contract string
	Method   string
	Args     map[string]any
}

// Invocation is the terminal result of a contract invocation after the
// custody provider has waited for inclusion.
type Invocation struct {
	TxHash  string
	Success bool
	// Revert carries the failure reason when Success is false.
	Revert string
}

// GasEstimate is the custody provider's estimate for a contract call.
type GasEstimate struct {
	Gas      uint64
	GasPrice *big.Int
}

// Wallet is the custody collaborator. The agent never sees private key
// material; signing, submission, and receipt waiting all happen on the
// provider side.
type Wallet interface {
	// Ref is the provider-side wallet identifier used as the ledger lookup key.
	Ref() string

	// Address is the wallet's default (primary) address.
	Address() string

	// Addresses lists every address under the wallet.
	Addresses(ctx context.Context) ([]string, error)

	// Balance returns the whole-unit balance of token held by address.
	Balance(ctx context.Context, address, token string) (decimal.Decimal, error)

	// InvokeContract signs, submits, and waits for one contract call.
	InvokeContract(ctx context.Context, call ContractCall) (Invocation, error)

	// EstimateGas estimates a contract call without submitting it.
	EstimateGas(ctx context.Context, call ContractCall) (GasEstimate, error)
}

// AssetFetcher resolves token metadata through the custody provider.
type AssetFetcher interface {
	Asset(ctx context.Context, tokenAddress string) (Asset, error)
}
