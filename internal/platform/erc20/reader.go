// Package erc20 reads token state (balances, allowances, metadata) through
// eth_call. Writes such as approve go through the custody wallet instead so
// the agent never holds a signing key.
package erc20

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/smartape/apebot/internal/domain"
)

const tokenABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

// ContractCaller executes a read-only contract call and returns the raw
// return data.
type ContractCaller interface {
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// Reader answers ERC-20 view calls for any token on the connected chain.
type Reader struct {
	caller ContractCaller
	abi    abi.ABI
}

var _ domain.AssetFetcher = (*Reader)(nil)

// NewReader builds a Reader on top of the given caller.
func NewReader(caller ContractCaller) (*Reader, error) {
	parsed, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		return nil, fmt.Errorf("erc20: parse abi: %w", err)
	}
	return &Reader{caller: caller, abi: parsed}, nil
}

// BalanceOf returns the owner's raw token balance in atomic units.
func (r *Reader) BalanceOf(ctx context.Context, token, owner string) (*big.Int, error) {
	out, err := r.view(ctx, token, "balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// Allowance returns how much spender may move from owner's balance of token.
func (r *Reader) Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error) {
	out, err := r.view(ctx, token, "allowance",
		common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// Asset resolves the token's on-chain metadata into a domain.Asset.
func (r *Reader) Asset(ctx context.Context, token string) (domain.Asset, error) {
	decOut, err := r.view(ctx, token, "decimals")
	if err != nil {
		return domain.Asset{}, err
	}
	symOut, err := r.view(ctx, token, "symbol")
	if err != nil {
		return domain.Asset{}, err
	}
	return domain.Asset{
		Address:  token,
		Symbol:   symOut[0].(string),
		Decimals: int32(decOut[0].(uint8)),
	}, nil
}

// ApproveCall builds the custody invocation payload for an ERC-20 approve.
func ApproveCall(token, spender string, amount *big.Int) domain.ContractCall {
	return domain.ContractCall{
		Contract: token,
		Method:   "approve",
		Args: map[string]any{
			"spender": spender,
			"value":   amount.String(),
		},
	}
}

func (r *Reader) view(ctx context.Context, token, method string, args ...any) ([]any, error) {
	data, err := r.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("erc20: pack %s: %w", method, err)
	}
	raw, err := r.caller.Call(ctx, common.HexToAddress(token), data)
	if err != nil {
		return nil, fmt.Errorf("erc20: %s %s: %w", method, token, err)
	}
	out, err := r.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("erc20: unpack %s: %w", method, err)
	}
	return out, nil
}
