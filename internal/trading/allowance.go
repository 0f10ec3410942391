// Package trading holds the swap workflow: the allowance manager that keeps
// the router authorized to move tokens, and the orchestrator that drives a
// request from validation through submission.
package trading

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/smartape/apebot/internal/domain"
	"github.com/smartape/apebot/internal/platform/erc20"
)

// ApprovalOutcome says whether an approval transaction was actually needed.
type ApprovalOutcome string

const (
	// AlreadyApproved means the existing allowance covered the amount and no
	// transaction was submitted.
	AlreadyApproved ApprovalOutcome = "already_approved"
	// Approved means a fresh approval transaction was submitted and included.
	Approved ApprovalOutcome = "approved"
)

// AllowanceReader reads the current ERC-20 allowance granted by owner to
// spender on a token.
type AllowanceReader interface {
	Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error)
}

// AllowanceManager authorizes the router to move exact token amounts on the
// wallet's behalf. Each call submits at most one on-chain transaction.
type AllowanceManager struct {
	reader  AllowanceReader
	spender string
	logger  *slog.Logger
}

// NewAllowanceManager creates an AllowanceManager for the given spender,
// normally the exchange router.
func NewAllowanceManager(reader AllowanceReader, spender string, logger *slog.Logger) *AllowanceManager {
	return &AllowanceManager{
		reader:  reader,
		spender: spender,
		logger:  logger.With(slog.String("component", "allowance")),
	}
}

// Approve ensures the spender may move amount of token from the wallet. When
// the current allowance already covers the amount it returns AlreadyApproved
// without touching the chain; otherwise it approves exactly amount, never
// unlimited. Every failure wraps domain.ErrApprovalFailed.
func (m *AllowanceManager) Approve(ctx context.Context, wallet domain.Wallet, token string, amount *big.Int) (ApprovalOutcome, error) {
	current, err := m.reader.Allowance(ctx, token, wallet.Address(), m.spender)
	if err != nil {
		return "", fmt.Errorf("trading: read allowance: %w: %w", domain.ErrApprovalFailed, err)
	}

	if current.Cmp(amount) >= 0 {
		m.logger.Debug("allowance sufficient",
			slog.String("token", token),
			slog.String("current", current.String()),
			slog.String("needed", amount.String()))
		return AlreadyApproved, nil
	}

	inv, err := wallet.InvokeContract(ctx, erc20.ApproveCall(token, m.spender, amount))
	if err != nil {
		return "", fmt.Errorf("trading: submit approval: %w: %w", domain.ErrApprovalFailed, err)
	}
	if !inv.Success {
		return "", fmt.Errorf("trading: approval reverted: %s: %w", inv.Revert, domain.ErrApprovalFailed)
	}

	m.logger.Info("approval submitted",
		slog.String("token", token),
		slog.String("amount", amount.String()),
		slog.String("tx_hash", inv.TxHash))
	return Approved, nil
}
