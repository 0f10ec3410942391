package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/smartape/apebot/internal/domain"
)

// WalletStore implements domain.WalletStore.
type WalletStore struct {
	db *sql.DB
}

// NewWalletStore creates a WalletStore backed by the given client.
func NewWalletStore(c *Client) *WalletStore {
	return &WalletStore{db: c.DB()}
}

// Upsert registers a custody wallet reference, refreshing the stored address
// when the reference already exists, and returns the wallet row id.
func (s *WalletStore) Upsert(ctx context.Context, ref, address string) (int64, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallet (wallet_ref, address, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (wallet_ref) DO UPDATE SET address = excluded.address`,
		ref, address, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: upsert wallet %q: %w", ref, err)
	}
	return s.Resolve(ctx, ref)
}

// Resolve returns the wallet id for ref, or domain.ErrWalletNotFound.
func (s *WalletStore) Resolve(ctx context.Context, ref string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM wallet WHERE wallet_ref = ?", ref).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrWalletNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: resolve wallet %q: %w", ref, err)
	}
	return id, nil
}
