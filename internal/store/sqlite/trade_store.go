package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/smartape/apebot/internal/domain"
)

// TradeStore implements domain.TradeStore.
type TradeStore struct {
	db *sql.DB
}

// NewTradeStore creates a TradeStore backed by the given client.
func NewTradeStore(c *Client) *TradeStore {
	return &TradeStore{db: c.DB()}
}

const tradeSelectCols = `id, wallet_id, token_in, token_out, amount_in,
	min_amount_out, status, tx_hash, gas_price, timestamp`

func scanTrade(row interface{ Scan(...any) error }) (domain.Trade, error) {
	var (
		t        domain.Trade
		txHash   sql.NullString
		gasPrice sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.WalletID, &t.TokenIn, &t.TokenOut, &t.AmountIn,
		&t.MinAmountOut, &t.Status, &txHash, &gasPrice, &t.Timestamp,
	)
	if err != nil {
		return domain.Trade{}, err
	}
	if txHash.Valid {
		t.TxHash = &txHash.String
	}
	if gasPrice.Valid {
		t.GasPrice = &gasPrice.String
	}
	return t, nil
}

func scanTradeRows(rows *sql.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Insert appends a trade and returns its row id. The tx_hash UNIQUE
// constraint rejects duplicate submissions of the same transaction.
func (s *TradeStore) Insert(ctx context.Context, t domain.Trade) (int64, error) {
	ts := t.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (wallet_id, token_in, token_out, amount_in,
			min_amount_out, status, tx_hash, gas_price, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.WalletID, t.TokenIn, t.TokenOut, t.AmountIn,
		t.MinAmountOut, t.Status, t.TxHash, t.GasPrice, ts,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert trade: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert trade id: %w", err)
	}
	return id, nil
}

// GetByTxHash returns the trade with the given transaction hash, or
// domain.ErrTradeNotFound.
func (s *TradeStore) GetByTxHash(ctx context.Context, txHash string) (domain.Trade, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tradeSelectCols+` FROM trades WHERE tx_hash = ?`, txHash)
	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Trade{}, domain.ErrTradeNotFound
	}
	if err != nil {
		return domain.Trade{}, fmt.Errorf("sqlite: get trade %s: %w", txHash, err)
	}
	return t, nil
}

// UpdateStatus sets the status for the trade with the given hash. Statuses
// only move PENDING -> terminal; the WHERE clause refuses to touch trades
// that already reached a terminal state.
func (s *TradeStore) UpdateStatus(ctx context.Context, txHash string, status domain.TradeStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE trades SET status = ?
		WHERE tx_hash = ? AND status = ?`,
		status, txHash, domain.TradePending,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update trade status %s: %w", txHash, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrTradeNotFound
	}
	return nil
}

// ListPending returns every trade awaiting receipt resolution, oldest first
// so the sweep converges in submission order.
func (s *TradeStore) ListPending(ctx context.Context) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tradeSelectCols+` FROM trades WHERE status = ? ORDER BY timestamp ASC`,
		domain.TradePending,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list pending trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan pending trades: %w", err)
	}
	return trades, nil
}

// ListRecent returns a wallet's trades, newest first, bounded by limit.
func (s *TradeStore) ListRecent(ctx context.Context, walletID int64, limit int) ([]domain.Trade, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tradeSelectCols+` FROM trades
		 WHERE wallet_id = ? ORDER BY timestamp DESC LIMIT ?`,
		walletID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list recent trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan recent trades: %w", err)
	}
	return trades, nil
}

// ListBefore returns all trades created strictly before the cutoff, oldest
// first. Used by the snapshot exporter.
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tradeSelectCols+` FROM trades WHERE timestamp < ? ORDER BY timestamp ASC`,
		before,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list trades before: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}
