package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/smartape/apebot/internal/domain"
)

// pathSeparator joins the ordered token addresses of an opportunity into a
// single column value.
const pathSeparator = "->"

// ArbStore implements domain.ArbStore.
type ArbStore struct {
	db *sql.DB
}

// NewArbStore creates an ArbStore backed by the given client.
func NewArbStore(c *Client) *ArbStore {
	return &ArbStore{db: c.DB()}
}

// Insert appends a detected opportunity.
func (s *ArbStore) Insert(ctx context.Context, o domain.ArbOpportunity) error {
	if len(o.TokenPath) < 2 {
		return fmt.Errorf("sqlite: arbitrage path needs at least 2 tokens, got %d", len(o.TokenPath))
	}
	status := o.Status
	if status == "" {
		status = domain.ArbDetected
	}
	ts := o.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO arbitrage_opportunities
			(token_path, profit_percentage, min_input_amount, status, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		strings.Join(o.TokenPath, pathSeparator),
		o.ProfitPercentage, o.MinInputAmount, status, ts,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert arbitrage opportunity: %w", err)
	}
	return nil
}

// ListDetected returns opportunities still in DETECTED state, most profitable
// first.
func (s *ArbStore) ListDetected(ctx context.Context) ([]domain.ArbOpportunity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, token_path, profit_percentage, min_input_amount, status, timestamp
		FROM arbitrage_opportunities
		WHERE status = ?
		ORDER BY CAST(profit_percentage AS REAL) DESC`,
		domain.ArbDetected,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list arbitrage opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.ArbOpportunity
	for rows.Next() {
		var (
			o    domain.ArbOpportunity
			path string
		)
		if err := rows.Scan(&o.ID, &path, &o.ProfitPercentage, &o.MinInputAmount, &o.Status, &o.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlite: scan arbitrage opportunity: %w", err)
		}
		o.TokenPath = strings.Split(path, pathSeparator)
		opps = append(opps, o)
	}
	return opps, rows.Err()
}
