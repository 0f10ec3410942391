package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/smartape/apebot/internal/domain"
)

// PriceStore implements domain.PriceStore. Samples are append-only.
type PriceStore struct {
	db *sql.DB
}

// NewPriceStore creates a PriceStore backed by the given client.
func NewPriceStore(c *Client) *PriceStore {
	return &PriceStore{db: c.DB()}
}

// Insert appends one price observation.
func (s *PriceStore) Insert(ctx context.Context, p domain.PriceSample) error {
	ts := p.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO price_monitoring (token_address, price, timestamp)
		VALUES (?, ?, ?)`,
		p.TokenAddress, p.Price, ts,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert price sample: %w", err)
	}
	return nil
}

// ListRecent returns the newest samples for a token, bounded by limit.
func (s *PriceStore) ListRecent(ctx context.Context, tokenAddress string, limit int) ([]domain.PriceSample, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, token_address, price, timestamp FROM price_monitoring
		WHERE token_address = ? ORDER BY timestamp DESC LIMIT ?`,
		tokenAddress, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list price samples: %w", err)
	}
	defer rows.Close()

	var samples []domain.PriceSample
	for rows.Next() {
		var p domain.PriceSample
		if err := rows.Scan(&p.ID, &p.TokenAddress, &p.Price, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlite: scan price sample: %w", err)
		}
		samples = append(samples, p)
	}
	return samples, rows.Err()
}

// ListBefore returns all samples recorded strictly before the cutoff, oldest
// first. Used by the snapshot exporter.
func (s *PriceStore) ListBefore(ctx context.Context, before time.Time) ([]domain.PriceSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, token_address, price, timestamp FROM price_monitoring
		WHERE timestamp < ? ORDER BY timestamp ASC`,
		before,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list price samples before: %w", err)
	}
	defer rows.Close()

	var samples []domain.PriceSample
	for rows.Next() {
		var p domain.PriceSample
		if err := rows.Scan(&p.ID, &p.TokenAddress, &p.Price, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlite: scan price sample: %w", err)
		}
		samples = append(samples, p)
	}
	return samples, rows.Err()
}
