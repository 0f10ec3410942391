// Package sqlite implements the domain store interfaces on a single
// file-backed SQLite database via database/sql and the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Client wraps the shared *sql.DB handle. All stores created from the same
// Client share one connection so writes are serialized; each operation runs
// in its own implicit transaction and commits before returning, so the file
// is never locked across an external network call.
type Client struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database file at path, applies the
// embedded schema idempotently, and returns the Client.
func Open(ctx context.Context, path string) (*Client, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: store path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	// Single-writer discipline: SQLite permits one writer at a time, and the
	// ledger has no multi-statement coupling between trades.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Client{db: db}, nil
}

// DB exposes the underlying handle for the per-entity stores.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Health verifies the database file is reachable.
func (c *Client) Health(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// Close releases the database handle. Safe to call on a nil client.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}
