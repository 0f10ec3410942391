package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/smartape/apebot/internal/domain"
)

// BlobWriter uploads one object. Satisfied by Writer.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// TradeSnapshotStore provides time-ranged read access to trades.
type TradeSnapshotStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error)
}

// PriceSnapshotStore provides time-ranged read access to price samples.
type PriceSnapshotStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.PriceSample, error)
}

// tradeRow is the JSONL export shape for a trade.
type tradeRow struct {
	ID           int64   `json:"id"`
	WalletID     int64   `json:"wallet_id"`
	TokenIn      string  `json:"token_in"`
	TokenOut     string  `json:"token_out"`
	AmountIn     string  `json:"amount_in"`
	MinAmountOut string  `json:"min_amount_out"`
	Status       string  `json:"status"`
	TxHash       *string `json:"tx_hash"`
	GasPrice     *string `json:"gas_price"`
	Timestamp    string  `json:"timestamp"`
}

// priceRow is the JSONL export shape for a price sample.
type priceRow struct {
	ID           int64  `json:"id"`
	TokenAddress string `json:"token_address"`
	Price        string `json:"price"`
	Timestamp    string `json:"timestamp"`
}

// Exporter uploads daily JSONL snapshots of the ledger. Snapshots are
// additive backups; the primary store is never pruned here.
type Exporter struct {
	writer BlobWriter
	trades TradeSnapshotStore
	prices PriceSnapshotStore
	prefix string
	logger *slog.Logger
}

// NewExporter creates an Exporter writing under the given key prefix.
func NewExporter(writer BlobWriter, trades TradeSnapshotStore, prices PriceSnapshotStore, prefix string, logger *slog.Logger) *Exporter {
	return &Exporter{
		writer: writer,
		trades: trades,
		prices: prices,
		prefix: prefix,
		logger: logger.With(slog.String("component", "exporter")),
	}
}

// Snapshot exports all trades and price samples recorded before the cutoff.
// It returns how many rows of each kind were uploaded.
func (e *Exporter) Snapshot(ctx context.Context, before time.Time) (trades, prices int, err error) {
	trades, err = e.snapshotTrades(ctx, before)
	if err != nil {
		return 0, 0, err
	}
	prices, err = e.snapshotPrices(ctx, before)
	if err != nil {
		return trades, 0, err
	}
	return trades, prices, nil
}

// Run snapshots on a fixed interval until ctx is cancelled. Export failures
// are logged; the loop keeps going.
func (e *Exporter) Run(ctx context.Context, interval time.Duration) error {
	e.logger.Info("exporter started", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("exporter stopped")
			return ctx.Err()
		case <-ticker.C:
			trades, prices, err := e.Snapshot(ctx, time.Now().UTC())
			if err != nil {
				e.logger.Error("snapshot failed", slog.String("error", err.Error()))
				continue
			}
			e.logger.Info("snapshot uploaded",
				slog.Int("trades", trades),
				slog.Int("prices", prices))
		}
	}
}

func (e *Exporter) snapshotTrades(ctx context.Context, before time.Time) (int, error) {
	trades, err := e.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: snapshot trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	rows := make([]tradeRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, tradeRow{
			ID:           t.ID,
			WalletID:     t.WalletID,
			TokenIn:      t.TokenIn,
			TokenOut:     t.TokenOut,
			AmountIn:     t.AmountIn,
			MinAmountOut: t.MinAmountOut,
			Status:       string(t.Status),
			TxHash:       t.TxHash,
			GasPrice:     t.GasPrice,
			Timestamp:    t.Timestamp.UTC().Format(time.RFC3339),
		})
	}

	buf, err := marshalJSONL(rows)
	if err != nil {
		return 0, fmt.Errorf("s3blob: snapshot trades marshal: %w", err)
	}

	path := e.snapshotPath("trades", before)
	if err := e.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: snapshot trades upload: %w", err)
	}
	return len(rows), nil
}

func (e *Exporter) snapshotPrices(ctx context.Context, before time.Time) (int, error) {
	samples, err := e.prices.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: snapshot prices query: %w", err)
	}
	if len(samples) == 0 {
		return 0, nil
	}

	rows := make([]priceRow, 0, len(samples))
	for _, p := range samples {
		rows = append(rows, priceRow{
			ID:           p.ID,
			TokenAddress: p.TokenAddress,
			Price:        p.Price,
			Timestamp:    p.Timestamp.UTC().Format(time.RFC3339),
		})
	}

	buf, err := marshalJSONL(rows)
	if err != nil {
		return 0, fmt.Errorf("s3blob: snapshot prices marshal: %w", err)
	}

	path := e.snapshotPath("prices", before)
	if err := e.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: snapshot prices upload: %w", err)
	}
	return len(rows), nil
}

// snapshotPath builds the object key, partitioned by cutoff day:
//
//	snapshots/trades/2026-03-01.jsonl
//	snapshots/prices/2026-03-01.jsonl
func (e *Exporter) snapshotPath(kind string, before time.Time) string {
	return fmt.Sprintf("%s/%s/%s.jsonl", e.prefix, kind, before.UTC().Format("2006-01-02"))
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
