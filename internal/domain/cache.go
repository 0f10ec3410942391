package domain

import (
	"context"
	"time"
)

// PriceCache holds the most recent token prices so repeated lookups do not
// hit the chain. Misses return ErrNotFound.
type PriceCache interface {
	SetPrice(ctx context.Context, tokenAddress string, price string, ts time.Time) error
	GetPrice(ctx context.Context, tokenAddress string) (price string, ts time.Time, err error)
}

// RateLimiter bounds request rates per key over a sliding window.
type RateLimiter interface {
	// Allow reports whether one more request for key fits within the window.
	// Allowed requests are counted.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SignalBus is the ephemeral pub/sub channel connecting the ledger and agent
// to live consumers such as the websocket hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe returns a channel of raw payloads. It is closed when ctx is
	// cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
