package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smartape/apebot/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes. Each token's
// price is a hash at "price:{tokenAddress}" with fields "price" (decimal
// string) and "ts" (Unix nanoseconds). Entries expire after the configured
// TTL so a stale quote is never served.
type PriceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPriceCache creates a PriceCache with the given entry lifetime.
func NewPriceCache(c *Client, ttl time.Duration) *PriceCache {
	return &PriceCache{rdb: c.rdb, ttl: ttl}
}

func priceKey(tokenAddress string) string {
	return "price:" + tokenAddress
}

// SetPrice stores the latest price observation for a token.
func (pc *PriceCache) SetPrice(ctx context.Context, tokenAddress string, price string, ts time.Time) error {
	key := priceKey(tokenAddress)
	fields := map[string]interface{}{
		"price": price,
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}

	pipe := pc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if pc.ttl > 0 {
		pipe.Expire(ctx, key, pc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set price %s: %w", tokenAddress, err)
	}
	return nil
}

// GetPrice retrieves the cached price for a token. It returns
// domain.ErrNotFound when the entry is missing or expired.
func (pc *PriceCache) GetPrice(ctx context.Context, tokenAddress string) (string, time.Time, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(tokenAddress)).Result()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("redis: get price %s: %w", tokenAddress, err)
	}
	if len(vals) == 0 {
		return "", time.Time{}, domain.ErrNotFound
	}

	price, ok := vals["price"]
	if !ok {
		return "", time.Time{}, domain.ErrNotFound
	}
	tsStr, ok := vals["ts"]
	if !ok {
		return "", time.Time{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("redis: parse ts %s: %w", tokenAddress, err)
	}

	return price, time.Unix(0, tsNano), nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
