// Package redis implements the domain cache interfaces using go-redis/v9:
// the token price cache, the signal bus feeding the websocket hub, and the
// chat endpoint rate limiter.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Options mirrors config.RedisConfig so app wiring passes the connection
// settings through one for one.
type Options struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

// Client owns the shared go-redis connection pool used by the price cache,
// signal bus, and rate limiter.
type Client struct {
	rdb *redis.Client
}

// Dial connects to Redis and verifies connectivity with a ping before
// returning, so a misconfigured address fails at startup instead of on the
// first cache read.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	ropts := &redis.Options{
		Addr:       opts.Addr,
		Password:   opts.Password,
		DB:         opts.DB,
		PoolSize:   opts.PoolSize,
		MaxRetries: opts.MaxRetries,
	}
	if opts.TLSEnabled {
		ropts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	c := &Client{rdb: redis.NewClient(ropts)}
	if err := c.Ping(ctx); err != nil {
		_ = c.rdb.Close()
		return nil, err
	}
	return c, nil
}

// Ping verifies the connection is alive. The health endpoint uses it as a
// dependency probe.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
