// Package server exposes the agent over HTTP: a streaming chat endpoint,
// read-only ledger views, health, and a websocket event feed.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/smartape/apebot/internal/domain"
	"github.com/smartape/apebot/internal/server/handler"
	"github.com/smartape/apebot/internal/server/middleware"
	"github.com/smartape/apebot/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// APIKey guards the API; empty disables auth.
	APIKey string
	// RateLimitPerMinute bounds chat requests per client IP; 0 disables.
	RateLimitPerMinute int
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health *handler.HealthHandler
	Chat   *handler.ChatHandler
	Trades *handler.TradesHandler
	Arb    *handler.ArbHandler
	Prices *handler.PricesHandler
}

// Server is the HTTP + websocket front of the trading agent.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New registers all routes and builds the middleware chain. limiter may be
// nil; the chat endpoint is then unthrottled. wsHub may be nil when no
// signal bus is configured.
func New(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.Health)

	// Chat carries its own rate limit: it is the only endpoint that spends
	// money.
	var chat http.Handler = http.HandlerFunc(handlers.Chat.Chat)
	if limiter != nil && cfg.RateLimitPerMinute > 0 {
		chat = middleware.RateLimit(limiter, cfg.RateLimitPerMinute, time.Minute)(chat)
	}
	mux.Handle("POST /api/chat", chat)

	mux.HandleFunc("GET /api/trades", handlers.Trades.ListTrades)
	mux.HandleFunc("GET /api/trades/{hash}", handlers.Trades.TradeStatus)
	mux.HandleFunc("GET /api/arbitrage/recent", handlers.Arb.ListRecent)
	mux.HandleFunc("GET /api/prices/{token}", handlers.Prices.ListPrices)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:        fmt.Sprintf(":%d", cfg.Port),
			Handler:     h,
			ReadTimeout: 15 * time.Second,
			// No WriteTimeout: chat responses stream for as long as a swap
			// takes to confirm.
			IdleTimeout: 60 * time.Second,
		},
		logger: logger.With(slog.String("component", "server")),
	}
}

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
