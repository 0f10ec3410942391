package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/smartape/apebot/internal/agent"
	"github.com/smartape/apebot/internal/arbitrage"
	s3blob "github.com/smartape/apebot/internal/blob/s3"
	"github.com/smartape/apebot/internal/cache/redis"
	"github.com/smartape/apebot/internal/chain"
	"github.com/smartape/apebot/internal/config"
	"github.com/smartape/apebot/internal/crypto"
	"github.com/smartape/apebot/internal/domain"
	"github.com/smartape/apebot/internal/ledger"
	"github.com/smartape/apebot/internal/platform/custody"
	"github.com/smartape/apebot/internal/platform/erc20"
	"github.com/smartape/apebot/internal/platform/uniswap"
	"github.com/smartape/apebot/internal/server"
	"github.com/smartape/apebot/internal/server/handler"
	"github.com/smartape/apebot/internal/server/ws"
	"github.com/smartape/apebot/internal/store/sqlite"
	"github.com/smartape/apebot/internal/trading"
)

// Dependencies bundles everything the application modes operate on. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Chain *chain.Client
	Store *sqlite.Client
	Redis *redis.Client

	Ledger     *ledger.Ledger
	Reconciler *ledger.Reconciler

	// Serve-mode collaborators; nil in sweep mode.
	Dispatcher  *agent.Dispatcher
	Server      *server.Server
	Hub         *ws.Hub
	Exporter    *s3blob.Exporter
	ExportEvery time.Duration
}

// needsCustody reports whether the mode talks to the custody provider.
func needsCustody(mode string) bool {
	return mode == "serve"
}

// needsRedis reports whether the mode uses the cache and signal bus.
func needsRedis(mode string) bool {
	return mode == "serve"
}

// Wire constructs every concrete dependency for the configured mode. The
// returned cleanup releases resources in reverse construction order and is
// safe to call after a partial failure.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// Chain RPC. Both modes need it: serve for quotes and views, sweep for
	// receipts.
	chainClient, err := chain.Dial(ctx, cfg.Chain.RPCURL, cfg.Chain.ChainID)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: chain: %w", err)
	}
	closers = append(closers, chainClient.Close)
	deps.Chain = chainClient

	// SQLite ledger storage.
	store, err := sqlite.Open(ctx, cfg.Store.Path)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: store: %w", err)
	}
	closers = append(closers, func() { _ = store.Close() })
	deps.Store = store

	wallets := sqlite.NewWalletStore(store)
	trades := sqlite.NewTradeStore(store)
	prices := sqlite.NewPriceStore(store)
	arbs := sqlite.NewArbStore(store)

	// Redis cache, rate limiter, and signal bus.
	var (
		priceCache domain.PriceCache
		limiter    domain.RateLimiter
		bus        domain.SignalBus
	)
	if needsRedis(cfg.Mode) {
		redisClient, err := redis.Dial(ctx, redis.Options{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.Redis = redisClient

		priceCache = redis.NewPriceCache(redisClient,
			time.Duration(cfg.Redis.PriceTTLSeconds)*time.Second)
		limiter = redis.NewRateLimiter(redisClient)
		bus = redis.NewSignalBus(redisClient)
	}

	deps.Ledger = ledger.New(wallets, trades, prices, arbs, chainClient, bus, logger)
	deps.Reconciler = ledger.NewReconciler(deps.Ledger, cfg.Sweep.Interval.Duration, logger)

	if !needsCustody(cfg.Mode) {
		return deps, cleanup, nil
	}

	// Custody provider.
	custodyKey, err := crypto.LoadSecret(crypto.SecretConfig{
		Raw:           cfg.Custody.APIKey,
		EncryptedPath: cfg.Custody.EncryptedKeyPath,
		Password:      cfg.Custody.KeyPassword,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: custody key: %w", err)
	}
	custodyClient := custody.NewClient(cfg.Custody.BaseURL, custodyKey)
	wallet, err := custodyClient.Wallet(ctx, cfg.Custody.WalletRef)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: custody wallet: %w", err)
	}
	if _, err := deps.Ledger.RegisterWallet(ctx, wallet.Ref(), wallet.Address()); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: register wallet: %w", err)
	}

	// Exchange gateway and the swap workflow.
	gateway, err := uniswap.NewGateway(chainClient, cfg.Chain.RouterAddress,
		cfg.Trading.FeeTier, cfg.Trading.Deadline.Duration)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: gateway: %w", err)
	}
	tokenReader, err := erc20.NewReader(chainClient)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: token reader: %w", err)
	}
	approver := trading.NewAllowanceManager(tokenReader, cfg.Chain.RouterAddress, logger)
	orchestrator := trading.NewOrchestrator(wallet, custodyClient, approver, gateway, logger)

	simulator := arbitrage.NewSimulator(gateway, deps.Ledger, cfg.Trading.MinArbProfit, logger)

	// Agent dispatcher.
	toolkit := agent.NewToolkit(agent.ToolkitConfig{
		Orchestrator: orchestrator,
		Ledger:       deps.Ledger,
		Quoter:       gateway,
		Assets:       custodyClient,
		Cache:        priceCache,
		Simulator:    simulator,
		WalletRef:    wallet.Ref(),
		Book: agent.TokenBook{
			USDC: cfg.Chain.USDCAddress,
			WETH: cfg.Chain.WETHAddress,
		},
		DefaultSlippage: cfg.Trading.DefaultSlippage,
		Logger:          logger,
	})
	var llm *agent.LLMClient
	if cfg.Agent.APIKey != "" {
		llm = agent.NewLLMClient(cfg.Agent.BaseURL, cfg.Agent.APIKey, cfg.Agent.Model)
	}
	deps.Dispatcher = agent.NewDispatcher(toolkit, llm, logger)

	// Snapshot export.
	if cfg.Export.Enabled {
		blobClient, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.Export.Endpoint,
			Region:         cfg.Export.Region,
			Bucket:         cfg.Export.Bucket,
			AccessKey:      cfg.Export.AccessKey,
			SecretKey:      cfg.Export.SecretKey,
			UseSSL:         cfg.Export.UseSSL,
			ForcePathStyle: cfg.Export.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: export: %w", err)
		}
		deps.Exporter = s3blob.NewExporter(s3blob.NewWriter(blobClient),
			trades, prices, cfg.Export.Prefix, logger)
		deps.ExportEvery = cfg.Export.Interval.Duration
	}

	// HTTP server.
	if cfg.Server.Enabled {
		if bus != nil {
			deps.Hub = ws.NewHub(bus, logger)
		}
		checks := map[string]handler.HealthCheck{
			"chain": chainClient.Health,
			"store": store.Health,
		}
		if deps.Redis != nil {
			checks["redis"] = deps.Redis.Ping
		}
		deps.Server = server.New(server.Config{
			Port:               cfg.Server.Port,
			CORSOrigins:        cfg.Server.CORSOrigins,
			APIKey:             cfg.Server.APIKey,
			RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		}, server.Handlers{
			Health: handler.NewHealthHandler(checks, logger),
			Chat:   handler.NewChatHandler(deps.Dispatcher, logger),
			Trades: handler.NewTradesHandler(deps.Ledger, wallet.Ref(), logger),
			Arb:    handler.NewArbHandler(deps.Ledger, logger),
			Prices: handler.NewPricesHandler(deps.Ledger, logger),
		}, deps.Hub, limiter, logger)
	}

	return deps, cleanup, nil
}
