// Package config defines the top-level configuration for the trading agent
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by APEBOT_* environment variables.
type Config struct {
	Chain    ChainConfig   `toml:"chain"`
	Custody  CustodyConfig `toml:"custody"`
	Trading  TradingConfig `toml:"trading"`
	Agent    AgentConfig   `toml:"agent"`
	Store    StoreConfig   `toml:"store"`
	Redis    RedisConfig   `toml:"redis"`
	Server   ServerConfig  `toml:"server"`
	Sweep    SweepConfig   `toml:"sweep"`
	Export   ExportConfig  `toml:"export"`
	Mode     string        `toml:"mode"`
	LogLevel string        `toml:"log_level"`
}

// ChainConfig holds the chain RPC endpoint and the exchange contract
// addresses for the configured network.
type ChainConfig struct {
	Network string `toml:"network"`
	// ChainID is verified against the node on connect; 0 skips the check.
	ChainID       int64  `toml:"chain_id"`
	RPCURL        string `toml:"rpc_url"`
	RouterAddress string `toml:"router_address"`
	WETHAddress   string `toml:"weth_address"`
	USDCAddress   string `toml:"usdc_address"`
}

// CustodyConfig holds the wallet/custody provider connection parameters. The
// API key may be given inline, or as an encrypted file plus password.
type CustodyConfig struct {
	BaseURL          string `toml:"base_url"`
	APIKey           string `toml:"api_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
	WalletRef        string `toml:"wallet_ref"`
}

// TradingConfig holds swap workflow parameters.
type TradingConfig struct {
	// DefaultSlippage is the slippage percentage applied when a request does
	// not specify one.
	DefaultSlippage float64 `toml:"default_slippage"`
	// FeeTier is the pool fee tier in hundredths of a bip (3000 = 0.3%).
	FeeTier int64 `toml:"fee_tier"`
	// Deadline is the swap validity window embedded in each request.
	Deadline duration `toml:"deadline"`
	// MinArbProfit is the round-trip profit percentage an arbitrage path must
	// clear before it is recorded.
	MinArbProfit float64 `toml:"min_arb_profit"`
}

// AgentConfig holds the language-model dispatcher parameters. When APIKey is
// empty the agent answers from tool output alone.
type AgentConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

// StoreConfig holds the sqlite datastore location.
type StoreConfig struct {
	Path string `toml:"path"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr            string `toml:"addr"`
	Password        string `toml:"password"`
	DB              int    `toml:"db"`
	PoolSize        int    `toml:"pool_size"`
	MaxRetries      int    `toml:"max_retries"`
	TLSEnabled      bool   `toml:"tls_enabled"`
	PriceTTLSeconds int    `toml:"price_ttl_seconds"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey guards the API; empty disables authentication.
	APIKey string `toml:"api_key"`
	// RateLimitPerMinute bounds chat requests per client; 0 disables limiting.
	RateLimitPerMinute int `toml:"rate_limit_per_minute"`
}

// SweepConfig controls the background reconciliation of pending trades.
type SweepConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval duration `toml:"interval"`
}

// ExportConfig holds the optional S3 ledger snapshot export parameters.
type ExportConfig struct {
	Enabled        bool     `toml:"enabled"`
	Endpoint       string   `toml:"endpoint"`
	Region         string   `toml:"region"`
	Bucket         string   `toml:"bucket"`
	AccessKey      string   `toml:"access_key"`
	SecretKey      string   `toml:"secret_key"`
	Prefix         string   `toml:"prefix"`
	UseSSL         bool     `toml:"use_ssl"`
	ForcePathStyle bool     `toml:"force_path_style"`
	Interval       duration `toml:"interval"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values. These
// match the values in config.example.toml and target Base Sepolia.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			Network:       "base-sepolia",
			ChainID:       84532,
			RPCURL:        "https://sepolia.base.org",
			RouterAddress: "0x94cC0AaC535CCDB3C01d6787D6413C739ae12bc4",
			WETHAddress:   "0x4200000000000000000000000000000000000006",
			USDCAddress:   "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		},
		Custody: CustodyConfig{
			BaseURL: "https://api.custody.example.com/v1",
		},
		Trading: TradingConfig{
			DefaultSlippage: 0.5,
			FeeTier:         3000,
			Deadline:        duration{30 * time.Minute},
			MinArbProfit:    0.5,
		},
		Agent: AgentConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Store: StoreConfig{
			Path: "agent.db",
		},
		Redis: RedisConfig{
			Addr:            "localhost:6379",
			DB:              0,
			PoolSize:        20,
			MaxRetries:      3,
			PriceTTLSeconds: 30,
		},
		Server: ServerConfig{
			Enabled:            true,
			Port:               8000,
			RateLimitPerMinute: 60,
		},
		Sweep: SweepConfig{
			Enabled:  true,
			Interval: duration{time.Minute},
		},
		Export: ExportConfig{
			Enabled:        false,
			Region:         "us-east-1",
			Bucket:         "apebot-ledger",
			Prefix:         "snapshots",
			ForcePathStyle: true,
			Interval:       duration{24 * time.Hour},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// Validate checks the configuration for internal consistency and required
// fields. It returns the first problem found.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "serve", "sweep":
	default:
		return fmt.Errorf("config: unsupported mode %q (want serve or sweep)", c.Mode)
	}

	if c.Chain.RPCURL == "" {
		return fmt.Errorf("config: chain.rpc_url is required")
	}
	if !isHexAddress(c.Chain.RouterAddress) {
		return fmt.Errorf("config: chain.router_address %q is not a valid address", c.Chain.RouterAddress)
	}
	if !isHexAddress(c.Chain.WETHAddress) {
		return fmt.Errorf("config: chain.weth_address %q is not a valid address", c.Chain.WETHAddress)
	}

	if c.Custody.BaseURL == "" {
		return fmt.Errorf("config: custody.base_url is required")
	}
	if c.Custody.WalletRef == "" {
		return fmt.Errorf("config: custody.wallet_ref is required")
	}
	if c.Custody.APIKey == "" && c.Custody.EncryptedKeyPath == "" {
		return fmt.Errorf("config: custody.api_key or custody.encrypted_key_path is required")
	}

	if c.Trading.DefaultSlippage < 0 || c.Trading.DefaultSlippage >= 100 {
		return fmt.Errorf("config: trading.default_slippage %v out of range [0, 100)", c.Trading.DefaultSlippage)
	}
	if c.Trading.FeeTier <= 0 {
		return fmt.Errorf("config: trading.fee_tier must be positive")
	}
	if c.Trading.Deadline.Duration <= 0 {
		return fmt.Errorf("config: trading.deadline must be positive")
	}

	if c.Store.Path == "" {
		return fmt.Errorf("config: store.path is required")
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Sweep.Enabled && c.Sweep.Interval.Duration <= 0 {
		return fmt.Errorf("config: sweep.interval must be positive")
	}
	if c.Export.Enabled {
		if c.Export.Bucket == "" {
			return fmt.Errorf("config: export.bucket is required when export is enabled")
		}
		if c.Export.Interval.Duration <= 0 {
			return fmt.Errorf("config: export.interval must be positive")
		}
	}

	return nil
}

// isHexAddress reports whether s looks like a 0x-prefixed 20-byte hex address.
func isHexAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, r := range s[2:] {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
