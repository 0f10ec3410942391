package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies APEBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known APEBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.Network, "APEBOT_CHAIN_NETWORK")
	setInt64(&cfg.Chain.ChainID, "APEBOT_CHAIN_ID")
	setStr(&cfg.Chain.RPCURL, "APEBOT_CHAIN_RPC_URL")
	setStr(&cfg.Chain.RouterAddress, "APEBOT_CHAIN_ROUTER_ADDRESS")
	setStr(&cfg.Chain.WETHAddress, "APEBOT_CHAIN_WETH_ADDRESS")
	setStr(&cfg.Chain.USDCAddress, "APEBOT_CHAIN_USDC_ADDRESS")

	// ── Custody ──
	setStr(&cfg.Custody.BaseURL, "APEBOT_CUSTODY_BASE_URL")
	setStr(&cfg.Custody.APIKey, "APEBOT_CUSTODY_API_KEY")
	setStr(&cfg.Custody.EncryptedKeyPath, "APEBOT_CUSTODY_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Custody.KeyPassword, "APEBOT_CUSTODY_KEY_PASSWORD")
	setStr(&cfg.Custody.WalletRef, "APEBOT_CUSTODY_WALLET_REF")

	// ── Trading ──
	setFloat64(&cfg.Trading.DefaultSlippage, "APEBOT_TRADING_DEFAULT_SLIPPAGE")
	setInt64(&cfg.Trading.FeeTier, "APEBOT_TRADING_FEE_TIER")
	setDuration(&cfg.Trading.Deadline, "APEBOT_TRADING_DEADLINE")
	setFloat64(&cfg.Trading.MinArbProfit, "APEBOT_TRADING_MIN_ARB_PROFIT")

	// ── Agent ──
	setStr(&cfg.Agent.BaseURL, "APEBOT_AGENT_BASE_URL")
	setStr(&cfg.Agent.APIKey, "APEBOT_AGENT_API_KEY")
	setStr(&cfg.Agent.APIKey, "OPENAI_API_KEY") // compatibility alias
	setStr(&cfg.Agent.Model, "APEBOT_AGENT_MODEL")

	// ── Store ──
	setStr(&cfg.Store.Path, "APEBOT_STORE_PATH")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "APEBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "APEBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "APEBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "APEBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "APEBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "APEBOT_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.PriceTTLSeconds, "APEBOT_REDIS_PRICE_TTL_SECONDS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "APEBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "APEBOT_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "APEBOT_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimitPerMinute, "APEBOT_SERVER_RATE_LIMIT_PER_MINUTE")

	// ── Sweep ──
	setBool(&cfg.Sweep.Enabled, "APEBOT_SWEEP_ENABLED")
	setDuration(&cfg.Sweep.Interval, "APEBOT_SWEEP_INTERVAL")

	// ── Export ──
	setBool(&cfg.Export.Enabled, "APEBOT_EXPORT_ENABLED")
	setStr(&cfg.Export.Endpoint, "APEBOT_EXPORT_ENDPOINT")
	setStr(&cfg.Export.Region, "APEBOT_EXPORT_REGION")
	setStr(&cfg.Export.Bucket, "APEBOT_EXPORT_BUCKET")
	setStr(&cfg.Export.AccessKey, "APEBOT_EXPORT_ACCESS_KEY")
	setStr(&cfg.Export.SecretKey, "APEBOT_EXPORT_SECRET_KEY")
	setStr(&cfg.Export.Prefix, "APEBOT_EXPORT_PREFIX")
	setDuration(&cfg.Export.Interval, "APEBOT_EXPORT_INTERVAL")

	// ── Top-level ──
	setStr(&cfg.Mode, "APEBOT_MODE")
	setStr(&cfg.LogLevel, "APEBOT_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
