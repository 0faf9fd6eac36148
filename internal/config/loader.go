package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load merges the TOML file at path (skipped when empty) over Defaults, loads a
// .env file when present and applies SNIPER_* environment overrides.
// The returned Config has NOT been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	// Missing .env is fine
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites fields whose SNIPER_* variable is set and non-empty.
// Secrets are expected to arrive this way rather than through the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Feed ──
	setStr(&cfg.Feed.BaseURL, "SNIPER_FEED_BASE_URL")
	setStr(&cfg.Feed.BearerToken, "SNIPER_FEED_BEARER_TOKEN")
	setStr(&cfg.Feed.Handle, "SNIPER_FEED_HANDLE")
	setDuration(&cfg.Feed.PollInterval, "SNIPER_FEED_POLL_INTERVAL")
	setInt(&cfg.Feed.FetchLimit, "SNIPER_FEED_FETCH_LIMIT")
	setInt(&cfg.Feed.RequestsPerMinute, "SNIPER_FEED_REQUESTS_PER_MINUTE")

	// ── Execution ──
	setBool(&cfg.Execution.AutoExecute, "SNIPER_AUTO_EXECUTE")
	setDuration(&cfg.Execution.Pacing, "SNIPER_EXECUTION_PACING")

	// ── Solana ──
	setStr(&cfg.Solana.RPCURL, "SNIPER_SOLANA_RPC_URL")
	setStr(&cfg.Solana.WSURL, "SNIPER_SOLANA_WS_URL")
	setStr(&cfg.Solana.WalletPublicKey, "SNIPER_SOLANA_WALLET_PUBLIC_KEY")
	setStr(&cfg.Solana.PumpPortalURL, "SNIPER_SOLANA_PUMPPORTAL_URL")
	setStr(&cfg.Solana.PumpPortalKey, "SNIPER_SOLANA_PUMPPORTAL_API_KEY")
	setStr(&cfg.Solana.PumpFunAPI, "SNIPER_SOLANA_PUMPFUN_API")
	setFloat64(&cfg.Solana.SlippagePct, "SNIPER_SOLANA_SLIPPAGE_PCT")
	setFloat64(&cfg.Solana.PriorityFee, "SNIPER_SOLANA_PRIORITY_FEE")
	setInt64(&cfg.Solana.MaxSpend, "SNIPER_SOLANA_MAX_SPEND")
	setStringSlice(&cfg.Solana.BuyVenues, "SNIPER_SOLANA_BUY_VENUES")
	setStringSlice(&cfg.Solana.SellVenues, "SNIPER_SOLANA_SELL_VENUES")

	// ── Base ──
	setStr(&cfg.Base.RPCURL, "SNIPER_BASE_RPC_URL")
	setInt64(&cfg.Base.ChainID, "SNIPER_BASE_CHAIN_ID")
	setStr(&cfg.Base.PrivateKey, "SNIPER_BASE_PRIVATE_KEY")
	setStr(&cfg.Base.WETH, "SNIPER_BASE_WETH")
	setStr(&cfg.Base.UniswapV2Router, "SNIPER_BASE_UNISWAP_V2_ROUTER")
	setStr(&cfg.Base.UniswapV3Router, "SNIPER_BASE_UNISWAP_V3_ROUTER")
	setStr(&cfg.Base.UniswapV3Quoter, "SNIPER_BASE_UNISWAP_V3_QUOTER")
	setDuration(&cfg.Base.ConfirmTimeout, "SNIPER_BASE_CONFIRM_TIMEOUT")
	setInt64(&cfg.Base.SlippageBps, "SNIPER_BASE_SLIPPAGE_BPS")
	setInt64(&cfg.Base.MaxSpend, "SNIPER_BASE_MAX_SPEND")
	setStringSlice(&cfg.Base.BuyVenues, "SNIPER_BASE_BUY_VENUES")
	setStringSlice(&cfg.Base.SellVenues, "SNIPER_BASE_SELL_VENUES")

	// ── Pricing / tracker ──
	setStr(&cfg.Pricing.DexScreenerURL, "SNIPER_PRICING_DEXSCREENER_URL")
	setInt(&cfg.Pricing.RequestsPerMinute, "SNIPER_PRICING_REQUESTS_PER_MINUTE")
	setBool(&cfg.Pricing.CacheInRedis, "SNIPER_PRICING_CACHE_IN_REDIS")
	setDuration(&cfg.Tracker.Interval, "SNIPER_TRACKER_INTERVAL")

	// ── Notify ──
	setStringSlice(&cfg.Notify.WebhookURLs, "SNIPER_NOTIFY_WEBHOOK_URLS")
	setStr(&cfg.Notify.DiscordWebhookURL, "SNIPER_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Storage ──
	setStr(&cfg.Storage.SeenPosts, "SNIPER_STORAGE_SEEN_POSTS")
	setStr(&cfg.Storage.Trades, "SNIPER_STORAGE_TRADES")
	setStr(&cfg.Storage.Valuations, "SNIPER_STORAGE_VALUATIONS")
	setStr(&cfg.Storage.PostgresDSN, "SNIPER_STORAGE_POSTGRES_DSN")
	setStr(&cfg.Storage.ClickhouseDSN, "SNIPER_STORAGE_CLICKHOUSE_DSN")
	setBool(&cfg.Storage.RunMigrations, "SNIPER_STORAGE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SNIPER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SNIPER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SNIPER_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "SNIPER_REDIS_TLS_ENABLED")

	// ── Server / log ──
	setBool(&cfg.Server.Enabled, "SNIPER_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SNIPER_SERVER_PORT")
	setStr(&cfg.Log.Level, "SNIPER_LOG_LEVEL")
	setStr(&cfg.Log.Format, "SNIPER_LOG_FORMAT")
	setStr(&cfg.Log.Output, "SNIPER_LOG_OUTPUT")
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

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				cleaned = append(cleaned, s)
			}
		}
		*dst = cleaned
	}
}
