// Package config defines the sniper configuration, its defaults and validation.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"post-sniper/internal/domain"
	"post-sniper/internal/solana"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the top-level configuration.
type Config struct {
	Feed      FeedConfig      `toml:"feed"`
	Execution ExecutionConfig `toml:"execution"`
	Solana    SolanaConfig    `toml:"solana"`
	Base      BaseConfig      `toml:"base"`
	Pricing   PricingConfig   `toml:"pricing"`
	Tracker   TrackerConfig   `toml:"tracker"`
	Notify    NotifyConfig    `toml:"notify"`
	Storage   StorageConfig   `toml:"storage"`
	Redis     RedisConfig     `toml:"redis"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
}

// FeedConfig configures the watched account and the post source.
type FeedConfig struct {
	BaseURL           string   `toml:"base_url"`
	BearerToken       string   `toml:"bearer_token"`
	Handle            string   `toml:"handle"`
	PollInterval      Duration `toml:"poll_interval"`
	FetchLimit        int      `toml:"fetch_limit"`
	RequestsPerMinute int      `toml:"requests_per_minute"`
	Timeout           Duration `toml:"timeout"`
}

// ExecutionConfig gates automatic acquisitions.
type ExecutionConfig struct {
	AutoExecute bool     `toml:"auto_execute"`
	Pacing      Duration `toml:"pacing"` // delay between consecutive router calls
}

// SolanaConfig configures chain A.
type SolanaConfig struct {
	RPCURL          string   `toml:"rpc_url"`
	WSURL           string   `toml:"ws_url"`
	WalletPublicKey string   `toml:"wallet_public_key"`
	PumpPortalURL   string   `toml:"pumpportal_url"`
	PumpPortalKey   string   `toml:"pumpportal_api_key"`
	PumpFunAPI      string   `toml:"pumpfun_api"`
	SlippagePct     float64  `toml:"slippage_pct"`
	PriorityFee     float64  `toml:"priority_fee"`
	MaxSpend        int64    `toml:"max_spend"` // whole SOL, 0 = no cap
	ConfirmTimeout  Duration `toml:"confirm_timeout"`
	BuyVenues       []string `toml:"buy_venues"`
	SellVenues      []string `toml:"sell_venues"`
}

// BaseConfig configures chain B.
type BaseConfig struct {
	RPCURL           string   `toml:"rpc_url"`
	ChainID          int64    `toml:"chain_id"`
	PrivateKey       string   `toml:"private_key"`
	WETH             string   `toml:"weth"`
	UniswapV2Router  string   `toml:"uniswap_v2_router"`
	UniswapV2Factory string   `toml:"uniswap_v2_factory"`
	UniswapV3Router  string   `toml:"uniswap_v3_router"`
	UniswapV3Factory string   `toml:"uniswap_v3_factory"`
	UniswapV3Quoter  string   `toml:"uniswap_v3_quoter"`
	FeeTiers         []int64  `toml:"fee_tiers"`
	SlippageBps      int64    `toml:"slippage_bps"`
	MaxSpend         int64    `toml:"max_spend"` // whole ETH, 0 = no cap
	ConfirmTimeout   Duration `toml:"confirm_timeout"`
	BuyVenues        []string `toml:"buy_venues"`
	SellVenues       []string `toml:"sell_venues"`
}

// PricingConfig configures the quote source used by the tracker.
type PricingConfig struct {
	DexScreenerURL    string   `toml:"dexscreener_url"`
	RequestsPerMinute int      `toml:"requests_per_minute"`
	CacheInRedis      bool     `toml:"cache_in_redis"`
	CacheTTL          Duration `toml:"cache_ttl"`
}

// TrackerConfig configures the revaluation loop.
type TrackerConfig struct {
	Interval Duration `toml:"interval"`
}

// NotifyConfig configures alert sinks.
type NotifyConfig struct {
	WebhookURLs       []string `toml:"webhook_urls"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Timeout           Duration `toml:"timeout"`
}

// StorageConfig selects a backend per store.
type StorageConfig struct {
	SeenPosts     string `toml:"seen_posts"` // memory | redis | postgres
	Trades        string `toml:"trades"`     // memory | postgres
	Valuations    string `toml:"valuations"` // memory | clickhouse
	PostgresDSN   string `toml:"postgres_dsn"`
	ClickhouseDSN string `toml:"clickhouse_dsn"`
	RunMigrations bool   `toml:"run_migrations"`
	SeenPostsKey  string `toml:"seen_posts_key"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig configures the HTTP status server.
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Output     string `toml:"output"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Duration decodes TOML strings such as "5s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Feed: FeedConfig{
			BaseURL:           "https://api.twitter.com",
			PollInterval:      Duration{10 * time.Second},
			FetchLimit:        10,
			RequestsPerMinute: 60,
			Timeout:           Duration{15 * time.Second},
		},
		Execution: ExecutionConfig{
			AutoExecute: false,
			Pacing:      Duration{2 * time.Second},
		},
		Solana: SolanaConfig{
			RPCURL:         "https://api.mainnet-beta.solana.com",
			WSURL:          "wss://api.mainnet-beta.solana.com",
			PumpPortalURL:  "https://pumpportal.fun",
			PumpFunAPI:     "https://frontend-api-v3.pump.fun",
			SlippagePct:    15,
			PriorityFee:    0.0005,
			ConfirmTimeout: Duration{60 * time.Second},
			BuyVenues:      []string{domain.VenuePumpFun, domain.VenuePumpSwap, domain.VenueRaydium},
			SellVenues:     []string{domain.VenuePumpFun, domain.VenuePumpSwap, domain.VenueRaydium},
		},
		Base: BaseConfig{
			RPCURL:           "https://mainnet.base.org",
			ChainID:          8453,
			WETH:             "0x4200000000000000000000000000000000000006",
			UniswapV2Router:  "0x4752ba5DBc23f44D87826276BF6Fd6b1C372aD24",
			UniswapV2Factory: "0x8909Dc15e40173Ff4699343b6eB8132c65e18eC6",
			UniswapV3Router:  "0x2626664c2603336E57B271c5C0b26F421741e481",
			UniswapV3Factory: "0x33128a8fC17869897dcE68Ed026d694621f6FDfD",
			UniswapV3Quoter:  "0x3d4e44Eb1374240CE5F1B871ab261CD16335B76a",
			FeeTiers:         []int64{10000, 3000, 500},
			SlippageBps:      1500,
			ConfirmTimeout:   Duration{90 * time.Second},
			BuyVenues:        []string{domain.VenueUniswapV3, domain.VenueUniswapV2},
			SellVenues:       []string{domain.VenueUniswapV3, domain.VenueUniswapV2},
		},
		Pricing: PricingConfig{
			DexScreenerURL:    "https://api.dexscreener.com",
			RequestsPerMinute: 300,
			CacheTTL:          Duration{30 * time.Second},
		},
		Tracker: TrackerConfig{
			Interval: Duration{5 * time.Second},
		},
		Notify: NotifyConfig{
			Timeout: Duration{10 * time.Second},
		},
		Storage: StorageConfig{
			SeenPosts:     "memory",
			Trades:        "memory",
			Valuations:    "memory",
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8090,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration and returns every problem found, wrapped in ErrInvalid.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("unknown log.level %q (valid: debug, info, warn, error)", c.Log.Level))
	}

	// Feed
	if strings.TrimSpace(c.Feed.Handle) == "" {
		errs = append(errs, "feed: handle must not be empty")
	}
	if c.Feed.BearerToken == "" {
		errs = append(errs, "feed: bearer_token must not be empty")
	}
	if !isHTTPURL(c.Feed.BaseURL) {
		errs = append(errs, fmt.Sprintf("feed: base_url %q is not an http(s) URL", c.Feed.BaseURL))
	}
	if c.Feed.PollInterval.Duration <= 0 {
		errs = append(errs, "feed: poll_interval must be > 0")
	}
	if c.Feed.FetchLimit < 5 || c.Feed.FetchLimit > 100 {
		errs = append(errs, fmt.Sprintf("feed: fetch_limit must be 5-100, got %d", c.Feed.FetchLimit))
	}

	if c.Execution.Pacing.Duration < 0 {
		errs = append(errs, "execution: pacing must be >= 0")
	}

	// Venue lists
	errs = append(errs, validateVenues(domain.ChainSolana, "buy_venues", c.Solana.BuyVenues)...)
	errs = append(errs, validateVenues(domain.ChainSolana, "sell_venues", c.Solana.SellVenues)...)
	errs = append(errs, validateVenues(domain.ChainBase, "buy_venues", c.Base.BuyVenues)...)
	errs = append(errs, validateVenues(domain.ChainBase, "sell_venues", c.Base.SellVenues)...)

	if c.Solana.MaxSpend < 0 {
		errs = append(errs, "solana: max_spend must be >= 0")
	}
	if c.Base.MaxSpend < 0 {
		errs = append(errs, "base: max_spend must be >= 0")
	}

	// Wallets are only needed when trades can happen
	if c.Execution.AutoExecute {
		if err := solana.ValidatePublicKey(c.Solana.WalletPublicKey); err != nil {
			errs = append(errs, fmt.Sprintf("solana: wallet_public_key: %v", err))
		}
		if c.Solana.PumpPortalKey == "" {
			errs = append(errs, "solana: pumpportal_api_key is required when auto_execute is on")
		}
		if _, err := crypto.HexToECDSA(strings.TrimPrefix(c.Base.PrivateKey, "0x")); err != nil {
			errs = append(errs, "base: private_key must be a 32-byte hex key")
		}
	}

	if c.Base.ChainID <= 0 {
		errs = append(errs, "base: chain_id must be positive")
	}
	for _, f := range []struct{ name, addr string }{
		{"weth", c.Base.WETH},
		{"uniswap_v2_router", c.Base.UniswapV2Router},
		{"uniswap_v2_factory", c.Base.UniswapV2Factory},
		{"uniswap_v3_router", c.Base.UniswapV3Router},
		{"uniswap_v3_factory", c.Base.UniswapV3Factory},
		{"uniswap_v3_quoter", c.Base.UniswapV3Quoter},
	} {
		if !common.IsHexAddress(f.addr) {
			errs = append(errs, fmt.Sprintf("base: %s %q is not an address", f.name, f.addr))
		}
	}
	if len(c.Base.FeeTiers) == 0 {
		errs = append(errs, "base: fee_tiers must not be empty")
	}
	if c.Base.SlippageBps < 0 || c.Base.SlippageBps >= 10000 {
		errs = append(errs, "base: slippage_bps must be 0-9999")
	}

	// Pricing & tracker
	if c.Pricing.RequestsPerMinute <= 0 {
		errs = append(errs, "pricing: requests_per_minute must be > 0")
	}
	if c.Tracker.Interval.Duration <= 0 {
		errs = append(errs, "tracker: interval must be > 0")
	}

	for _, u := range c.Notify.WebhookURLs {
		if !isHTTPURL(u) {
			errs = append(errs, fmt.Sprintf("notify: webhook url %q is not an http(s) URL", u))
		}
	}

	// Storage
	switch c.Storage.SeenPosts {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, "storage: postgres_dsn is required for seen_posts=postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage: unknown seen_posts backend %q (valid: memory, redis, postgres)", c.Storage.SeenPosts))
	}
	switch c.Storage.Trades {
	case "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, "storage: postgres_dsn is required for trades=postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage: unknown trades backend %q (valid: memory, postgres)", c.Storage.Trades))
	}
	switch c.Storage.Valuations {
	case "memory":
	case "clickhouse":
		if c.Storage.ClickhouseDSN == "" {
			errs = append(errs, "storage: clickhouse_dsn is required for valuations=clickhouse")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage: unknown valuations backend %q (valid: memory, clickhouse)", c.Storage.Valuations))
	}
	if c.Pricing.CacheInRedis && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty when pricing.cache_in_redis is on")
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalid, strings.Join(errs, "\n  - "))
	}
	return nil
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Storage.SeenPosts == "redis" || c.Pricing.CacheInRedis
}

// UsesPostgres reports whether any store is backed by Postgres.
func (c *Config) UsesPostgres() bool {
	return c.Storage.SeenPosts == "postgres" || c.Storage.Trades == "postgres"
}

func validateVenues(chain domain.Chain, field string, names []string) []string {
	var errs []string
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if !domain.IsKnownVenue(chain, n) {
			errs = append(errs, fmt.Sprintf("%s: %s contains unknown venue %q (valid: %s)",
				chain, field, n, strings.Join(domain.VenuesByChain[chain], ", ")))
			continue
		}
		if seen[n] {
			errs = append(errs, fmt.Sprintf("%s: %s lists %q twice", chain, field, n))
		}
		seen[n] = true
	}
	return errs
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
