package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"post-sniper/internal/config"
	"post-sniper/internal/domain"
	"post-sniper/internal/evm"
	"post-sniper/internal/logger"
	"post-sniper/internal/pricing"
	"post-sniper/internal/solana"
	"post-sniper/internal/storage"
	chstore "post-sniper/internal/storage/clickhouse"
	"post-sniper/internal/storage/memory"
	"post-sniper/internal/storage/migrations"
	pgstore "post-sniper/internal/storage/postgres"
	redisstore "post-sniper/internal/storage/redis"
	"post-sniper/internal/venue"
	"post-sniper/internal/venue/evmvenue"
	"post-sniper/internal/venue/solvenue"
)

// stores holds the selected storage backends and the connections behind them.
type stores struct {
	seenPosts  storage.SeenPostStore // nil for the in-memory ledger
	trades     storage.TradeRecordStore
	valuations storage.ValuationStore
	priceCache pricing.PriceStore // nil when quotes are not cached

	pg    *pgstore.Pool
	ch    *chstore.Conn
	redis *redisstore.Client
}

func openStores(ctx context.Context, cfg *config.Config, log *logrus.Entry) (*stores, error) {
	s := &stores{}
	sc := cfg.Storage

	if cfg.UsesPostgres() {
		pool, err := pgstore.NewPool(ctx, sc.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s.pg = pool
		if sc.RunMigrations {
			applied, err := migrations.RunPostgresMigrations(ctx, pool)
			if err != nil {
				s.Close()
				return nil, fmt.Errorf("postgres migrations: %w", err)
			}
			if len(applied) > 0 {
				log.WithField("versions", applied).Info("applied postgres migrations")
			}
		}
		log.Info("connected to postgres")
	}

	if sc.Valuations == "clickhouse" {
		var (
			conn *chstore.Conn
			err  error
		)
		if sc.RunMigrations {
			conn, err = migrations.RunClickhouseMigrations(ctx, sc.ClickhouseDSN)
		} else {
			conn, err = chstore.NewConn(ctx, sc.ClickhouseDSN)
		}
		if err != nil {
			s.Close()
			return nil, err
		}
		s.ch = conn
		log.Info("connected to clickhouse")
	}

	if cfg.UsesRedis() {
		rc, err := redisstore.New(ctx, redisstore.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			s.Close()
			return nil, err
		}
		s.redis = rc
		log.Info("connected to redis")
	}

	switch sc.SeenPosts {
	case "redis":
		s.seenPosts = redisstore.NewSeenPostStore(s.redis, sc.SeenPostsKey)
	case "postgres":
		s.seenPosts = pgstore.NewSeenPostStore(s.pg)
	}

	if sc.Trades == "postgres" {
		s.trades = pgstore.NewTradeRecordStore(s.pg)
	} else {
		s.trades = memory.NewTradeRecordStore()
	}

	if s.ch != nil {
		s.valuations = chstore.NewValuationStore(s.ch)
	} else {
		s.valuations = memory.NewValuationStore()
	}

	if cfg.Pricing.CacheInRedis {
		s.priceCache = redisstore.NewPriceCache(s.redis, cfg.Pricing.CacheTTL.Duration)
	}

	log.WithFields(logrus.Fields{
		"seen_posts": sc.SeenPosts,
		"trades":     sc.Trades,
		"valuations": sc.Valuations,
	}).Info("storage ready")
	return s, nil
}

func (s *stores) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.pg != nil {
		s.pg.Close()
	}
}

// chains holds the chain clients and every venue adapter built on them.
type chains struct {
	adapters []venue.Adapter
	balances map[domain.Chain]venue.BalanceSource
	holdings venue.Holdings
	checks   []healthCheck

	solWS *solana.WSClientImpl
	base  *evm.Client
}

func dialChains(ctx context.Context, cfg *config.Config, pairs solvenue.PairSource, log *logrus.Logger) (*chains, error) {
	c := &chains{
		balances: map[domain.Chain]venue.BalanceSource{},
		holdings: venue.Holdings{},
	}

	sc := cfg.Solana
	rpc := solana.NewHTTPClient(sc.RPCURL)
	ws, err := solana.NewWSClient(ctx, sc.WSURL, nil, logger.Component(log, "solana-ws"))
	if err != nil {
		return nil, fmt.Errorf("solana websocket: %w", err)
	}
	c.solWS = ws

	trader := solvenue.NewTrader(solvenue.TraderConfig{
		PumpPortalURL:  sc.PumpPortalURL,
		APIKey:         sc.PumpPortalKey,
		Wallet:         sc.WalletPublicKey,
		SlippagePct:    sc.SlippagePct,
		PriorityFee:    sc.PriorityFee,
		ConfirmTimeout: sc.ConfirmTimeout.Duration,
	}, rpc, ws, logger.Component(log, "solana-trader"))
	c.adapters = append(c.adapters,
		solvenue.NewPumpFun(sc.PumpFunAPI, trader),
		solvenue.NewPumpSwap(pairs, trader),
		solvenue.NewRaydium(pairs, trader),
	)
	solWallet := solvenue.WalletBalance{RPC: rpc, Wallet: sc.WalletPublicKey}
	c.balances[domain.ChainSolana] = solWallet
	c.holdings[domain.ChainSolana] = solWallet
	c.checks = append(c.checks, healthCheck{name: "solana_rpc", check: func(ctx context.Context) error {
		_, err := rpc.GetSlot(ctx)
		return err
	}})

	bc := cfg.Base
	client, err := evm.Dial(ctx, bc.RPCURL, evm.Options{
		ChainID:        bc.ChainID,
		PrivateKeyHex:  bc.PrivateKey,
		ConfirmTimeout: bc.ConfirmTimeout.Duration,
		Logger:         logger.Component(log, "base"),
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("base rpc: %w", err)
	}
	c.base = client

	ecfg := evmvenue.Config{
		WETH:        common.HexToAddress(bc.WETH),
		SlippageBps: bc.SlippageBps,
	}
	c.adapters = append(c.adapters,
		evmvenue.NewUniswapV2(client,
			common.HexToAddress(bc.UniswapV2Router),
			common.HexToAddress(bc.UniswapV2Factory), ecfg),
		evmvenue.NewUniswapV3(client,
			common.HexToAddress(bc.UniswapV3Router),
			common.HexToAddress(bc.UniswapV3Factory),
			common.HexToAddress(bc.UniswapV3Quoter),
			bc.FeeTiers, ecfg),
	)
	baseWallet := evmvenue.WalletBalance{Client: client}
	c.balances[domain.ChainBase] = baseWallet
	c.holdings[domain.ChainBase] = baseWallet
	c.checks = append(c.checks, healthCheck{name: "base_rpc", check: func(ctx context.Context) error {
		_, err := client.NativeBalance(ctx)
		return err
	}})

	log.WithFields(logrus.Fields{
		"solana_wallet": sc.WalletPublicKey,
		"base_wallet":   client.Address().Hex(),
	}).Info("chain clients ready")
	return c, nil
}

func (c *chains) Close() {
	if c.solWS != nil {
		_ = c.solWS.Close()
	}
	if c.base != nil {
		c.base.Close()
	}
}
