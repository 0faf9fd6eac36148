package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"post-sniper/internal/config"
	"post-sniper/internal/control"
	"post-sniper/internal/dedup"
	"post-sniper/internal/domain"
	"post-sniper/internal/feed"
	"post-sniper/internal/logger"
	"post-sniper/internal/monitor"
	"post-sniper/internal/notify"
	"post-sniper/internal/pricing"
	"post-sniper/internal/reporting"
	"post-sniper/internal/tracker"
	"post-sniper/internal/venue"
)

// app holds the wired components of one process.
type app struct {
	cfg *config.Config
	log *logrus.Logger

	stores    *stores
	chains    *chains
	scheduler *monitor.Scheduler
	tracker   *tracker.Tracker
	operator  *monitor.Operator
	reports   *reporting.Generator
	server    *http.Server
	console   *console

	closeOnce sync.Once
}

// console is stdout, switched to CRLF line endings while the terminal is raw.
type console struct {
	raw atomic.Bool
}

func (c *console) Write(p []byte) (int, error) {
	if c.raw.Load() {
		return control.CRLFWriter{W: os.Stdout}.Write(p)
	}
	return os.Stdout.Write(p)
}

func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, console: &console{}}

	st, err := openStores(ctx, cfg, logger.Component(log, "storage"))
	if err != nil {
		return nil, err
	}
	a.stores = st

	ledger, err := a.ledger(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	dex := pricing.NewDexScreener(cfg.Pricing.DexScreenerURL, cfg.Pricing.RequestsPerMinute, 10*time.Second)
	var prices pricing.Source = dex
	if st.priceCache != nil {
		prices = pricing.NewCached(prices, st.priceCache, logger.Component(log, "pricing"))
	}

	priority := venue.NewPriority()
	balances := map[domain.Chain]venue.BalanceSource{}
	if cfg.Execution.AutoExecute {
		ch, err := dialChains(ctx, cfg, dex, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.chains = ch
		priority, err = venue.BuildPriority(ch.adapters, venuePriorities(cfg))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("venue priority: %w", err)
		}
		balances = ch.balances
	} else {
		log.Warn("auto_execute is off: alerts only, no trades")
	}

	router := venue.NewRouter(venue.Options{
		Priority: priority,
		Balances: balances,
		MaxSpend: map[domain.Chain]int64{
			domain.ChainSolana: cfg.Solana.MaxSpend,
			domain.ChainBase:   cfg.Base.MaxSpend,
		},
		Trades: st.trades,
		Logger: logger.Component(log, "router"),
	})

	a.tracker = tracker.New(tracker.Options{
		Prices:    prices,
		Snapshots: st.valuations,
		Renderer:  tracker.TableRenderer{W: a.console},
		Interval:  cfg.Tracker.Interval.Duration,
		Logger:    logger.Component(log, "tracker"),
	})

	a.scheduler = monitor.New(monitor.Options{
		Feed: feed.NewXClient(feed.XOptions{
			BaseURL:           cfg.Feed.BaseURL,
			Tokens:            feed.StaticToken(cfg.Feed.BearerToken),
			Timeout:           cfg.Feed.Timeout.Duration,
			RequestsPerMinute: cfg.Feed.RequestsPerMinute,
			Logger:            logger.Component(log, "feed"),
		}),
		Handle:      cfg.Feed.Handle,
		FetchLimit:  cfg.Feed.FetchLimit,
		Interval:    cfg.Feed.PollInterval.Duration,
		Ledger:      ledger,
		Alerts:      notify.NewAlerter(senders(cfg), logger.Component(log, "alerts")),
		Router:      router,
		Positions:   a.tracker,
		AutoExecute: cfg.Execution.AutoExecute,
		Pacing:      cfg.Execution.Pacing.Duration,
		Logger:      logger.Component(log, "monitor"),
	})

	a.operator = monitor.NewOperator(router, a.tracker, cfg.Execution.Pacing.Duration, logger.Component(log, "operator"))
	if a.chains != nil {
		a.operator.WithHoldings(a.chains.holdings)
	}
	a.reports = reporting.NewGenerator(a.tracker, st.trades, 50)
	return a, nil
}

func (a *app) ledger(ctx context.Context) (dedup.Ledger, error) {
	if a.stores.seenPosts == nil {
		return dedup.NewSet(), nil
	}
	return dedup.NewPersistent(ctx, a.stores.seenPosts, logger.Component(a.log, "dedup"))
}

func senders(cfg *config.Config) []notify.Sender {
	timeout := cfg.Notify.Timeout.Duration
	var out []notify.Sender
	for _, u := range cfg.Notify.WebhookURLs {
		out = append(out, notify.NewWebhookSender(u, timeout))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		out = append(out, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL, timeout))
	}
	return out
}

func venuePriorities(cfg *config.Config) map[domain.Chain]map[domain.Direction][]string {
	return map[domain.Chain]map[domain.Direction][]string{
		domain.ChainSolana: {
			domain.DirectionBuy:  cfg.Solana.BuyVenues,
			domain.DirectionSell: cfg.Solana.SellVenues,
		},
		domain.ChainBase: {
			domain.DirectionBuy:  cfg.Base.BuyVenues,
			domain.DirectionSell: cfg.Base.SellVenues,
		},
	}
}

// Run starts the scheduler and serves operator commands until ctx is done or
// the operator quits.
func (a *app) Run(ctx context.Context, keys bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if err := a.scheduler.Start(gctx); err != nil {
		return err
	}

	if a.cfg.Server.Enabled {
		a.server = newHTTPServer(a.cfg.Server.Port, a)
		g.Go(func() error {
			a.log.WithField("addr", a.server.Addr).Info("http server listening")
			if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return a.commandLoop(gctx, cancel, keys)
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")
		a.scheduler.Stop()
		a.tracker.Stop()
		if a.server != nil {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = a.server.Shutdown(shutdownCtx)
		}
		return nil
	})

	return g.Wait()
}

// commandLoop executes keyboard commands one at a time.
func (a *app) commandLoop(ctx context.Context, quit context.CancelFunc, keys bool) error {
	if !keys {
		<-ctx.Done()
		return nil
	}

	kb := control.NewKeyboard(os.Stdin, logger.Component(a.log, "control"))
	cmds, err := kb.Start(ctx)
	if err != nil {
		return err
	}
	defer kb.Close()
	if kb.Raw() {
		a.console.raw.Store(true)
		if a.log.Out == os.Stdout || a.log.Out == os.Stderr {
			a.log.SetOutput(control.CRLFWriter{W: a.log.Out})
		}
	}
	a.log.Info(control.Help)

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd, ok := <-cmds:
			if !ok {
				// stdin closed; keep running until a signal arrives
				<-ctx.Done()
				return nil
			}
			a.log.WithField("command", cmd.String()).Info("operator command")
			switch cmd {
			case control.LiquidateSolana:
				a.operator.LiquidateChain(ctx, domain.ChainSolana)
			case control.LiquidateBase:
				a.operator.LiquidateChain(ctx, domain.ChainBase)
			case control.ShowPositions:
				fmt.Fprint(a.console, reporting.RenderTable(reporting.BuildPortfolio(a.tracker.Positions()), time.Now()))
			case control.Quit:
				quit()
				return nil
			}
		}
	}
}

// Close releases connections. It is safe to call more than once.
func (a *app) Close() {
	a.closeOnce.Do(func() {
		if a.chains != nil {
			a.chains.Close()
		}
		if a.stores != nil {
			a.stores.Close()
		}
	})
}
