package venue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"post-sniper/internal/domain"
	"post-sniper/internal/idhash"
	"post-sniper/internal/observability"
	"post-sniper/internal/storage"
)

// Options configures Router.
type Options struct {
	Priority *Priority
	Balances map[domain.Chain]BalanceSource
	// MaxSpend caps the per-acquisition budget in whole native units; 0 means no cap.
	MaxSpend map[domain.Chain]int64
	// Trades receives one record per router call; nil disables bookkeeping.
	Trades storage.TradeRecordStore
	Logger *logrus.Entry
	Now    func() time.Time
}

// Router runs the probe-then-execute loop over a priority list.
// Calls are serialized so no two trades run at once.
type Router struct {
	mu       sync.Mutex
	priority *Priority
	balances map[domain.Chain]BalanceSource
	maxSpend map[domain.Chain]int64
	trades   storage.TradeRecordStore
	logger   *logrus.Entry
	now      func() time.Time
}

// NewRouter creates a Router.
func NewRouter(opts Options) *Router {
	if opts.Priority == nil {
		opts.Priority = NewPriority()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Router{
		priority: opts.Priority,
		balances: opts.Balances,
		maxSpend: opts.MaxSpend,
		trades:   opts.Trades,
		logger:   logger,
		now:      opts.Now,
	}
}

// WholeUnits returns floor(balance), capped at floor(limit) when limit is positive.
func WholeUnits(balance, limit decimal.Decimal) decimal.Decimal {
	budget := balance.Floor()
	if limit.IsPositive() && budget.GreaterThan(limit.Floor()) {
		budget = limit.Floor()
	}
	return budget
}

// Acquire spends the whole-unit native budget on assetID at the first available buy venue.
func (r *Router) Acquire(ctx context.Context, chain domain.Chain, assetID string) domain.ExecutionResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := r.now()
	log := r.logger.WithFields(logrus.Fields{"chain": chain, "asset": assetID, "direction": domain.DirectionBuy})

	budget, err := r.budget(ctx, chain)
	if err != nil {
		log.WithError(err).Warn("acquire skipped")
		res := domain.Failed("", err)
		r.record(ctx, chain, assetID, domain.DirectionBuy, res, started)
		return res
	}

	log = log.WithField("budget", budget.String())
	res := r.route(ctx, chain, assetID, budget, domain.DirectionBuy, log)
	r.record(ctx, chain, assetID, domain.DirectionBuy, res, started)
	return res
}

// Liquidate sells quantity of assetID at the first available sell venue.
func (r *Router) Liquidate(ctx context.Context, chain domain.Chain, assetID string, quantity decimal.Decimal) domain.ExecutionResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := r.now()
	log := r.logger.WithFields(logrus.Fields{"chain": chain, "asset": assetID, "direction": domain.DirectionSell})

	if !quantity.IsPositive() {
		err := fmt.Errorf("%w: %s", ErrInvalidQuantity, quantity)
		log.WithError(err).Warn("liquidate rejected")
		res := domain.Failed("", err)
		r.record(ctx, chain, assetID, domain.DirectionSell, res, started)
		return res
	}

	log = log.WithField("quantity", quantity.String())
	res := r.route(ctx, chain, assetID, quantity, domain.DirectionSell, log)
	r.record(ctx, chain, assetID, domain.DirectionSell, res, started)
	return res
}

// budget computes the spendable whole-unit native amount for chain.
func (r *Router) budget(ctx context.Context, chain domain.Chain) (decimal.Decimal, error) {
	src, ok := r.balances[chain]
	if !ok {
		return decimal.Zero, fmt.Errorf("no balance source for chain %s", chain)
	}
	balance, err := src.NativeBalance(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read %s balance: %w", chain, err)
	}

	budget := WholeUnits(balance, decimal.NewFromInt(r.maxSpend[chain]))
	if budget.LessThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("%w: %s %s", ErrInsufficientBalance, balance, chain.NativeSymbol())
	}
	return budget, nil
}

// route probes venues in order and executes on the first available one.
// Probe failures skip the venue; an execution failure ends the call.
func (r *Router) route(ctx context.Context, chain domain.Chain, assetID string, amount decimal.Decimal, dir domain.Direction, log *logrus.Entry) domain.ExecutionResult {
	for _, a := range r.priority.List(chain, dir) {
		avail, err := a.Probe(ctx, assetID)
		if err != nil {
			observability.RecordProbe(chain.String(), a.Name(), "error")
			log.WithError(err).WithField("venue", a.Name()).Debug("probe failed, trying next venue")
			continue
		}
		if !avail.Available {
			observability.RecordProbe(chain.String(), a.Name(), "unavailable")
			log.WithField("venue", a.Name()).Debug("venue unavailable")
			continue
		}
		observability.RecordProbe(chain.String(), a.Name(), "available")

		vlog := log.WithField("venue", a.Name())
		vlog.Info("executing trade")

		fill, err := a.Execute(ctx, assetID, amount, dir)
		if err != nil {
			vlog.WithError(err).Error("trade failed")
			return domain.Failed(a.Name(), err)
		}

		res := domain.ExecutionResult{
			Success:     true,
			Venue:       a.Name(),
			AmountSpent: amount,
			ExternalRef: fill.ExternalRef,
		}
		if !fill.AmountIn.IsZero() {
			res.AmountSpent = fill.AmountIn
		}
		if dir == domain.DirectionBuy {
			res.QuantityReceived = fill.AmountOut
		} else {
			res.Proceeds = fill.AmountOut
		}

		vlog.WithFields(logrus.Fields{
			"spent":    res.AmountSpent.String(),
			"received": fill.AmountOut.String(),
			"ref":      fill.ExternalRef,
		}).Info("trade filled")
		return res
	}

	log.Warn(ErrNoVenue.Error())
	return domain.Failed("", ErrNoVenue)
}

func (r *Router) record(ctx context.Context, chain domain.Chain, assetID string, dir domain.Direction, res domain.ExecutionResult, at time.Time) {
	observability.RecordTrade(chain.String(), dir.String(), res.Venue, res.Success)

	if r.trades == nil {
		return
	}
	id := idhash.ComputeTradeID(chain, assetID, dir, at.UnixNano())
	rec := domain.NewTradeRecord(id, chain, assetID, dir, res, at)
	if err := r.trades.Insert(ctx, rec); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		r.logger.WithError(err).WithField("trade_id", id).Warn("record trade failed")
	}
}
