// Package tracker revalues open positions on a fixed interval.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"post-sniper/internal/domain"
	"post-sniper/internal/observability"
	"post-sniper/internal/pricing"
	"post-sniper/internal/reporting"
	"post-sniper/internal/storage"
)

// DefaultInterval is the revaluation period.
const DefaultInterval = 5 * time.Second

// ErrFailedResult is returned when Add receives an unsuccessful execution.
var ErrFailedResult = errors.New("execution result is not successful")

// Renderer presents a revalued portfolio.
type Renderer interface {
	Render(p reporting.Portfolio, now time.Time)
}

// TableRenderer writes the console table to W.
type TableRenderer struct {
	W io.Writer
}

// Render implements Renderer.
func (r TableRenderer) Render(p reporting.Portfolio, now time.Time) {
	fmt.Fprint(r.W, reporting.RenderTable(p, now))
}

// Options configures a Tracker.
type Options struct {
	Prices    pricing.Source
	Snapshots storage.ValuationStore // optional
	Renderer  Renderer               // optional
	Interval  time.Duration
	Logger    *logrus.Entry
	Now       func() time.Time
}

// Tracker owns the open position set. The scheduler only appends through Add;
// valuation updates and removals happen here.
type Tracker struct {
	prices    pricing.Source
	snapshots storage.ValuationStore
	renderer  Renderer
	interval  time.Duration
	logger    *logrus.Entry
	now       func() time.Time

	mu        sync.Mutex
	positions []*domain.Position
	started   bool
	stopped   bool

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a tracker. The revaluation loop starts with the first position.
func New(opts Options) *Tracker {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		prices:    opts.Prices,
		snapshots: opts.Snapshots,
		renderer:  opts.Renderer,
		interval:  opts.Interval,
		logger:    opts.Logger.WithField("component", "tracker"),
		now:       opts.Now,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Add records a successful acquisition as an open position.
func (t *Tracker) Add(result domain.ExecutionResult, chain domain.Chain, assetID string) (domain.Position, error) {
	if !result.Success {
		return domain.Position{}, ErrFailedResult
	}
	pos := &domain.Position{
		ID:               uuid.NewString(),
		Chain:            chain,
		AssetID:          assetID,
		Venue:            result.Venue,
		CostBasis:        result.AmountSpent,
		QuantityReceived: result.QuantityReceived,
		OpenedAt:         t.now(),
		ExternalRef:      result.ExternalRef,
	}

	t.mu.Lock()
	t.positions = append(t.positions, pos)
	startLoop := !t.started && !t.stopped
	if startLoop {
		t.started = true
	}
	out := *pos
	t.mu.Unlock()

	if !out.QuantityReceived.IsPositive() {
		t.logger.WithFields(logrus.Fields{
			"position": pos.ID,
			"asset":    assetID,
			"ref":      pos.ExternalRef,
		}).Warn("acquisition landed without a measured quantity; liquidation will read the wallet balance")
	}

	t.logger.WithFields(logrus.Fields{
		"position": pos.ID,
		"chain":    chain,
		"asset":    assetID,
		"venue":    pos.Venue,
		"cost":     pos.CostBasis.String(),
		"quantity": pos.QuantityReceived.String(),
	}).Info("position opened")

	if startLoop {
		go t.loop()
	}
	t.publishCounts()
	return out, nil
}

// Positions returns a copy of every open position in insertion order.
func (t *Tracker) Positions() []domain.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copyLocked(func(*domain.Position) bool { return true })
}

// PositionsOn returns a copy of the open positions on chain.
func (t *Tracker) PositionsOn(chain domain.Chain) []domain.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copyLocked(func(p *domain.Position) bool { return p.Chain == chain })
}

func (t *Tracker) copyLocked(keep func(*domain.Position) bool) []domain.Position {
	out := make([]domain.Position, 0, len(t.positions))
	for _, p := range t.positions {
		if keep(p) {
			out = append(out, *p)
		}
	}
	return out
}

// Close removes the positions with the given ids and returns them. Unknown ids
// are ignored, so positions added after the caller took its snapshot stay open.
func (t *Tracker) Close(ids ...string) []domain.Position {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	t.mu.Lock()
	var removed []domain.Position
	kept := t.positions[:0]
	for _, p := range t.positions {
		if drop[p.ID] {
			removed = append(removed, *p)
			continue
		}
		kept = append(kept, p)
	}
	for i := len(kept); i < len(t.positions); i++ {
		t.positions[i] = nil
	}
	t.positions = kept
	t.mu.Unlock()

	t.logger.WithFields(logrus.Fields{
		"requested": len(ids),
		"closed":    len(removed),
	}).Info("positions closed")
	t.publishCounts()
	return removed
}

// Revalue quotes every open position once, renders the summary and persists
// snapshots. A failed or empty quote leaves that position unchanged.
func (t *Tracker) Revalue(ctx context.Context) reporting.Portfolio {
	start := time.Now()
	open := t.Positions()

	prices := make(map[string]decimal.Decimal, len(open))
	for _, p := range open {
		price, err := t.prices.Quote(ctx, p.Chain, p.AssetID)
		if err != nil {
			observability.RecordQuoteError(string(p.Chain))
			t.logger.WithError(err).WithFields(logrus.Fields{
				"position": p.ID,
				"asset":    p.AssetID,
			}).Warn("quote failed")
			continue
		}
		if price == nil {
			t.logger.WithField("asset", p.AssetID).Debug("no price available")
			continue
		}
		prices[p.ID] = *price
	}

	now := t.now()
	var snaps []*domain.ValuationSnapshot

	t.mu.Lock()
	for _, p := range t.positions {
		price, ok := prices[p.ID]
		if !ok {
			continue
		}
		p.Revalue(price, now)
		snaps = append(snaps, &domain.ValuationSnapshot{
			PositionID:    p.ID,
			Chain:         p.Chain,
			AssetID:       p.AssetID,
			TimestampMs:   now.UnixMilli(),
			Price:         price,
			CurrentValue:  p.CurrentValue,
			UnrealizedPnL: p.UnrealizedPnL,
		})
	}
	current := t.copyLocked(func(*domain.Position) bool { return true })
	t.mu.Unlock()

	portfolio := reporting.BuildPortfolio(current)
	if t.renderer != nil {
		t.renderer.Render(portfolio, now)
	}

	if t.snapshots != nil && len(snaps) > 0 {
		if err := t.snapshots.InsertBulk(ctx, snaps); err != nil {
			t.logger.WithError(err).Warn("failed to persist valuation snapshots")
		}
	}

	publish(portfolio)
	observability.RecordTick("tracker", time.Since(start).Seconds(), now.Unix())
	return portfolio
}

// Stop stops the loop. An in-flight revaluation finishes first.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		t.stopped = true
		started := t.started
		t.mu.Unlock()

		t.cancel()
		if started {
			<-t.done
		}
		t.logger.Info("tracker stopped")
	})
}

func (t *Tracker) loop() {
	defer close(t.done)
	t.logger.WithField("interval", t.interval).Info("tracker started")

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
			t.Revalue(context.WithoutCancel(t.ctx))
		}
	}
}

func (t *Tracker) publishCounts() {
	publish(reporting.BuildPortfolio(t.Positions()))
}

func publish(p reporting.Portfolio) {
	for _, chain := range domain.Chains {
		totals := p.Totals(chain)
		pnl, _ := totals.UnrealizedPnL.Float64()
		observability.UpdatePositions(string(chain), totals.Count, pnl)
	}
}
