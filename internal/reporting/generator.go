package reporting

import (
	"context"
	"fmt"
	"time"

	"post-sniper/internal/domain"
	"post-sniper/internal/storage"
)

// PositionLister returns a copy of the open positions.
type PositionLister interface {
	Positions() []domain.Position
}

// Generator builds reports from the open position set and the trade store.
type Generator struct {
	positions  PositionLister
	trades     storage.TradeRecordStore
	tradeLimit int
	clock      func() time.Time
}

// NewGenerator creates a report generator. trades may be nil.
func NewGenerator(positions PositionLister, trades storage.TradeRecordStore, tradeLimit int) *Generator {
	if tradeLimit <= 0 {
		tradeLimit = 50
	}
	return &Generator{
		positions:  positions,
		trades:     trades,
		tradeLimit: tradeLimit,
		clock:      time.Now,
	}
}

// WithClock sets a custom clock for deterministic testing.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.clock = now
	return g
}

// Generate creates the current report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	report := &Report{
		GeneratedAt: g.clock().UTC(),
		Portfolio:   BuildPortfolio(g.positions.Positions()),
	}

	if g.trades != nil {
		trades, err := g.trades.List(ctx, g.tradeLimit)
		if err != nil {
			return nil, fmt.Errorf("list trades: %w", err)
		}
		report.RecentTrades = trades
	}

	return report, nil
}
