package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"post-sniper/internal/domain"
	"post-sniper/internal/tracker"
)

type fakeBook struct {
	mu        sync.Mutex
	positions []domain.Position
	closed    []string
}

func (b *fakeBook) PositionsOn(chain domain.Chain) []domain.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Position
	for _, p := range b.positions {
		if p.Chain == chain {
			out = append(out, p)
		}
	}
	return out
}

func (b *fakeBook) Close(ids ...string) []domain.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, ids...)
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var kept, removed []domain.Position
	for _, p := range b.positions {
		if drop[p.ID] {
			removed = append(removed, p)
		} else {
			kept = append(kept, p)
		}
	}
	b.positions = kept
	return removed
}

type liquidateCall struct {
	asset string
	qty   decimal.Decimal
}

type fakeLiquidator struct {
	calls   []liquidateCall
	results map[string]domain.ExecutionResult
	during  func(ctx context.Context, asset string)
}

func (l *fakeLiquidator) Liquidate(ctx context.Context, _ domain.Chain, asset string, qty decimal.Decimal) domain.ExecutionResult {
	l.calls = append(l.calls, liquidateCall{asset: asset, qty: qty})
	if l.during != nil {
		l.during(ctx, asset)
	}
	if r, ok := l.results[asset]; ok {
		return r
	}
	return domain.Failed("", errors.New("not available on any supported venue"))
}

func newTestOperator(l *fakeLiquidator, b *fakeBook, sleeps *sleepRecorder) *Operator {
	logger, _ := test.NewNullLogger()
	op := NewOperator(l, b, time.Second, logrus.NewEntry(logger))
	op.sleep = sleeps.sleep
	return op
}

func TestOperator_LiquidateChain(t *testing.T) {
	book := &fakeBook{positions: []domain.Position{
		{ID: "a", Chain: domain.ChainSolana, AssetID: "m1", CostBasis: decimal.NewFromInt(1), QuantityReceived: decimal.NewFromInt(100)},
		{ID: "b", Chain: domain.ChainBase, AssetID: "0xb", CostBasis: decimal.NewFromInt(1), QuantityReceived: decimal.NewFromInt(5)},
		{ID: "c", Chain: domain.ChainSolana, AssetID: "m2", CostBasis: decimal.NewFromInt(2), QuantityReceived: decimal.NewFromInt(50)},
		{ID: "d", Chain: domain.ChainSolana, AssetID: "m3", CostBasis: decimal.NewFromInt(1), QuantityReceived: decimal.NewFromInt(7)},
	}}
	liq := &fakeLiquidator{results: map[string]domain.ExecutionResult{
		"m1": {Success: true, Venue: domain.VenuePumpFun, Proceeds: decimal.RequireFromString("1.5")},
		"m2": {Success: true, Venue: domain.VenueRaydium, Proceeds: decimal.RequireFromString("1.25")},
	}}
	sleeps := &sleepRecorder{}

	res := newTestOperator(liq, book, sleeps).LiquidateChain(context.Background(), domain.ChainSolana)

	require.Len(t, liq.calls, 3)
	assert.Equal(t, "m1", liq.calls[0].asset)
	assert.True(t, liq.calls[0].qty.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "m2", liq.calls[1].asset)
	assert.Equal(t, "m3", liq.calls[2].asset)
	assert.Len(t, sleeps.waits, 2)

	assert.Equal(t, 3, res.Attempted)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.True(t, res.Proceeds.Equal(decimal.RequireFromString("2.75")))
	assert.True(t, res.RealizedPnL.Equal(decimal.RequireFromString("-0.25")), "pnl %s", res.RealizedPnL)

	// closed regardless of the failed sale
	assert.Equal(t, []string{"a", "c", "d"}, book.closed)
	assert.Equal(t, 3, res.Closed)
	assert.Zero(t, res.Kept)
	require.Len(t, book.positions, 1)
	assert.Equal(t, "b", book.positions[0].ID)
}

func TestOperator_LiquidateEmptyChain(t *testing.T) {
	book := &fakeBook{}
	liq := &fakeLiquidator{}

	res := newTestOperator(liq, book, &sleepRecorder{}).LiquidateChain(context.Background(), domain.ChainBase)

	assert.Equal(t, 0, res.Attempted)
	assert.Empty(t, liq.calls)
	assert.True(t, res.RealizedPnL.IsZero())
	assert.Empty(t, book.closed)
}

func TestOperator_KeepsPositionsOpenedDuringLiquidation(t *testing.T) {
	logger, _ := test.NewNullLogger()
	tr := tracker.New(tracker.Options{Interval: time.Hour, Logger: logrus.NewEntry(logger)})
	t.Cleanup(tr.Stop)

	bought := domain.ExecutionResult{
		Success:          true,
		Venue:            domain.VenuePumpFun,
		AmountSpent:      decimal.NewFromInt(1),
		QuantityReceived: decimal.NewFromInt(100),
	}
	old, err := tr.Add(bought, domain.ChainSolana, "OLDMINT")
	require.NoError(t, err)

	liq := &fakeLiquidator{results: map[string]domain.ExecutionResult{
		"OLDMINT": {Success: true, Venue: domain.VenuePumpFun, Proceeds: decimal.NewFromInt(2)},
	}}
	liq.during = func(_ context.Context, asset string) {
		if asset == "OLDMINT" {
			_, err := tr.Add(bought, domain.ChainSolana, "NEWMINT")
			require.NoError(t, err)
		}
	}

	op := NewOperator(liq, tr, time.Second, logrus.NewEntry(logger))
	op.sleep = (&sleepRecorder{}).sleep
	res := op.LiquidateChain(context.Background(), domain.ChainSolana)

	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Closed)
	open := tr.PositionsOn(domain.ChainSolana)
	require.Len(t, open, 1)
	assert.Equal(t, "NEWMINT", open[0].AssetID)
	assert.NotEqual(t, old.ID, open[0].ID)
}

func TestOperator_CancelLeavesUnattemptedOpen(t *testing.T) {
	book := &fakeBook{positions: []domain.Position{
		{ID: "a", Chain: domain.ChainBase, AssetID: "0xa", QuantityReceived: decimal.NewFromInt(1)},
		{ID: "b", Chain: domain.ChainBase, AssetID: "0xb", QuantityReceived: decimal.NewFromInt(1)},
		{ID: "c", Chain: domain.ChainBase, AssetID: "0xc", QuantityReceived: decimal.NewFromInt(1)},
	}}
	liq := &fakeLiquidator{}
	op := newTestOperator(liq, book, &sleepRecorder{})
	op.sleep = func(context.Context, time.Duration) error { return context.Canceled }

	res := op.LiquidateChain(context.Background(), domain.ChainBase)

	require.Len(t, liq.calls, 1)
	assert.Equal(t, []string{"a"}, book.closed)
	assert.Equal(t, 1, res.Closed)
	assert.Equal(t, 2, res.Kept)
	require.Len(t, book.positions, 2)
	assert.Equal(t, "b", book.positions[0].ID)
	assert.Equal(t, "c", book.positions[1].ID)
}

func TestOperator_CancelledContextAttemptsNothing(t *testing.T) {
	book := &fakeBook{positions: []domain.Position{
		{ID: "a", Chain: domain.ChainSolana, AssetID: "m1", QuantityReceived: decimal.NewFromInt(1)},
	}}
	liq := &fakeLiquidator{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestOperator(liq, book, &sleepRecorder{}).LiquidateChain(ctx, domain.ChainSolana)

	assert.Empty(t, liq.calls)
	assert.Empty(t, book.closed)
	assert.Equal(t, 1, res.Kept)
	assert.NotEmpty(t, res.Errors)
}

func TestOperator_SellSurvivesShutdown(t *testing.T) {
	book := &fakeBook{positions: []domain.Position{
		{ID: "a", Chain: domain.ChainSolana, AssetID: "m1", QuantityReceived: decimal.NewFromInt(1)},
		{ID: "b", Chain: domain.ChainSolana, AssetID: "m2", QuantityReceived: decimal.NewFromInt(1)},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var callErrs []error
	liq := &fakeLiquidator{results: map[string]domain.ExecutionResult{
		"m1": {Success: true, Proceeds: decimal.NewFromInt(1)},
	}}
	liq.during = func(callCtx context.Context, _ string) {
		cancel()
		callErrs = append(callErrs, callCtx.Err())
	}
	op := newTestOperator(liq, book, &sleepRecorder{})
	op.sleep = sleepCtx

	res := op.LiquidateChain(ctx, domain.ChainSolana)

	require.Len(t, callErrs, 1)
	assert.NoError(t, callErrs[0])
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, []string{"a"}, book.closed)
	assert.Equal(t, 1, res.Kept)
}

type fakeHoldings struct {
	balances map[string]decimal.Decimal
	err      error
}

func (h fakeHoldings) TokenBalance(_ context.Context, _ domain.Chain, asset string) (decimal.Decimal, error) {
	if h.err != nil {
		return decimal.Zero, h.err
	}
	return h.balances[asset], nil
}

func TestOperator_UnmeasuredQuantityUsesWalletBalance(t *testing.T) {
	book := &fakeBook{positions: []domain.Position{
		{ID: "a", Chain: domain.ChainSolana, AssetID: "m1"},
		{ID: "b", Chain: domain.ChainSolana, AssetID: "m2"},
	}}
	liq := &fakeLiquidator{results: map[string]domain.ExecutionResult{
		"m1": {Success: true, Proceeds: decimal.NewFromInt(1)},
	}}
	op := newTestOperator(liq, book, &sleepRecorder{}).WithHoldings(fakeHoldings{
		balances: map[string]decimal.Decimal{"m1": decimal.RequireFromString("420.5")},
	})

	res := op.LiquidateChain(context.Background(), domain.ChainSolana)

	// m2 has nothing in the wallet, so it is closed without a sale
	require.Len(t, liq.calls, 1)
	assert.True(t, liq.calls[0].qty.Equal(decimal.RequireFromString("420.5")))
	assert.Equal(t, 1, res.Attempted)
	assert.Equal(t, []string{"a", "b"}, book.closed)
	assert.Empty(t, book.positions)
}

func TestOperator_UnknownQuantityKeepsPosition(t *testing.T) {
	for name, holdings := range map[string]Holdings{
		"no source":   nil,
		"read failed": fakeHoldings{err: errors.New("rpc down")},
	} {
		t.Run(name, func(t *testing.T) {
			book := &fakeBook{positions: []domain.Position{
				{ID: "a", Chain: domain.ChainBase, AssetID: "0xa"},
			}}
			liq := &fakeLiquidator{}
			op := newTestOperator(liq, book, &sleepRecorder{})
			if holdings != nil {
				op.WithHoldings(holdings)
			}

			res := op.LiquidateChain(context.Background(), domain.ChainBase)

			assert.Empty(t, liq.calls)
			assert.Empty(t, book.closed)
			assert.Equal(t, 1, res.Kept)
			require.Len(t, res.Errors, 1)
			assert.Contains(t, res.Errors[0], "0xa")
		})
	}
}
