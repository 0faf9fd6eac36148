package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"post-sniper/internal/domain"
	"post-sniper/internal/storage/memory"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type staticPositions []domain.Position

func (s staticPositions) Positions() []domain.Position { return s }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testPositions() []domain.Position {
	priced := domain.Position{
		ID: "p2", Chain: domain.ChainSolana, AssetID: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Venue: domain.VenuePumpFun, CostBasis: dec("1"), QuantityReceived: dec("1000"), OpenedAt: t0.Add(time.Minute),
	}
	priced.Revalue(dec("0.002"), t0.Add(2*time.Minute))

	return []domain.Position{
		{
			ID: "p3", Chain: domain.ChainBase, AssetID: "0x1111111111111111111111111111111111111111",
			Venue: domain.VenueUniswapV2, CostBasis: dec("0.5"), QuantityReceived: dec("42"), OpenedAt: t0,
		},
		priced,
		{
			ID: "p1", Chain: domain.ChainSolana, AssetID: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
			Venue: domain.VenueRaydium, CostBasis: dec("2"), QuantityReceived: dec("10"), OpenedAt: t0,
		},
	}
}

func TestBuildPortfolio_SortsAndTotals(t *testing.T) {
	p := BuildPortfolio(testPositions())

	require.Len(t, p.Positions, 3)
	assert.Equal(t, []string{"p1", "p2", "p3"}, []string{p.Positions[0].ID, p.Positions[1].ID, p.Positions[2].ID})

	require.Len(t, p.Chains, 2)
	sol := p.Totals(domain.ChainSolana)
	assert.Equal(t, 2, sol.Count)
	assert.Equal(t, 1, sol.Priced)
	assert.Equal(t, "SOL", sol.Symbol)
	assert.True(t, sol.CostBasis.Equal(dec("3")))
	assert.True(t, sol.CurrentValue.Equal(dec("2")))
	assert.True(t, sol.UnrealizedPnL.Equal(dec("1")))

	base := p.Totals(domain.ChainBase)
	assert.Equal(t, 1, base.Count)
	assert.Equal(t, 0, base.Priced)
	assert.True(t, base.CurrentValue.IsZero())
}

func TestBuildPortfolio_Empty(t *testing.T) {
	p := BuildPortfolio(nil)
	assert.Empty(t, p.Positions)
	assert.Empty(t, p.Chains)
	assert.Equal(t, 0, p.Totals(domain.ChainBase).Count)
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(BuildPortfolio(testPositions()), t0.Add(5*time.Minute))

	assert.Contains(t, out, "CHAIN")
	assert.Contains(t, out, "EPjFWd...Dt1v")
	assert.Contains(t, out, "+1.000000")
	assert.Contains(t, out, "3.000000 SOL")
	assert.Contains(t, out, "4m0s")
}

func TestRenderTable_Empty(t *testing.T) {
	assert.Equal(t, "No open positions.\n", RenderTable(Portfolio{}, t0))
}

func TestGenerator_Markdown(t *testing.T) {
	ctx := context.Background()
	trades := memory.NewTradeRecordStore()
	require.NoError(t, trades.Insert(ctx, &domain.TradeRecord{
		TradeID: "t1", Chain: domain.ChainSolana, AssetID: "mint", Direction: domain.DirectionBuy,
		Venue: domain.VenuePumpFun, Success: true, AmountIn: dec("1"), AmountOut: dec("1000"),
		ExternalRef: "sig1", CreatedAt: t0,
	}))

	gen := NewGenerator(staticPositions(testPositions()), trades, 10).WithClock(func() time.Time { return t0 })
	report, err := gen.Generate(ctx)
	require.NoError(t, err)
	require.Len(t, report.RecentTrades, 1)

	md := RenderMarkdown(report)
	assert.True(t, strings.HasPrefix(md, "# Portfolio Report\n"))
	assert.Contains(t, md, "Generated: 2026-03-01T12:00:00Z")
	assert.Contains(t, md, "| solana | 2 | 1 |")
	assert.Contains(t, md, "| OK |")
	assert.Contains(t, md, "sig1")
}

func TestGenerator_NoTradeStore(t *testing.T) {
	report, err := NewGenerator(staticPositions(nil), nil, 0).Generate(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report.RecentTrades)
	assert.Contains(t, RenderMarkdown(report), "No trades recorded.")
}

func TestRenderTradesCSV(t *testing.T) {
	csv := RenderTradesCSV([]*domain.TradeRecord{
		{
			TradeID: "t1", Chain: domain.ChainBase, AssetID: "0xabc", Direction: domain.DirectionSell,
			AmountIn: dec("5"), AmountOut: decimal.Zero, Error: `probe failed, "timeout"`, CreatedAt: t0,
		},
	})
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "trade_id,created_at,chain"))
	assert.Equal(t, `t1,2026-03-01T12:00:00Z,base,sell,0xabc,,false,5,0,,"probe failed, ""timeout"""`, lines[1])
}
