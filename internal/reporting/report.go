// Package reporting aggregates open positions and trade history into summaries.
package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"post-sniper/internal/domain"
)

// Report is the portfolio view served over HTTP.
type Report struct {
	GeneratedAt  time.Time
	Portfolio    Portfolio
	RecentTrades []*domain.TradeRecord // newest first
}

// Portfolio summarizes open positions.
type Portfolio struct {
	Positions []domain.Position `json:"positions"` // sorted by chain, then opened_at
	Chains    []ChainTotals     `json:"chains"`    // one row per chain that has positions
}

// ChainTotals sums positions of one chain. Amounts are in the chain's native asset,
// so totals are never added across chains.
type ChainTotals struct {
	Chain         domain.Chain    `json:"chain"`
	Symbol        string          `json:"symbol"`
	Count         int             `json:"count"`
	Priced        int             `json:"priced"` // positions with at least one quote
	CostBasis     decimal.Decimal `json:"cost_basis"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}
