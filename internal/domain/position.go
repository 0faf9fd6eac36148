package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is an open holding created by a successful acquisition.
// Only the tracker mutates the valuation fields.
type Position struct {
	ID               string          `json:"id"`
	Chain            Chain           `json:"chain"`
	AssetID          string          `json:"asset_id"`
	Venue            string          `json:"venue"`
	CostBasis        decimal.Decimal `json:"cost_basis"`        // native units spent
	QuantityReceived decimal.Decimal `json:"quantity_received"` // asset units held
	OpenedAt         time.Time       `json:"opened_at"`
	ExternalRef      string          `json:"external_ref,omitempty"`

	// Valuation, refreshed by the tracker
	LastPrice     *decimal.Decimal `json:"last_price"` // native per asset unit, nil until first quote
	CurrentValue  decimal.Decimal  `json:"current_value"`
	UnrealizedPnL decimal.Decimal  `json:"unrealized_pnl"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Revalue applies a fresh price to the position.
func (p *Position) Revalue(price decimal.Decimal, at time.Time) {
	p.LastPrice = &price
	p.CurrentValue = p.QuantityReceived.Mul(price)
	p.UnrealizedPnL = p.CurrentValue.Sub(p.CostBasis)
	p.UpdatedAt = at
}

// ValuationSnapshot is one revaluation of one position.
type ValuationSnapshot struct {
	PositionID    string
	Chain         Chain
	AssetID       string
	TimestampMs   int64
	Price         decimal.Decimal
	CurrentValue  decimal.Decimal
	UnrealizedPnL decimal.Decimal
}
