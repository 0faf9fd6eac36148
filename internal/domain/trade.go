package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is the persisted bookkeeping of one router call.
type TradeRecord struct {
	TradeID     string // deterministic hash
	Chain       Chain
	AssetID     string
	Direction   Direction
	Venue       string // empty when no venue was reached
	Success     bool
	AmountIn    decimal.Decimal // native spent (buy) or asset sold (sell)
	AmountOut   decimal.Decimal // asset received (buy) or native received (sell)
	ExternalRef string
	Error       string
	CreatedAt   time.Time
}

// NewTradeRecord converts a router result into a trade record.
func NewTradeRecord(tradeID string, chain Chain, assetID string, dir Direction, r ExecutionResult, at time.Time) *TradeRecord {
	rec := &TradeRecord{
		TradeID:     tradeID,
		Chain:       chain,
		AssetID:     assetID,
		Direction:   dir,
		Venue:       r.Venue,
		Success:     r.Success,
		AmountIn:    r.AmountSpent,
		ExternalRef: r.ExternalRef,
		Error:       r.Error,
		CreatedAt:   at,
	}
	if dir == DirectionBuy {
		rec.AmountOut = r.QuantityReceived
	} else {
		rec.AmountOut = r.Proceeds
	}
	return rec
}
