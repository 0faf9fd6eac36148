// Package venue routes acquisitions and liquidations across ranked trading venues.
package venue

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"post-sniper/internal/domain"
)

var (
	// ErrInsufficientBalance is returned when the whole-unit budget is below 1.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrNoVenue is returned when no venue in the priority list reports availability.
	ErrNoVenue = errors.New("not available on any supported venue")
	// ErrInvalidQuantity is returned for non-positive liquidation quantities.
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// Availability is the outcome of a venue probe.
type Availability struct {
	Available bool
	// Metadata carries venue specifics found while probing (pool, fee tier).
	Metadata map[string]string
}

// Fill is the outcome of a completed venue trade.
type Fill struct {
	ExternalRef string
	AmountIn    decimal.Decimal // native (buy) or asset (sell) actually spent
	AmountOut   decimal.Decimal // asset (buy) or native (sell) received
}

// Adapter is one trading venue on one chain.
type Adapter interface {
	Name() string
	Chain() domain.Chain

	// Probe reports whether the venue can trade assetID right now.
	Probe(ctx context.Context, assetID string) (Availability, error)

	// Execute trades amount: native units on buy, asset units on sell.
	Execute(ctx context.Context, assetID string, amount decimal.Decimal, dir domain.Direction) (Fill, error)
}

// BalanceSource reports the wallet's native balance on one chain.
type BalanceSource interface {
	NativeBalance(ctx context.Context) (decimal.Decimal, error)
}

// HoldingSource reports how much of an asset the trading wallet holds.
type HoldingSource interface {
	TokenBalance(ctx context.Context, assetID string) (decimal.Decimal, error)
}

// Holdings maps each chain to its wallet holding source.
type Holdings map[domain.Chain]HoldingSource

// TokenBalance reads the wallet's balance of assetID on chain.
func (h Holdings) TokenBalance(ctx context.Context, chain domain.Chain, assetID string) (decimal.Decimal, error) {
	src, ok := h[chain]
	if !ok {
		return decimal.Zero, fmt.Errorf("no holding source for chain %s", chain)
	}
	return src.TokenBalance(ctx, assetID)
}
