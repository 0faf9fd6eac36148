// Package pricing quotes open positions in native units.
package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"post-sniper/internal/domain"
)

// Source is the price-source collaborator.
type Source interface {
	// Quote returns the price of one asset unit in the chain's native asset.
	// A nil price with a nil error means no price is available.
	Quote(ctx context.Context, chain domain.Chain, assetID string) (*decimal.Decimal, error)
}

// Wrapped native assets used as quote tokens.
const (
	WrappedSOL  = "So11111111111111111111111111111111111111112"
	WrappedETHB = "0x4200000000000000000000000000000000000006"
)

// WrappedNative returns the wrapped native token address of chain.
func WrappedNative(chain domain.Chain) string {
	switch chain {
	case domain.ChainSolana:
		return WrappedSOL
	case domain.ChainBase:
		return WrappedETHB
	default:
		return ""
	}
}
