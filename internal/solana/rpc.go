package solana

import (
	"context"

	"github.com/shopspring/decimal"
)

// RPCClient defines the Solana RPC HTTP calls the venues need.
type RPCClient interface {
	// GetBalance returns the native balance of pubkey in lamports.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetTokenBalance returns the UI amount of mint held by owner across all its token accounts.
	GetTokenBalance(ctx context.Context, owner, mint string) (decimal.Decimal, error)

	// GetSignatureStatus returns the status of a signature, nil if unknown to the cluster.
	GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error)
}
