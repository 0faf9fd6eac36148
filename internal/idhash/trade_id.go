package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"post-sniper/internal/domain"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(chain|asset_id|direction|attempted_at_ns)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	chain domain.Chain,
	assetID string,
	direction domain.Direction,
	attemptedAtNs int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d",
		string(chain),
		assetID,
		string(direction),
		attemptedAtNs,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
