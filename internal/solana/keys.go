package solana

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ErrInvalidPublicKey is returned for keys that are not usable wallet addresses.
var ErrInvalidPublicKey = errors.New("invalid public key")

// ValidatePublicKey checks that key is base58 for 32 bytes and lies on the ed25519
// curve. Program-derived addresses are off-curve and cannot sign, so they are
// rejected as wallets.
func ValidatePublicKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPublicKey)
	}
	raw, err := base58.Decode(key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("%w: decodes to %d bytes, want 32", ErrInvalidPublicKey, len(raw))
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return fmt.Errorf("%w: not on curve", ErrInvalidPublicKey)
	}
	return nil
}
