package idhash

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeAlertID computes a deterministic alert id from the post id.
// Receivers use it to drop redelivered alerts.
// Formula: SHA256("alert"|post_id), hex-encoded (64 characters).
func ComputeAlertID(postID string) string {
	hash := sha256.Sum256([]byte("alert|" + postID))
	return hex.EncodeToString(hash[:])
}
