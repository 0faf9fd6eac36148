package solana

import "context"

// WSClient defines the Solana WebSocket subscriptions used for confirmations.
type WSClient interface {
	// SubscribeSignature subscribes to the confirmation of one signature.
	// The channel receives at most one notification and is closed afterwards.
	SubscribeSignature(ctx context.Context, signature string) (<-chan SignatureNotification, error)

	// Unsubscribe drops the subscription for signature, if any.
	Unsubscribe(signature string)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureNotification reports that a signature reached the subscribed commitment.
type SignatureNotification struct {
	Signature string
	Slot      int64
	Err       interface{} // nil on success
}
