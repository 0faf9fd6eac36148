package solana

import (
	"context"
	"errors"
	"fmt"
)

// ErrTransactionFailed is returned when a confirmed transaction carries an error.
var ErrTransactionFailed = errors.New("transaction failed")

// WaitForSignature blocks until signature is confirmed, the transaction fails or
// ctx ends. The RPC status is checked after subscribing because the transaction
// may have landed before the subscription existed.
func WaitForSignature(ctx context.Context, ws WSClient, rpc RPCClient, signature string) error {
	ch, err := ws.SubscribeSignature(ctx, signature)
	if err != nil {
		return fmt.Errorf("subscribe signature: %w", err)
	}
	defer ws.Unsubscribe(signature)

	if st, err := rpc.GetSignatureStatus(ctx, signature); err == nil && st != nil && st.IsConfirmed() {
		if st.Err != nil {
			return fmt.Errorf("%w: %v", ErrTransactionFailed, st.Err)
		}
		return nil
	}

	select {
	case n, ok := <-ch:
		if !ok {
			return fmt.Errorf("subscription for %s closed", signature)
		}
		if n.Err != nil {
			return fmt.Errorf("%w: %v", ErrTransactionFailed, n.Err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
