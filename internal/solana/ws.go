package solana

import "context"

// WSClient defines the ledger WebSocket subscription interface.
type WSClient interface {
	// SubscribeSignature subscribes to the confirmation notification for a
	// single signature. The returned channel delivers exactly one result
	// and is then closed.
	SubscribeSignature(ctx context.Context, signature string, commitment Commitment) (<-chan SignatureResult, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureResult is the outcome delivered by a signature subscription.
type SignatureResult struct {
	Signature string
	Slot      int64
	Err       interface{} // non-nil when the transaction executed with an error
}
