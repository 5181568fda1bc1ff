package domain

import (
	"context"
	"fmt"
)

// Gateway is the external payment network. Charge returns a gateway
// reference on success; failures come back as *GatewayError. Retry and dedup
// responsibility stays on this side, never the gateway's.
type Gateway interface {
	Charge(ctx context.Context, orderID string, amountPaise int64, currency string) (string, error)
	Refund(ctx context.Context, gatewayRef string) error
}

// GatewayError distinguishes terminal declines from transport-level faults
// (timeout, 5xx) that a buyer-side retry with a fresh intent might clear.
type GatewayError struct {
	Reason    string
	Retryable bool
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway: %s", e.Reason)
}
