package application

import (
	"context"

	"github.com/anirudh2403/Seat-Reservation-System/internal/charger/domain"
)

// AttemptStore persists charge attempts keyed by idempotency key.
// CreatePending must be a compare-and-set: exactly one caller per key gets
// true, which makes that caller the single gateway invoker.
type AttemptStore interface {
	CreatePending(ctx context.Context, a domain.Attempt) (bool, error)
	Get(ctx context.Context, key string) (domain.Attempt, error)
	GetByGatewayRef(ctx context.Context, gatewayRef string) (domain.Attempt, error)
	MarkOutcome(ctx context.Context, key string, outcome domain.Outcome, gatewayRef, reason string, retryable bool) error
	MarkRefunded(ctx context.Context, gatewayRef string) error
}
