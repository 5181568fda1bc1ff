package application

import (
	"context"
	"time"

	chargerdomain "github.com/anirudh2403/Seat-Reservation-System/internal/charger/domain"
	ledgerdomain "github.com/anirudh2403/Seat-Reservation-System/internal/ledger/domain"
	"github.com/anirudh2403/Seat-Reservation-System/internal/order/domain"
)

type OrderRepository interface {
	SaveWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) error
	Get(ctx context.Context, id string) (domain.Order, error)
	// ListStale returns orders in the given statuses whose last transition is
	// before the cutoff. Used by the reconciler.
	ListStale(ctx context.Context, statuses []domain.Status, before time.Time, limit int) ([]domain.Order, error)
}

type Ledger interface {
	HoldSeats(ctx context.Context, orderID string, refs []ledgerdomain.SeatRef, ttl time.Duration) error
	ConfirmSeats(ctx context.Context, orderID string, refs []ledgerdomain.SeatRef) error
	ReleaseSeats(ctx context.Context, orderID string, refs []ledgerdomain.SeatRef)
}

type Charger interface {
	Charge(ctx context.Context, key, orderID string, amountPaise int64, currency string) (chargerdomain.Attempt, error)
	Lookup(ctx context.Context, key string) (chargerdomain.Attempt, error)
	Refund(ctx context.Context, gatewayRef string) error
}

type Catalog interface {
	ValidateSeats(ctx context.Context, refs []ledgerdomain.SeatRef) ([]ledgerdomain.SeatRef, error)
}
