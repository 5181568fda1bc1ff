package memory

import (
	"context"
	"sync"
	"time"

	"github.com/anirudh2403/Seat-Reservation-System/internal/order/domain"
)

// RecordedEvent is an outbox entry captured in memory.
type RecordedEvent struct {
	OrderID string
	Type    string
	Payload []byte
}

// Repository is an in-memory order store for tests and single-node dev runs.
type Repository struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	events []RecordedEvent
}

func NewRepository() *Repository {
	return &Repository{orders: make(map[string]domain.Order)}
}

func (r *Repository) SaveWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders[o.ID] = o
	if eventType != "" {
		r.events = append(r.events, RecordedEvent{OrderID: o.ID, Type: eventType, Payload: payload})
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (r *Repository) ListStale(ctx context.Context, statuses []domain.Status, before time.Time, limit int) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Order
	for _, o := range r.orders {
		if len(out) == limit {
			break
		}
		for _, st := range statuses {
			if o.Status == st && o.UpdatedAt.Before(before) {
				out = append(out, o)
				break
			}
		}
	}
	return out, nil
}

// Events returns the outbox entries recorded so far.
func (r *Repository) Events() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedEvent(nil), r.events...)
}
