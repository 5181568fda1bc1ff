package memory

import (
	"context"
	"sync"
	"time"

	"github.com/anirudh2403/Seat-Reservation-System/internal/charger/domain"
)

// Store is an in-memory attempt store for tests and single-node dev runs.
type Store struct {
	mu       sync.Mutex
	attempts map[string]domain.Attempt
}

func NewStore() *Store {
	return &Store{attempts: make(map[string]domain.Attempt)}
}

func (s *Store) CreatePending(ctx context.Context, a domain.Attempt) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[a.IdempotencyKey]; ok {
		return false, nil
	}
	s.attempts[a.IdempotencyKey] = a
	return true, nil
}

func (s *Store) Get(ctx context.Context, key string) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[key]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return a, nil
}

func (s *Store) GetByGatewayRef(ctx context.Context, gatewayRef string) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attempts {
		if a.GatewayRef == gatewayRef && gatewayRef != "" {
			return a, nil
		}
	}
	return domain.Attempt{}, domain.ErrAttemptNotFound
}

func (s *Store) MarkOutcome(ctx context.Context, key string, outcome domain.Outcome, gatewayRef, reason string, retryable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[key]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	if a.Terminal() {
		return nil
	}
	a.Outcome = outcome
	a.GatewayRef = gatewayRef
	a.FailureReason = reason
	a.Retryable = retryable
	a.UpdatedAt = time.Now().UTC()
	s.attempts[key] = a
	return nil
}

func (s *Store) MarkRefunded(ctx context.Context, gatewayRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, a := range s.attempts {
		if a.GatewayRef == gatewayRef && gatewayRef != "" {
			if a.Outcome != domain.OutcomeSuccess || a.Refunded {
				return domain.ErrNotRefundable
			}
			a.Refunded = true
			a.UpdatedAt = time.Now().UTC()
			s.attempts[key] = a
			return nil
		}
	}
	return domain.ErrNotRefundable
}
