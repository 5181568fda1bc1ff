package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/anirudh2403/Seat-Reservation-System/internal/charger/domain"
	"github.com/anirudh2403/Seat-Reservation-System/internal/clock"
	"github.com/anirudh2403/Seat-Reservation-System/pkg/metrics"
)

// Service charges at most once per idempotency key. The first caller for a
// key wins the CreatePending compare-and-set and is the only one to invoke
// the gateway; everyone else waits for or reads back the stored outcome.
type Service struct {
	log     *slog.Logger
	store   AttemptStore
	gateway domain.Gateway
	clock   clock.Clock
	group   singleflight.Group
	poll    time.Duration
}

func NewService(log *slog.Logger, store AttemptStore, gateway domain.Gateway, clk clock.Clock) *Service {
	return &Service{
		log:     log,
		store:   store,
		gateway: gateway,
		clock:   clk,
		poll:    50 * time.Millisecond,
	}
}

func (s *Service) Charge(ctx context.Context, key, orderID string, amountPaise int64, currency string) (domain.Attempt, error) {
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.charge(ctx, key, orderID, amountPaise, currency)
	})
	if err != nil {
		return domain.Attempt{}, err
	}
	return v.(domain.Attempt), nil
}

func (s *Service) charge(ctx context.Context, key, orderID string, amountPaise int64, currency string) (domain.Attempt, error) {
	now := s.clock.Now()
	attempt := domain.Attempt{
		IdempotencyKey: key,
		OrderID:        orderID,
		AmountPaise:    amountPaise,
		Currency:       currency,
		Outcome:        domain.OutcomePending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	claimed, err := s.store.CreatePending(ctx, attempt)
	if err != nil {
		return domain.Attempt{}, err
	}
	if !claimed {
		// another caller owns the gateway call; surface its outcome
		return s.awaitOutcome(ctx, key)
	}

	ref, err := s.gateway.Charge(ctx, orderID, amountPaise, currency)
	if err != nil {
		reason, retryable := "gateway error", true
		var gwErr *domain.GatewayError
		if errors.As(err, &gwErr) {
			reason, retryable = gwErr.Reason, gwErr.Retryable
		}
		// record even if the caller's context died mid-call: the outcome is
		// the charge's state, not the request's
		markCtx := context.WithoutCancel(ctx)
		if err := s.store.MarkOutcome(markCtx, key, domain.OutcomeFailed, "", reason, retryable); err != nil {
			return domain.Attempt{}, err
		}
		metrics.ChargesTotal.WithLabelValues(string(domain.OutcomeFailed)).Inc()
		s.log.Warn("charge failed", "order_id", orderID, "key", key, "reason", reason, "retryable", retryable)
		return s.store.Get(markCtx, key)
	}

	if err := s.store.MarkOutcome(context.WithoutCancel(ctx), key, domain.OutcomeSuccess, ref, "", false); err != nil {
		return domain.Attempt{}, err
	}
	metrics.ChargesTotal.WithLabelValues(string(domain.OutcomeSuccess)).Inc()
	s.log.Info("charge succeeded", "order_id", orderID, "key", key, "gateway_ref", ref)
	return s.store.Get(ctx, key)
}

// Lookup reads the stored outcome for a key without touching the gateway.
func (s *Service) Lookup(ctx context.Context, key string) (domain.Attempt, error) {
	return s.store.Get(ctx, key)
}

// Refund unwinds a successful charge. Only SUCCESS attempts that are not
// already refunded qualify.
func (s *Service) Refund(ctx context.Context, gatewayRef string) error {
	attempt, err := s.store.GetByGatewayRef(ctx, gatewayRef)
	if err != nil {
		if errors.Is(err, domain.ErrAttemptNotFound) {
			return domain.ErrNotRefundable
		}
		return err
	}
	if attempt.Outcome != domain.OutcomeSuccess || attempt.Refunded {
		return domain.ErrNotRefundable
	}

	if err := s.gateway.Refund(ctx, gatewayRef); err != nil {
		return err
	}
	if err := s.store.MarkRefunded(context.WithoutCancel(ctx), gatewayRef); err != nil {
		return err
	}
	s.log.Info("charge refunded", "order_id", attempt.OrderID, "gateway_ref", gatewayRef)
	return nil
}

func (s *Service) awaitOutcome(ctx context.Context, key string) (domain.Attempt, error) {
	t := time.NewTicker(s.poll)
	defer t.Stop()

	for {
		attempt, err := s.store.Get(ctx, key)
		if err != nil {
			return domain.Attempt{}, err
		}
		if attempt.Terminal() {
			return attempt, nil
		}
		select {
		case <-ctx.Done():
			return domain.Attempt{}, ctx.Err()
		case <-t.C:
		}
	}
}
