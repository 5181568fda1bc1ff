package application

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudh2403/Seat-Reservation-System/internal/charger/domain"
	"github.com/anirudh2403/Seat-Reservation-System/internal/charger/infrastructure/memory"
	"github.com/anirudh2403/Seat-Reservation-System/internal/clock"
)

type fakeGateway struct {
	charges   atomic.Int64
	refunds   atomic.Int64
	delay     time.Duration
	chargeErr error
	refundErr error
}

func (g *fakeGateway) Charge(ctx context.Context, orderID string, amountPaise int64, currency string) (string, error) {
	g.charges.Add(1)
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if g.chargeErr != nil {
		return "", g.chargeErr
	}
	return "ch_" + orderID, nil
}

func (g *fakeGateway) Refund(ctx context.Context, gatewayRef string) error {
	g.refunds.Add(1)
	return g.refundErr
}

var testLogger = slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func newService(gw domain.Gateway) (*Service, *memory.Store) {
	store := memory.NewStore()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc := NewService(testLogger, store, gw, clock.NewFixed(now))
	svc.poll = 5 * time.Millisecond
	return svc, store
}

func TestService_Charge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("first call charges the gateway once", func(t *testing.T) {
		gw := &fakeGateway{}
		svc, _ := newService(gw)

		attempt, err := svc.Charge(ctx, "key-1", "ord-1", 52_500, "INR")
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeSuccess, attempt.Outcome)
		assert.Equal(t, "ch_ord-1", attempt.GatewayRef)
		assert.EqualValues(t, 1, gw.charges.Load())
	})

	t.Run("replay returns stored outcome without a second gateway call", func(t *testing.T) {
		gw := &fakeGateway{}
		svc, _ := newService(gw)

		first, err := svc.Charge(ctx, "key-1", "ord-1", 52_500, "INR")
		require.NoError(t, err)
		second, err := svc.Charge(ctx, "key-1", "ord-1", 52_500, "INR")
		require.NoError(t, err)

		assert.Equal(t, first.Outcome, second.Outcome)
		assert.Equal(t, first.GatewayRef, second.GatewayRef)
		assert.EqualValues(t, 1, gw.charges.Load())
	})

	t.Run("decline is terminal and replayed", func(t *testing.T) {
		gw := &fakeGateway{chargeErr: &domain.GatewayError{Reason: "card declined", Retryable: false}}
		svc, _ := newService(gw)

		attempt, err := svc.Charge(ctx, "key-1", "ord-1", 52_500, "INR")
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeFailed, attempt.Outcome)
		assert.False(t, attempt.Retryable)
		assert.Equal(t, "card declined", attempt.FailureReason)

		replay, err := svc.Charge(ctx, "key-1", "ord-1", 52_500, "INR")
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeFailed, replay.Outcome)
		assert.EqualValues(t, 1, gw.charges.Load())
	})

	t.Run("transport faults are recorded as retryable failures", func(t *testing.T) {
		gw := &fakeGateway{chargeErr: &domain.GatewayError{Reason: "gateway timeout", Retryable: true}}
		svc, _ := newService(gw)

		attempt, err := svc.Charge(ctx, "key-1", "ord-1", 52_500, "INR")
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeFailed, attempt.Outcome)
		assert.True(t, attempt.Retryable)
	})

	t.Run("concurrent duplicates invoke the gateway exactly once", func(t *testing.T) {
		gw := &fakeGateway{delay: 30 * time.Millisecond}
		svc, _ := newService(gw)

		const callers = 32
		var wg sync.WaitGroup
		outcomes := make([]domain.Attempt, callers)
		errs := make([]error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcomes[i], errs[i] = svc.Charge(ctx, "key-1", "ord-1", 52_500, "INR")
			}(i)
		}
		wg.Wait()

		assert.EqualValues(t, 1, gw.charges.Load())
		for i := 0; i < callers; i++ {
			require.NoError(t, errs[i])
			assert.Equal(t, domain.OutcomeSuccess, outcomes[i].Outcome)
			assert.Equal(t, "ch_ord-1", outcomes[i].GatewayRef)
		}
	})

	t.Run("duplicate across service instances collapses via the store", func(t *testing.T) {
		// same attempt store, separate singleflight groups: the CAS alone
		// must keep the gateway at one invocation
		gw := &fakeGateway{delay: 30 * time.Millisecond}
		store := memory.NewStore()
		now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
		svcA := NewService(testLogger, store, gw, clock.NewFixed(now))
		svcA.poll = 5 * time.Millisecond
		svcB := NewService(testLogger, store, gw, clock.NewFixed(now))
		svcB.poll = 5 * time.Millisecond

		var wg sync.WaitGroup
		var a, b domain.Attempt
		var errA, errB error
		wg.Add(2)
		go func() { defer wg.Done(); a, errA = svcA.Charge(ctx, "key-1", "ord-1", 100, "INR") }()
		go func() { defer wg.Done(); b, errB = svcB.Charge(ctx, "key-1", "ord-1", 100, "INR") }()
		wg.Wait()

		require.NoError(t, errA)
		require.NoError(t, errB)
		assert.EqualValues(t, 1, gw.charges.Load())
		assert.Equal(t, a.GatewayRef, b.GatewayRef)
	})
}

func TestService_Refund(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("refunds a successful charge once", func(t *testing.T) {
		gw := &fakeGateway{}
		svc, _ := newService(gw)

		attempt, err := svc.Charge(ctx, "key-1", "ord-1", 100, "INR")
		require.NoError(t, err)

		require.NoError(t, svc.Refund(ctx, attempt.GatewayRef))
		assert.EqualValues(t, 1, gw.refunds.Load())

		err = svc.Refund(ctx, attempt.GatewayRef)
		require.ErrorIs(t, err, domain.ErrNotRefundable)
		assert.EqualValues(t, 1, gw.refunds.Load())
	})

	t.Run("failed charges are not refundable", func(t *testing.T) {
		gw := &fakeGateway{chargeErr: &domain.GatewayError{Reason: "declined", Retryable: false}}
		svc, _ := newService(gw)

		_, err := svc.Charge(ctx, "key-1", "ord-1", 100, "INR")
		require.NoError(t, err)

		err = svc.Refund(ctx, "ch_ord-1")
		require.ErrorIs(t, err, domain.ErrNotRefundable)
		assert.EqualValues(t, 0, gw.refunds.Load())
	})

	t.Run("unknown reference is not refundable", func(t *testing.T) {
		svc, _ := newService(&fakeGateway{})
		err := svc.Refund(ctx, "ch_missing")
		require.ErrorIs(t, err, domain.ErrNotRefundable)
	})
}

func TestService_Lookup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newService(&fakeGateway{})

	_, err := svc.Lookup(ctx, "key-unknown")
	require.ErrorIs(t, err, domain.ErrAttemptNotFound)

	_, err = svc.Charge(ctx, "key-1", "ord-1", 100, "INR")
	require.NoError(t, err)

	attempt, err := svc.Lookup(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, attempt.Outcome)
}
