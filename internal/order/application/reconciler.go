package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	chargerdomain "github.com/anirudh2403/Seat-Reservation-System/internal/charger/domain"
	"github.com/anirudh2403/Seat-Reservation-System/internal/clock"
	"github.com/anirudh2403/Seat-Reservation-System/internal/order/domain"
)

// Reconciler cancels orders abandoned before charging and resolves orders
// stuck in CHARGING after a crash. It complements the ledger sweeper: the
// sweeper frees seats, the reconciler settles the order records.
type Reconciler struct {
	log     *slog.Logger
	svc     *Service
	repo    OrderRepository
	charger Charger
	clock   clock.Clock

	interval   time.Duration
	staleAfter time.Duration
	batch      int
}

func NewReconciler(log *slog.Logger, svc *Service, repo OrderRepository, charger Charger, clk clock.Clock, interval, staleAfter time.Duration) *Reconciler {
	return &Reconciler{
		log:        log,
		svc:        svc,
		repo:       repo,
		charger:    charger,
		clock:      clk,
		interval:   interval,
		staleAfter: staleAfter,
		batch:      100,
	}
}

func (r *Reconciler) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("reconciler stopping")
			return nil
		case <-t.C:
			r.pass(ctx)
		}
	}
}

func (r *Reconciler) pass(ctx context.Context) {
	cutoff := r.clock.Now().Add(-r.staleAfter)
	stale, err := r.repo.ListStale(ctx,
		[]domain.Status{domain.StatusCreated, domain.StatusSeatsHeld, domain.StatusCharging},
		cutoff, r.batch)
	if err != nil {
		r.log.Error("reconciler list stale failed", "err", err)
		return
	}

	for _, o := range stale {
		if err := r.reconcile(ctx, o); err != nil {
			r.log.Error("reconcile failed", "order_id", o.ID, "status", o.Status, "err", err)
		}
	}
}

func (r *Reconciler) reconcile(ctx context.Context, o domain.Order) error {
	switch o.Status {
	case domain.StatusCreated, domain.StatusSeatsHeld:
		_, err := r.svc.CancelAbandoned(ctx, o.ID, "abandoned past hold ttl")
		return err

	case domain.StatusCharging:
		attempt, err := r.charger.Lookup(ctx, ChargeKey(o.ID))
		if errors.Is(err, chargerdomain.ErrAttemptNotFound) {
			// crashed before the charge was ever claimed; no money moved
			_, err := r.svc.cancelUncharged(ctx, o.ID, "abandoned before charge")
			return err
		}
		if err != nil {
			return err
		}
		if !attempt.Terminal() {
			// gateway outcome genuinely unknown; never guess
			r.log.Warn("charge still pending, leaving order for next pass", "order_id", o.ID)
			return nil
		}
		// terminal outcome recorded: re-driving replays it without the gateway
		_, err = r.svc.Resume(ctx, o.ID)
		if err != nil && !isExpectedSettleOutcome(err) {
			return err
		}
		return nil
	}
	return nil
}

// isExpectedSettleOutcome filters the errors drive returns alongside a
// properly settled terminal order.
func isExpectedSettleOutcome(err error) bool {
	return errors.Is(err, domain.ErrPaymentFailed) || errors.Is(err, domain.ErrHoldExpired)
}
