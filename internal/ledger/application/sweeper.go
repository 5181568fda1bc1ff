package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/anirudh2403/Seat-Reservation-System/internal/clock"
	"github.com/anirudh2403/Seat-Reservation-System/pkg/metrics"
)

// Sweeper releases expired holds on a fixed interval. It is a safety net for
// checkouts abandoned mid-flight; orders racing their own confirm against a
// sweep discover the loss through ConfirmSeats failing.
type Sweeper struct {
	log      *slog.Logger
	ledger   *Ledger
	clock    clock.Clock
	interval time.Duration
}

func NewSweeper(log *slog.Logger, ledger *Ledger, clk clock.Clock, interval time.Duration) *Sweeper {
	return &Sweeper{
		log:      log,
		ledger:   ledger,
		clock:    clk,
		interval: interval,
	}
}

func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopping")
			return nil
		case <-t.C:
			n := s.ledger.SweepExpired(s.clock.Now())
			if n > 0 {
				metrics.HoldsSwept.Add(float64(n))
				s.log.Info("expired holds released", "count", n)
			}
		}
	}
}
