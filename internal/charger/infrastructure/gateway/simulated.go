package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anirudh2403/Seat-Reservation-System/internal/charger/domain"
)

// Simulated stands in for the payment network in dev and demo runs. It
// declines charges above a configurable limit and tracks refs it issued so
// refunds against unknown refs fail like the real network would.
type Simulated struct {
	log          *slog.Logger
	declineAbove int64 // paise; 0 disables the limit
	latency      time.Duration

	mu       sync.Mutex
	refunded map[string]bool
}

func NewSimulated(log *slog.Logger, declineAbovePaise int64, latency time.Duration) *Simulated {
	return &Simulated{
		log:          log,
		declineAbove: declineAbovePaise,
		latency:      latency,
		refunded:     make(map[string]bool),
	}
}

func (g *Simulated) Charge(ctx context.Context, orderID string, amountPaise int64, currency string) (string, error) {
	if g.latency > 0 {
		select {
		case <-ctx.Done():
			return "", &domain.GatewayError{Reason: "gateway timeout", Retryable: true}
		case <-time.After(g.latency):
		}
	}
	if g.declineAbove > 0 && amountPaise > g.declineAbove {
		return "", &domain.GatewayError{Reason: "card declined: amount over limit", Retryable: false}
	}

	ref := "ch_" + uuid.NewString()
	g.mu.Lock()
	g.refunded[ref] = false
	g.mu.Unlock()

	g.log.Info("gateway charge", "order_id", orderID, "amount_paise", amountPaise, "currency", currency, "ref", ref)
	return ref, nil
}

func (g *Simulated) Refund(ctx context.Context, gatewayRef string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	done, known := g.refunded[gatewayRef]
	if !known {
		return &domain.GatewayError{Reason: "unknown charge reference", Retryable: false}
	}
	if done {
		return &domain.GatewayError{Reason: "already refunded", Retryable: false}
	}
	g.refunded[gatewayRef] = true
	g.log.Info("gateway refund", "ref", gatewayRef)
	return nil
}
