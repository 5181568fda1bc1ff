package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	chargerdomain "github.com/anirudh2403/Seat-Reservation-System/internal/charger/domain"
	"github.com/anirudh2403/Seat-Reservation-System/internal/clock"
	ledgerdomain "github.com/anirudh2403/Seat-Reservation-System/internal/ledger/domain"
	"github.com/anirudh2403/Seat-Reservation-System/internal/order/domain"
	"github.com/anirudh2403/Seat-Reservation-System/pkg/metrics"
)

const (
	defaultHoldTTL       = 10 * time.Minute
	defaultChargeTimeout = 15 * time.Second
	defaultChargeRetries = 2
)

// Service drives an order through the reservation-and-settlement saga:
// hold seats, charge, confirm; release or refund on any step's failure. Every
// step is idempotent keyed by the order's recorded status, so a crashed or
// timed-out workflow can be re-driven with Resume.
type Service struct {
	log     *slog.Logger
	repo    OrderRepository
	ledger  Ledger
	charger Charger
	catalog Catalog
	clock   clock.Clock

	holdTTL       time.Duration
	chargeTimeout time.Duration
	chargeRetries int

	orders *keyedMutex
}

type Option func(*Service)

func WithHoldTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

func WithChargeTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.chargeTimeout = d
		}
	}
}

func NewService(log *slog.Logger, repo OrderRepository, ledger Ledger, charger Charger, catalog Catalog, clk clock.Clock, opts ...Option) *Service {
	s := &Service{
		log:           log,
		repo:          repo,
		ledger:        ledger,
		charger:       charger,
		catalog:       catalog,
		clock:         clk,
		holdTTL:       defaultHoldTTL,
		chargeTimeout: defaultChargeTimeout,
		chargeRetries: defaultChargeRetries,
		orders:        newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HoldTTL is the ledger hold lifetime granted per order.
func (s *Service) HoldTTL() time.Duration { return s.holdTTL }

type PlaceOrderInput struct {
	BuyerID string
	Lines   []domain.Line
}

func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (domain.Order, error) {
	if err := s.validate(ctx, in); err != nil {
		return domain.Order{}, err
	}

	o := domain.New(uuid.NewString(), in.BuyerID, in.Lines, s.clock.Now())

	s.orders.Lock(o.ID)
	defer s.orders.Unlock(o.ID)

	created := domain.OrderCreated{
		OrderID:    o.ID,
		BuyerID:    o.BuyerID,
		TotalPaise: o.TotalPaise,
		Lines:      o.Lines,
	}
	if err := s.persist(ctx, o, "OrderCreated", created); err != nil {
		return domain.Order{}, err
	}

	return s.drive(ctx, o)
}

// Resume re-drives a non-terminal order from its last recorded status. For a
// terminal order it is a no-op returning the stored state.
func (s *Service) Resume(ctx context.Context, orderID string) (domain.Order, error) {
	s.orders.Lock(orderID)
	defer s.orders.Unlock(orderID)

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return s.drive(ctx, o)
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return s.repo.Get(ctx, orderID)
}

// CancelAbandoned cancels an order stuck before its charge step, releasing
// any seats it still holds. Terminal orders are a no-op.
func (s *Service) CancelAbandoned(ctx context.Context, orderID, reason string) (domain.Order, error) {
	s.orders.Lock(orderID)
	defer s.orders.Unlock(orderID)

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if o.Status.Terminal() {
		return o, nil
	}
	if o.Status == domain.StatusCharging {
		return o, fmt.Errorf("order %s is charging, not abandonable", o.ID)
	}

	s.ledger.ReleaseSeats(ctx, o.ID, o.SeatRefs())
	cancelled := domain.OrderCancelled{OrderID: o.ID, BuyerID: o.BuyerID, Reason: reason}
	if terr := s.transition(ctx, &o, domain.StatusCancelled, "OrderCancelled", cancelled); terr != nil {
		return o, terr
	}
	s.log.Info("abandoned order cancelled", "order_id", o.ID, "reason", reason)
	return o, nil
}

// cancelUncharged cancels a CHARGING order whose charge was never claimed, so
// no money moved. Only the reconciler calls this, after checking the store.
func (s *Service) cancelUncharged(ctx context.Context, orderID, reason string) (domain.Order, error) {
	s.orders.Lock(orderID)
	defer s.orders.Unlock(orderID)

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if o.Status != domain.StatusCharging {
		return o, nil
	}

	s.ledger.ReleaseSeats(ctx, o.ID, o.SeatRefs())
	cancelled := domain.OrderCancelled{OrderID: o.ID, BuyerID: o.BuyerID, Reason: reason}
	if terr := s.transition(ctx, &o, domain.StatusCancelled, "OrderCancelled", cancelled); terr != nil {
		return o, terr
	}
	s.log.Info("uncharged order cancelled", "order_id", o.ID, "reason", reason)
	return o, nil
}

func (s *Service) validate(ctx context.Context, in PlaceOrderInput) error {
	if in.BuyerID == "" {
		return &domain.ValidationError{Reason: "buyer id is required"}
	}
	if len(in.Lines) == 0 {
		return &domain.ValidationError{Reason: "order has no lines"}
	}

	seen := make(map[string]struct{}, len(in.Lines))
	refs := make([]ledgerdomain.SeatRef, 0, len(in.Lines))
	for _, l := range in.Lines {
		if l.EventID == "" || l.SeatID == "" {
			return &domain.ValidationError{Reason: "line is missing event or seat id"}
		}
		if l.PricePaise <= 0 {
			return &domain.ValidationError{Reason: fmt.Sprintf("seat %s has non-positive price", l.SeatRef().Key())}
		}
		if _, dup := seen[l.SeatRef().Key()]; dup {
			return &domain.ValidationError{Reason: fmt.Sprintf("seat %s listed twice", l.SeatRef().Key())}
		}
		seen[l.SeatRef().Key()] = struct{}{}
		refs = append(refs, l.SeatRef())
	}

	unknown, err := s.catalog.ValidateSeats(ctx, refs)
	if err != nil {
		return fmt.Errorf("catalog validation: %w", err)
	}
	if len(unknown) > 0 {
		return &domain.ValidationError{Reason: fmt.Sprintf("unknown seats: %v", keysOf(unknown))}
	}
	return nil
}

// drive advances the order until it reaches a terminal status or an internal
// fault leaves it parked in its last durably-recorded state. Callers hold the
// per-order lock.
func (s *Service) drive(ctx context.Context, o domain.Order) (domain.Order, error) {
	for !o.Status.Terminal() {
		switch o.Status {
		case domain.StatusCreated:
			if err := s.holdSeats(ctx, &o); err != nil {
				return o, err
			}

		case domain.StatusSeatsHeld:
			if err := s.transition(ctx, &o, domain.StatusCharging, "", nil); err != nil {
				return o, err
			}

		case domain.StatusCharging:
			return s.settle(ctx, o)

		default:
			return o, fmt.Errorf("order %s in unexpected status %s", o.ID, o.Status)
		}
	}
	return o, nil
}

func (s *Service) holdSeats(ctx context.Context, o *domain.Order) error {
	err := s.ledger.HoldSeats(ctx, o.ID, o.SeatRefs(), s.holdTTL)
	if err == nil {
		return s.transition(ctx, o, domain.StatusSeatsHeld, "", nil)
	}

	var unavailable *ledgerdomain.SeatUnavailableError
	if !errors.As(err, &unavailable) {
		return err // internal fault, order stays CREATED and is resumable
	}

	// nothing was held, so there is nothing to compensate
	failed := domain.OrderFailed{OrderID: o.ID, BuyerID: o.BuyerID, Reason: unavailable.Error()}
	if terr := s.transition(ctx, o, domain.StatusFailed, "OrderFailed", failed); terr != nil {
		return terr
	}
	return err
}

// settle resolves the charge and either confirms the seats or compensates.
func (s *Service) settle(ctx context.Context, o domain.Order) (domain.Order, error) {
	attempt, err := s.resolveCharge(ctx, o)
	if err != nil {
		return o, err // still CHARGING; Resume or the reconciler re-drives
	}

	if attempt.Outcome == chargerdomain.OutcomeFailed {
		s.ledger.ReleaseSeats(ctx, o.ID, o.SeatRefs())
		cancelled := domain.OrderCancelled{OrderID: o.ID, BuyerID: o.BuyerID, Reason: attempt.FailureReason}
		if terr := s.transition(ctx, &o, domain.StatusCancelled, "OrderCancelled", cancelled); terr != nil {
			return o, terr
		}
		return o, fmt.Errorf("%w: %s", domain.ErrPaymentFailed, attempt.FailureReason)
	}

	if err := s.ledger.ConfirmSeats(ctx, o.ID, o.SeatRefs()); err != nil {
		if !errors.Is(err, ledgerdomain.ErrHoldNotFound) {
			return o, err
		}
		// money collected for seats no longer held: the refund is mandatory
		if rerr := s.charger.Refund(ctx, attempt.GatewayRef); rerr != nil && !errors.Is(rerr, chargerdomain.ErrNotRefundable) {
			return o, fmt.Errorf("refund after lost hold: %w", rerr)
		}
		metrics.RefundCompensations.Inc()
		s.log.Warn("hold lost after successful charge, refunded",
			"order_id", o.ID, "gateway_ref", attempt.GatewayRef, "hold_ttl", s.holdTTL)

		cancelled := domain.OrderCancelled{OrderID: o.ID, BuyerID: o.BuyerID, Reason: "hold expired before confirmation", Refunded: true}
		if terr := s.transition(ctx, &o, domain.StatusCancelled, "OrderCancelled", cancelled); terr != nil {
			return o, terr
		}
		return o, domain.ErrHoldExpired
	}

	confirmed := domain.OrderConfirmed{OrderID: o.ID, BuyerID: o.BuyerID, TotalPaise: o.TotalPaise}
	if terr := s.transition(ctx, &o, domain.StatusConfirmed, "OrderConfirmed", confirmed); terr != nil {
		return o, terr
	}
	return o, nil
}

// resolveCharge obtains a definitive charge outcome. On an ambiguous timeout
// it re-queries by the same idempotency key instead of assuming failure; the
// charger's key-level dedup makes every retry a query, never a second charge.
func (s *Service) resolveCharge(ctx context.Context, o domain.Order) (chargerdomain.Attempt, error) {
	key := ChargeKey(o.ID)

	for i := 0; i <= s.chargeRetries; i++ {
		cctx, cancel := context.WithTimeout(ctx, s.chargeTimeout)
		attempt, err := s.charger.Charge(cctx, key, o.ID, o.TotalPaise, o.Currency)
		cancel()
		if err == nil {
			return attempt, nil
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			return chargerdomain.Attempt{}, err
		}
		s.log.Warn("charge call timed out, re-querying by key", "order_id", o.ID, "attempt", i+1)
	}

	attempt, err := s.charger.Lookup(ctx, key)
	if err == nil && attempt.Terminal() {
		return attempt, nil
	}
	return chargerdomain.Attempt{}, fmt.Errorf("%w: order %s", domain.ErrChargeUnresolved, o.ID)
}

func (s *Service) transition(ctx context.Context, o *domain.Order, next domain.Status, eventType string, event any) error {
	if err := o.TransitionTo(next, s.clock.Now()); err != nil {
		return err
	}
	if err := s.persist(ctx, *o, eventType, event); err != nil {
		return err
	}
	if next.Terminal() {
		metrics.OrdersTotal.WithLabelValues(string(next)).Inc()
	}
	return nil
}

func (s *Service) persist(ctx context.Context, o domain.Order, eventType string, event any) error {
	var payload []byte
	if event != nil {
		var err error
		if payload, err = json.Marshal(event); err != nil {
			return err
		}
	}
	headers := map[string]string{"source": "reservation-service"}
	return s.repo.SaveWithOutbox(ctx, o, eventType, payload, headers, traceparent(ctx))
}

// ChargeKey derives the idempotency key for an order's single logical charge
// intent. Deterministic, so any retry of the same order reuses it.
func ChargeKey(orderID string) string {
	return "charge-" + orderID
}

func traceparent(ctx context.Context) string {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier["traceparent"]
}

func keysOf(refs []ledgerdomain.SeatRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Key())
	}
	return out
}
