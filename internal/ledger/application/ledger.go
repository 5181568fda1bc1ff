package application

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/anirudh2403/Seat-Reservation-System/internal/clock"
	"github.com/anirudh2403/Seat-Reservation-System/internal/ledger/domain"
)

type seat struct {
	mu         sync.Mutex
	state      domain.SeatState
	holdOrder  string
	holdExpiry time.Time
}

// held reports whether the seat currently carries a live hold for orderID.
// An expired hold is no hold, whether or not the sweeper got to it yet.
func (s *seat) held(orderID string, now time.Time) bool {
	return s.state == domain.StateHeld && s.holdOrder == orderID && s.holdExpiry.After(now)
}

// Ledger is the single source of truth for seat state. All mutations go
// through it; per-seat locks are acquired in sorted key order and held only
// for the in-memory transition, never across I/O.
type Ledger struct {
	log   *slog.Logger
	clock clock.Clock

	mu    sync.RWMutex // guards the seats map, not seat state
	seats map[string]*seat
}

func NewLedger(log *slog.Logger, clk clock.Clock) *Ledger {
	return &Ledger{
		log:   log,
		clock: clk,
		seats: make(map[string]*seat),
	}
}

// AddSeats registers seats as FREE inventory. Already-known seats keep their
// state, so re-syncing from the catalog is safe.
func (l *Ledger) AddSeats(eventID string, seatIDs []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range seatIDs {
		key := domain.SeatRef{EventID: eventID, SeatID: id}.Key()
		if _, ok := l.seats[key]; !ok {
			l.seats[key] = &seat{state: domain.StateFree}
		}
	}
}

// HoldSeats atomically moves every ref from FREE to HELD(orderID, now+ttl).
// If any seat is unavailable, no seat changes state and the error names all
// conflicting seats.
func (l *Ledger) HoldSeats(ctx context.Context, orderID string, refs []domain.SeatRef, ttl time.Duration) error {
	refs = dedupeSorted(refs)
	now := l.clock.Now()

	seats, missing := l.lookup(refs)
	if len(missing) > 0 {
		return &domain.SeatUnavailableError{Refs: missing}
	}

	l.lockAll(seats)
	defer l.unlockAll(seats)

	var conflicts []domain.SeatRef
	for i, s := range seats {
		switch {
		case s.state == domain.StateFree:
		case s.state == domain.StateHeld && !s.holdExpiry.After(now):
			// expired hold the sweeper has not reclaimed yet
		default:
			conflicts = append(conflicts, refs[i])
		}
	}
	if len(conflicts) > 0 {
		return &domain.SeatUnavailableError{Refs: conflicts}
	}

	expiry := now.Add(ttl)
	for _, s := range seats {
		s.state = domain.StateHeld
		s.holdOrder = orderID
		s.holdExpiry = expiry
	}
	l.log.Debug("seats held", "order_id", orderID, "seats", len(refs), "expiry", expiry)
	return nil
}

// ConfirmSeats moves seats HELD by orderID to SOLD. If any seat no longer
// carries a live hold for this order the whole call fails with ErrHoldNotFound
// and nothing transitions; the caller must compensate, not retry.
func (l *Ledger) ConfirmSeats(ctx context.Context, orderID string, refs []domain.SeatRef) error {
	refs = dedupeSorted(refs)
	now := l.clock.Now()

	seats, missing := l.lookup(refs)
	if len(missing) > 0 {
		return domain.ErrHoldNotFound
	}

	l.lockAll(seats)
	defer l.unlockAll(seats)

	for _, s := range seats {
		if !s.held(orderID, now) {
			return domain.ErrHoldNotFound
		}
	}
	for _, s := range seats {
		s.state = domain.StateSold
		s.holdExpiry = time.Time{}
	}
	l.log.Info("seats sold", "order_id", orderID, "seats", len(refs))
	return nil
}

// ReleaseSeats returns seats HELD by orderID to FREE. Releasing a seat that
// is FREE, SOLD, or held by a different order is a no-op, so the compensation
// path and the sweeper can both release without coordination.
func (l *Ledger) ReleaseSeats(ctx context.Context, orderID string, refs []domain.SeatRef) {
	refs = dedupeSorted(refs)

	seats, _ := l.lookup(refs)
	l.lockAll(seats)
	defer l.unlockAll(seats)

	released := 0
	for _, s := range seats {
		if s.state == domain.StateHeld && s.holdOrder == orderID {
			s.state = domain.StateFree
			s.holdOrder = ""
			s.holdExpiry = time.Time{}
			released++
		}
	}
	if released > 0 {
		l.log.Debug("seats released", "order_id", orderID, "released", released)
	}
}

// SweepExpired releases every hold whose expiry is at or before now and
// returns how many it released.
func (l *Ledger) SweepExpired(now time.Time) int {
	l.mu.RLock()
	all := make([]*seat, 0, len(l.seats))
	for _, s := range l.seats {
		all = append(all, s)
	}
	l.mu.RUnlock()

	released := 0
	for _, s := range all {
		s.mu.Lock()
		if s.state == domain.StateHeld && !s.holdExpiry.After(now) {
			s.state = domain.StateFree
			s.holdOrder = ""
			s.holdExpiry = time.Time{}
			released++
		}
		s.mu.Unlock()
	}
	return released
}

// Seat returns a snapshot of a single seat record.
func (l *Ledger) Seat(ref domain.SeatRef) (domain.Seat, bool) {
	l.mu.RLock()
	s, ok := l.seats[ref.Key()]
	l.mu.RUnlock()
	if !ok {
		return domain.Seat{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Seat{
		Ref:        ref,
		State:      s.state,
		HoldOrder:  s.holdOrder,
		HoldExpiry: s.holdExpiry,
	}, true
}

func (l *Ledger) lookup(refs []domain.SeatRef) ([]*seat, []domain.SeatRef) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seats := make([]*seat, 0, len(refs))
	var missing []domain.SeatRef
	for _, r := range refs {
		s, ok := l.seats[r.Key()]
		if !ok {
			missing = append(missing, r)
			continue
		}
		seats = append(seats, s)
	}
	return seats, missing
}

// lockAll acquires per-seat locks. Callers pass seats in sorted key order,
// which keeps lock acquisition deadlock-free across overlapping holds.
func (l *Ledger) lockAll(seats []*seat) {
	for _, s := range seats {
		s.mu.Lock()
	}
}

func (l *Ledger) unlockAll(seats []*seat) {
	for _, s := range seats {
		s.mu.Unlock()
	}
}

func dedupeSorted(refs []domain.SeatRef) []domain.SeatRef {
	out := make([]domain.SeatRef, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		if _, ok := seen[r.Key()]; ok {
			continue
		}
		seen[r.Key()] = struct{}{}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
