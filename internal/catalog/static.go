package catalog

import (
	"context"

	"github.com/anirudh2403/Seat-Reservation-System/internal/ledger/domain"
)

// Static is a fixed in-memory catalog for dev runs and tests.
type Static struct {
	seats map[string]map[string]struct{} // eventID -> seatID set
}

func NewStatic() *Static {
	return &Static{seats: make(map[string]map[string]struct{})}
}

func (s *Static) AddEvent(eventID string, seatIDs []string) {
	set, ok := s.seats[eventID]
	if !ok {
		set = make(map[string]struct{}, len(seatIDs))
		s.seats[eventID] = set
	}
	for _, id := range seatIDs {
		set[id] = struct{}{}
	}
}

func (s *Static) ValidateSeats(ctx context.Context, refs []domain.SeatRef) ([]domain.SeatRef, error) {
	var unknown []domain.SeatRef
	for _, r := range refs {
		if _, ok := s.seats[r.EventID][r.SeatID]; !ok {
			unknown = append(unknown, r)
		}
	}
	return unknown, nil
}

// Events yields every event's seat ids, for seeding the ledger.
func (s *Static) Events() map[string][]string {
	out := make(map[string][]string, len(s.seats))
	for ev, set := range s.seats {
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		out[ev] = ids
	}
	return out
}
