package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type SeatState string

const (
	StateFree SeatState = "free"
	StateHeld SeatState = "held"
	StateSold SeatState = "sold"
)

// SeatRef identifies a seat within its event. Seats never move between
// events, so the pair is a stable global identity.
type SeatRef struct {
	EventID string `json:"event_id"`
	SeatID  string `json:"seat_id"`
}

func (r SeatRef) Key() string {
	return r.EventID + "/" + r.SeatID
}

// Seat is a read snapshot of a seat record.
type Seat struct {
	Ref        SeatRef
	State      SeatState
	HoldOrder  string
	HoldExpiry time.Time
}

var ErrHoldNotFound = errors.New("hold not found")

// SeatUnavailableError names every seat that blocked an all-or-nothing hold:
// held by another order, already sold, or unknown to the ledger.
type SeatUnavailableError struct {
	Refs []SeatRef
}

func (e *SeatUnavailableError) Error() string {
	keys := make([]string, 0, len(e.Refs))
	for _, r := range e.Refs {
		keys = append(keys, r.Key())
	}
	return fmt.Sprintf("seats unavailable: %s", strings.Join(keys, ", "))
}
