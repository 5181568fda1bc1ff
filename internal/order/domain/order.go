package domain

import (
	"time"

	ledgerdomain "github.com/anirudh2403/Seat-Reservation-System/internal/ledger/domain"
)

type Status string

const (
	StatusCreated   Status = "created"
	StatusSeatsHeld Status = "seats_held"
	StatusCharging  Status = "charging"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// transitions is the saga's full state graph. Anything not listed here is
// rejected; there are no ad-hoc status overwrites.
var transitions = map[Status][]Status{
	StatusCreated:   {StatusSeatsHeld, StatusFailed, StatusCancelled},
	StatusSeatsHeld: {StatusCharging, StatusCancelled},
	StatusCharging:  {StatusConfirmed, StatusCancelled},
}

func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled || s == StatusFailed
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Line is one ordered seat at its agreed price, in paise.
type Line struct {
	EventID    string `json:"event_id"`
	SeatID     string `json:"seat_id"`
	PricePaise int64  `json:"price_paise"`
}

func (l Line) SeatRef() ledgerdomain.SeatRef {
	return ledgerdomain.SeatRef{EventID: l.EventID, SeatID: l.SeatID}
}

// TaxRatePercent is applied on the line subtotal.
const TaxRatePercent = 5

const Currency = "INR"

type Order struct {
	ID         string
	BuyerID    string
	Lines      []Line
	TotalPaise int64
	Currency   string
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func New(id, buyerID string, lines []Line, now time.Time) Order {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.PricePaise
	}
	total := subtotal + subtotal*TaxRatePercent/100

	return Order{
		ID:         id,
		BuyerID:    buyerID,
		Lines:      lines,
		TotalPaise: total,
		Currency:   Currency,
		Status:     StatusCreated,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// TransitionTo advances the order along the state graph, or fails with
// ErrInvalidTransition if the move is not in the table.
func (o *Order) TransitionTo(next Status, now time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return &InvalidTransitionError{From: o.Status, To: next}
	}
	o.Status = next
	o.UpdatedAt = now
	return nil
}

func (o Order) SeatRefs() []ledgerdomain.SeatRef {
	refs := make([]ledgerdomain.SeatRef, 0, len(o.Lines))
	for _, l := range o.Lines {
		refs = append(refs, l.SeatRef())
	}
	return refs
}
