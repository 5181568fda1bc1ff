package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesTax(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	o := New("ord-1", "buyer-1", []Line{
		{EventID: "ev-1", SeatID: "A1", PricePaise: 10000},
		{EventID: "ev-1", SeatID: "A2", PricePaise: 20000},
	}, now)

	assert.Equal(t, int64(31500), o.TotalPaise)
	assert.Equal(t, "INR", o.Currency)
	assert.Equal(t, StatusCreated, o.Status)
}

func TestTransitionTable(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusCreated, StatusSeatsHeld},
		{StatusCreated, StatusFailed},
		{StatusCreated, StatusCancelled},
		{StatusSeatsHeld, StatusCharging},
		{StatusSeatsHeld, StatusCancelled},
		{StatusCharging, StatusConfirmed},
		{StatusCharging, StatusCancelled},
	}
	for _, tc := range allowed {
		assert.True(t, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}

	rejected := []struct{ from, to Status }{
		{StatusCreated, StatusConfirmed},
		{StatusCreated, StatusCharging},
		{StatusSeatsHeld, StatusConfirmed},
		{StatusCharging, StatusFailed},
		{StatusConfirmed, StatusCancelled},
		{StatusCancelled, StatusCreated},
		{StatusFailed, StatusSeatsHeld},
	}
	for _, tc := range rejected {
		assert.False(t, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransitionToRejectsSkips(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	o := New("ord-1", "buyer-1", []Line{{EventID: "ev-1", SeatID: "A1", PricePaise: 100}}, now)

	err := o.TransitionTo(StatusConfirmed, now)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatusCreated, o.Status)

	require.NoError(t, o.TransitionTo(StatusSeatsHeld, now.Add(time.Second)))
	assert.Equal(t, now.Add(time.Second), o.UpdatedAt)
}

func TestTerminal(t *testing.T) {
	for _, s := range []Status{StatusConfirmed, StatusCancelled, StatusFailed} {
		assert.True(t, s.Terminal(), string(s))
	}
	for _, s := range []Status{StatusCreated, StatusSeatsHeld, StatusCharging} {
		assert.False(t, s.Terminal(), string(s))
	}
}
