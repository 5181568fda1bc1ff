package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrPaymentFailed is the buyer-visible terminal failure when the charge
	// is declined and the held seats have been released.
	ErrPaymentFailed = errors.New("payment failed")

	// ErrHoldExpired marks the race where seats were lost between a
	// successful charge and confirmation; the charge is refunded.
	ErrHoldExpired = errors.New("hold expired before confirmation")

	// ErrChargeUnresolved means the gateway outcome is still unknown after
	// the retry budget; the order stays in CHARGING and must be re-driven.
	ErrChargeUnresolved = errors.New("charge outcome unresolved")
)

type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition %s -> %s", e.From, e.To)
}

type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}
