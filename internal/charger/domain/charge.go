package domain

import (
	"errors"
	"time"
)

type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// Attempt is a charge attempt record keyed by idempotency key. Once the
// outcome is terminal the record is append-only: replays read it back and
// never reach the gateway again.
type Attempt struct {
	IdempotencyKey string
	OrderID        string
	AmountPaise    int64
	Currency       string
	Outcome        Outcome
	GatewayRef     string
	FailureReason  string
	Retryable      bool
	Refunded       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (a Attempt) Terminal() bool {
	return a.Outcome == OutcomeSuccess || a.Outcome == OutcomeFailed
}

var (
	ErrAttemptNotFound = errors.New("charge attempt not found")
	ErrNotRefundable   = errors.New("charge not refundable")
)
