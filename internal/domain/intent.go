package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// IntentDirection is the direction money moves through the gateway.
type IntentDirection string

const (
	DirectionCollection   IntentDirection = "collection"   // customer -> platform
	DirectionDisbursement IntentDirection = "disbursement" // platform -> customer
)

// IntentPurpose names the business event behind the gateway operation.
type IntentPurpose string

const (
	PurposeRegistration IntentPurpose = "registration"
	PurposeWithdrawal   IntentPurpose = "withdrawal"
)

// IntentStatus is the lifecycle of a gateway operation.
type IntentStatus string

const (
	IntentInitiated IntentStatus = "initiated"
	IntentPending   IntentStatus = "pending"
	IntentCompleted IntentStatus = "completed"
	IntentFailed    IntentStatus = "failed"
	IntentTimedOut  IntentStatus = "timed_out"
)

// Terminal reports whether the status can never change again.
func (s IntentStatus) Terminal() bool {
	switch s {
	case IntentCompleted, IntentFailed, IntentTimedOut:
		return true
	}
	return false
}

// PaymentIntent records one external gateway operation. CorrelationID
// is the gateway-assigned identifier tying the request to its eventual
// callback; at most one intent exists per correlation id.
type PaymentIntent struct {
	ID            string
	Direction     IntentDirection
	Purpose       IntentPurpose
	CorrelationID string
	AccountID     string
	WithdrawalID  *string
	Amount        decimal.Decimal
	Phone         string
	Status        IntentStatus
	RawResponse   json.RawMessage
	CreatedAt     time.Time
	FinalizedAt   *time.Time
}

// ValidateTransition checks that moving to next is legal. Statuses are
// monotonic; a terminal intent never leaves its terminal status.
func (p *PaymentIntent) ValidateTransition(next IntentStatus) error {
	ok := false
	switch p.Status {
	case IntentInitiated:
		ok = next == IntentPending || next == IntentFailed
	case IntentPending:
		ok = next.Terminal()
	}
	if !ok {
		return &InvalidTransitionError{
			Entity:    "payment intent",
			Current:   string(p.Status),
			Attempted: string(next),
		}
	}
	return nil
}
