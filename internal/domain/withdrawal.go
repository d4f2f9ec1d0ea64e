package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus is the payout state machine.
type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "pending"
	WithdrawalApproved   WithdrawalStatus = "approved"
	WithdrawalProcessing WithdrawalStatus = "processing"
	WithdrawalCompleted  WithdrawalStatus = "completed"
	WithdrawalFailed     WithdrawalStatus = "failed"
	WithdrawalRejected   WithdrawalStatus = "rejected"
	WithdrawalCancelled  WithdrawalStatus = "cancelled"
)

var withdrawalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalPending:    {WithdrawalApproved, WithdrawalRejected, WithdrawalCancelled},
	WithdrawalApproved:   {WithdrawalProcessing, WithdrawalFailed},
	WithdrawalProcessing: {WithdrawalCompleted, WithdrawalFailed},
}

// WithdrawalRequest is a user-initiated request to move balance out via
// a gateway disbursement. The balance is reserved (debited) at approval
// time, not at request time, and restored on failure.
type WithdrawalRequest struct {
	ID                string
	AccountID         string
	Amount            decimal.Decimal
	Fee               decimal.Decimal
	NetAmount         decimal.Decimal
	Phone             string
	Status            WithdrawalStatus
	IntentID          *string
	ExternalReference string
	FailureReason     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CompletedAt       *time.Time
}

// WithdrawalStats summarizes an account's withdrawal history.
type WithdrawalStats struct {
	TotalRequested decimal.Decimal
	TotalCompleted decimal.Decimal
	PendingCount   int
	PendingAmount  decimal.Decimal
}

// ValidateTransition checks that moving to next is legal. Invalid
// attempts return an error naming both states; they never silently
// no-op.
func (w *WithdrawalRequest) ValidateTransition(next WithdrawalStatus) error {
	for _, allowed := range withdrawalTransitions[w.Status] {
		if allowed == next {
			return nil
		}
	}
	return &InvalidTransitionError{
		Entity:    "withdrawal",
		Current:   string(w.Status),
		Attempted: string(next),
	}
}
