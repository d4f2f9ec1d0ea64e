package domain

import (
	"errors"
	"fmt"
)

var (
	// Account errors
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadyPaid         = errors.New("registration already paid")
	ErrInvalidPhone        = errors.New("invalid phone number")

	// Ledger errors
	ErrInvalidAmount = errors.New("amount must be positive")

	// PaymentIntent errors
	ErrIntentNotFound         = errors.New("payment intent not found")
	ErrDuplicateCorrelationID = errors.New("intent already has a different correlation id")

	// Gateway errors
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected the request")

	// Commission errors
	ErrCommissionNotFound = errors.New("commission not found")

	// Withdrawal errors
	ErrWithdrawalNotFound = errors.New("withdrawal request not found")
	ErrAmountBelowMinimum = errors.New("amount below minimum withdrawal")
	ErrAmountAboveMaximum = errors.New("amount above maximum withdrawal")

	// Settings errors
	ErrSettingNotFound = errors.New("setting not found")
)

// InvalidTransitionError reports a state machine misuse. It names the
// current and attempted state so the caller can see exactly what was
// rejected.
type InvalidTransitionError struct {
	Entity    string
	Current   string
	Attempted string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition: %s -> %s", e.Entity, e.Current, e.Attempted)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}
