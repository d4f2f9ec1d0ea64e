package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegistrationState tracks whether an account has paid its one-time
// registration fee.
type RegistrationState string

const (
	RegistrationUnpaid  RegistrationState = "unpaid"
	RegistrationPending RegistrationState = "pending"
	RegistrationPaid    RegistrationState = "paid"
)

// Account is a balance holder. Balance and LifetimeEarnings are mutated
// only through the ledger; ReferrerID is set at registration and never
// changes afterwards.
type Account struct {
	ID                string
	Phone             string
	ReferrerID        *string
	Staff             bool
	Balance           decimal.Decimal
	LifetimeEarnings  decimal.Decimal
	RegistrationState RegistrationState
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ValidateDebit checks that debiting amount would not drive the balance
// below zero.
func (a *Account) ValidateDebit(amount decimal.Decimal) error {
	if a.Balance.Sub(amount).IsNegative() {
		return ErrInsufficientBalance
	}
	return nil
}

// HasReferrer reports whether the account was registered with a
// referral code.
func (a *Account) HasReferrer() bool {
	return a.ReferrerID != nil && *a.ReferrerID != ""
}
