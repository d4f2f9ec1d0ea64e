package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	EntryRegistrationFee EntryKind = "registration_fee"
	EntryTaskPayout      EntryKind = "task_payout"
	EntryCommission      EntryKind = "commission"
	EntryWithdrawal      EntryKind = "withdrawal"
	EntryAdjustment      EntryKind = "adjustment"
	EntryRefund          EntryKind = "refund"
	EntryCorrection      EntryKind = "correction"
)

// Earning kinds count toward LifetimeEarnings when they credit the
// balance.
func (k EntryKind) Earning() bool {
	switch k {
	case EntryTaskPayout, EntryCommission:
		return true
	}
	return false
}

// LedgerEntry is one immutable, signed movement against an account
// balance. Entries are never updated or deleted; corrections are new
// entries of kind correction.
type LedgerEntry struct {
	ID             string
	AccountID      string
	Kind           EntryKind
	Amount         decimal.Decimal
	BalanceBefore  decimal.Decimal
	BalanceAfter   decimal.Decimal
	IdempotencyKey string
	Metadata       map[string]any
	CreatedAt      time.Time
}
