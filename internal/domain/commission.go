package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionKind names the referred-account event that earned the
// commission.
type CommissionKind string

const (
	CommissionRegistration CommissionKind = "registration"
	CommissionTask         CommissionKind = "task"
)

// Commission is a referral reward. Rate and Amount are captured at
// creation time so a later rate change cannot alter an unsettled
// commission. At most one registration commission exists per
// (referrer, source account) pair.
type Commission struct {
	ID              string
	ReferrerID      string
	SourceAccountID string
	SourceEventID   string
	Kind            CommissionKind
	Rate            decimal.Decimal
	SourceAmount    decimal.Decimal
	Amount          decimal.Decimal
	Settled         bool
	CreatedAt       time.Time
	SettledAt       *time.Time
}

// CommissionStats summarizes a referrer's commission history.
type CommissionStats struct {
	TotalCount    int
	SettledCount  int
	PendingCount  int
	SettledAmount decimal.Decimal
	PendingAmount decimal.Decimal
}
