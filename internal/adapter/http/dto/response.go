package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/taskearn/paycore/internal/domain"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// AccountResponse is the API shape of an account.
type AccountResponse struct {
	ID                string          `json:"id"`
	Phone             string          `json:"phone"`
	ReferrerID        *string         `json:"referrer_id,omitempty"`
	Staff             bool            `json:"staff"`
	Balance           decimal.Decimal `json:"balance"`
	LifetimeEarnings  decimal.Decimal `json:"lifetime_earnings"`
	RegistrationState string          `json:"registration_state"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// AccountFromDomain converts a domain account.
func AccountFromDomain(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:                account.ID,
		Phone:             account.Phone,
		ReferrerID:        account.ReferrerID,
		Staff:             account.Staff,
		Balance:           account.Balance,
		LifetimeEarnings:  account.LifetimeEarnings,
		RegistrationState: string(account.RegistrationState),
		CreatedAt:         account.CreatedAt,
		UpdatedAt:         account.UpdatedAt,
	}
}

// IntentResponse is the API shape of a payment intent.
type IntentResponse struct {
	ID            string          `json:"id"`
	Direction     string          `json:"direction"`
	Purpose       string          `json:"purpose"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	AccountID     string          `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Phone         string          `json:"phone"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	FinalizedAt   *time.Time      `json:"finalized_at,omitempty"`
}

// IntentFromDomain converts a domain payment intent.
func IntentFromDomain(intent *domain.PaymentIntent) IntentResponse {
	return IntentResponse{
		ID:            intent.ID,
		Direction:     string(intent.Direction),
		Purpose:       string(intent.Purpose),
		CorrelationID: intent.CorrelationID,
		AccountID:     intent.AccountID,
		Amount:        intent.Amount,
		Phone:         intent.Phone,
		Status:        string(intent.Status),
		CreatedAt:     intent.CreatedAt,
		FinalizedAt:   intent.FinalizedAt,
	}
}

// EntryResponse is the API shape of a ledger entry.
type EntryResponse struct {
	ID            string          `json:"id"`
	AccountID     string          `json:"account_id"`
	Kind          string          `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// EntryFromDomain converts a domain ledger entry.
func EntryFromDomain(entry *domain.LedgerEntry) EntryResponse {
	return EntryResponse{
		ID:            entry.ID,
		AccountID:     entry.AccountID,
		Kind:          string(entry.Kind),
		Amount:        entry.Amount,
		BalanceBefore: entry.BalanceBefore,
		BalanceAfter:  entry.BalanceAfter,
		Metadata:      entry.Metadata,
		CreatedAt:     entry.CreatedAt,
	}
}

// EntriesFromDomain converts a list of ledger entries.
func EntriesFromDomain(entries []*domain.LedgerEntry) []EntryResponse {
	out := make([]EntryResponse, len(entries))
	for i, e := range entries {
		out[i] = EntryFromDomain(e)
	}
	return out
}

// CommissionResponse is the API shape of a referral commission.
type CommissionResponse struct {
	ID              string          `json:"id"`
	ReferrerID      string          `json:"referrer_id"`
	SourceAccountID string          `json:"source_account_id"`
	Kind            string          `json:"kind"`
	Rate            decimal.Decimal `json:"rate"`
	SourceAmount    decimal.Decimal `json:"source_amount"`
	Amount          decimal.Decimal `json:"amount"`
	Settled         bool            `json:"settled"`
	CreatedAt       time.Time       `json:"created_at"`
	SettledAt       *time.Time      `json:"settled_at,omitempty"`
}

// CommissionFromDomain converts a domain commission.
func CommissionFromDomain(commission *domain.Commission) CommissionResponse {
	return CommissionResponse{
		ID:              commission.ID,
		ReferrerID:      commission.ReferrerID,
		SourceAccountID: commission.SourceAccountID,
		Kind:            string(commission.Kind),
		Rate:            commission.Rate,
		SourceAmount:    commission.SourceAmount,
		Amount:          commission.Amount,
		Settled:         commission.Settled,
		CreatedAt:       commission.CreatedAt,
		SettledAt:       commission.SettledAt,
	}
}

// CommissionsFromDomain converts a list of commissions.
func CommissionsFromDomain(commissions []*domain.Commission) []CommissionResponse {
	out := make([]CommissionResponse, len(commissions))
	for i, c := range commissions {
		out[i] = CommissionFromDomain(c)
	}
	return out
}

// CommissionStatsResponse is the API shape of a referrer's commission
// summary.
type CommissionStatsResponse struct {
	TotalCount    int             `json:"total_count"`
	SettledCount  int             `json:"settled_count"`
	PendingCount  int             `json:"pending_count"`
	SettledAmount decimal.Decimal `json:"settled_amount"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
}

// CommissionStatsFromDomain converts domain commission stats.
func CommissionStatsFromDomain(stats *domain.CommissionStats) CommissionStatsResponse {
	return CommissionStatsResponse{
		TotalCount:    stats.TotalCount,
		SettledCount:  stats.SettledCount,
		PendingCount:  stats.PendingCount,
		SettledAmount: stats.SettledAmount,
		PendingAmount: stats.PendingAmount,
	}
}

// WithdrawalResponse is the API shape of a withdrawal request.
type WithdrawalResponse struct {
	ID                string          `json:"id"`
	AccountID         string          `json:"account_id"`
	Amount            decimal.Decimal `json:"amount"`
	Fee               decimal.Decimal `json:"fee"`
	NetAmount         decimal.Decimal `json:"net_amount"`
	Phone             string          `json:"phone"`
	Status            string          `json:"status"`
	ExternalReference string          `json:"external_reference,omitempty"`
	FailureReason     string          `json:"failure_reason,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
}

// WithdrawalFromDomain converts a domain withdrawal request.
func WithdrawalFromDomain(withdrawal *domain.WithdrawalRequest) WithdrawalResponse {
	return WithdrawalResponse{
		ID:                withdrawal.ID,
		AccountID:         withdrawal.AccountID,
		Amount:            withdrawal.Amount,
		Fee:               withdrawal.Fee,
		NetAmount:         withdrawal.NetAmount,
		Phone:             withdrawal.Phone,
		Status:            string(withdrawal.Status),
		ExternalReference: withdrawal.ExternalReference,
		FailureReason:     withdrawal.FailureReason,
		CreatedAt:         withdrawal.CreatedAt,
		UpdatedAt:         withdrawal.UpdatedAt,
		CompletedAt:       withdrawal.CompletedAt,
	}
}

// WithdrawalsFromDomain converts a list of withdrawal requests.
func WithdrawalsFromDomain(withdrawals []*domain.WithdrawalRequest) []WithdrawalResponse {
	out := make([]WithdrawalResponse, len(withdrawals))
	for i, w := range withdrawals {
		out[i] = WithdrawalFromDomain(w)
	}
	return out
}

// WithdrawalStatsResponse is the API shape of an account's withdrawal
// summary.
type WithdrawalStatsResponse struct {
	TotalRequested decimal.Decimal `json:"total_requested"`
	TotalCompleted decimal.Decimal `json:"total_completed"`
	PendingCount   int             `json:"pending_count"`
	PendingAmount  decimal.Decimal `json:"pending_amount"`
}

// WithdrawalStatsFromDomain converts domain withdrawal stats.
func WithdrawalStatsFromDomain(stats *domain.WithdrawalStats) WithdrawalStatsResponse {
	return WithdrawalStatsResponse{
		TotalRequested: stats.TotalRequested,
		TotalCompleted: stats.TotalCompleted,
		PendingCount:   stats.PendingCount,
		PendingAmount:  stats.PendingAmount,
	}
}

// SettingResponse is the API shape of a dynamic setting.
type SettingResponse struct {
	Key       string    `json:"key"`
	Type      string    `json:"type"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// SettingFromDomain converts a domain setting.
func SettingFromDomain(setting *domain.Setting) SettingResponse {
	return SettingResponse{
		Key:       setting.Key,
		Type:      string(setting.Type),
		Value:     setting.RawValue,
		UpdatedAt: setting.UpdatedAt,
		UpdatedBy: setting.UpdatedBy,
	}
}

// SettingsFromDomain converts a list of settings.
func SettingsFromDomain(settings []*domain.Setting) []SettingResponse {
	out := make([]SettingResponse, len(settings))
	for i, s := range settings {
		out[i] = SettingFromDomain(s)
	}
	return out
}
