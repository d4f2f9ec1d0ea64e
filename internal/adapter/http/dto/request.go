package dto

import (
	"github.com/shopspring/decimal"

	"github.com/taskearn/paycore/internal/usecase"
)

// RegisterAccountRequest creates a new account.
type RegisterAccountRequest struct {
	Phone      string  `json:"phone"`
	ReferrerID *string `json:"referrer_id,omitempty"`
	Staff      bool    `json:"staff,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *RegisterAccountRequest) ToUseCaseInput() usecase.RegisterAccountInput {
	return usecase.RegisterAccountInput{
		Phone:      r.Phone,
		ReferrerID: r.ReferrerID,
		Staff:      r.Staff,
	}
}

// TaskPayoutRequest credits a completed task.
type TaskPayoutRequest struct {
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	TaskRef   string          `json:"task_ref"`
}

// CreateWithdrawalRequest opens a cash-out request.
type CreateWithdrawalRequest struct {
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Phone     string          `json:"phone,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateWithdrawalRequest) ToUseCaseInput() usecase.CreateWithdrawalInput {
	return usecase.CreateWithdrawalInput{
		AccountID: r.AccountID,
		Amount:    r.Amount,
		Phone:     r.Phone,
	}
}

// RejectWithdrawalRequest declines a pending withdrawal.
type RejectWithdrawalRequest struct {
	Reason string `json:"reason"`
}

// UpdateSettingRequest changes one dynamic setting.
type UpdateSettingRequest struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Reason    string `json:"reason"`
	UpdatedBy string `json:"updated_by"`
}
