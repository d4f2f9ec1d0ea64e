package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/infrastructure/logging"
)

// StatusView is the client-facing shape of a payment's progress. It is
// derived from the stores on every poll, so it is authoritative even
// when push delivery is lost.
type StatusView struct {
	Subject     domain.StatusSubject `json:"subject"`
	SubjectID   string               `json:"subject_id"`
	Status      domain.PublicStatus  `json:"status"`
	Purpose     string               `json:"purpose,omitempty"`
	Amount      decimal.Decimal      `json:"amount"`
	Message     string               `json:"message"`
	FinalizedAt *time.Time           `json:"finalized_at,omitempty"`
}

// StatusUseCase answers status polls for intents and withdrawals.
type StatusUseCase struct {
	intentRepo     IntentRepository
	withdrawalRepo WithdrawalRepository
	logger         *logging.Logger
}

// NewStatusUseCase creates a new StatusUseCase.
func NewStatusUseCase(intentRepo IntentRepository, withdrawalRepo WithdrawalRepository, logger *logging.Logger) *StatusUseCase {
	return &StatusUseCase{
		intentRepo:     intentRepo,
		withdrawalRepo: withdrawalRepo,
		logger:         logger,
	}
}

// PollIntent returns the current status of the intent behind a gateway
// correlation id.
func (uc *StatusUseCase) PollIntent(ctx context.Context, correlationID string) (*StatusView, error) {
	intent, err := uc.intentRepo.GetByCorrelationID(ctx, correlationID)
	if err != nil {
		return nil, err
	}

	subject := domain.SubjectCollection
	if intent.Direction == domain.DirectionDisbursement {
		subject = domain.SubjectDisbursement
	}

	status, message := intentPublicStatus(intent.Status)

	return &StatusView{
		Subject:     subject,
		SubjectID:   correlationID,
		Status:      status,
		Purpose:     string(intent.Purpose),
		Amount:      intent.Amount,
		Message:     message,
		FinalizedAt: intent.FinalizedAt,
	}, nil
}

// PollWithdrawal returns the current status of a withdrawal request.
func (uc *StatusUseCase) PollWithdrawal(ctx context.Context, withdrawalID string) (*StatusView, error) {
	withdrawal, err := uc.withdrawalRepo.GetByID(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}

	status, message := withdrawalPublicStatus(withdrawal.Status)
	if withdrawal.FailureReason != "" && status == domain.StatusFailed {
		message = withdrawal.FailureReason
	}

	view := &StatusView{
		Subject:   domain.SubjectWithdrawal,
		SubjectID: withdrawal.ID,
		Status:    status,
		Amount:    withdrawal.Amount,
		Message:   message,
	}
	if withdrawal.CompletedAt != nil {
		view.FinalizedAt = withdrawal.CompletedAt
	}

	return view, nil
}

// AwaitIntent polls an intent at a fixed interval until it reaches a
// terminal state or the attempts are exhausted. Exhaustion is not a
// failure: the view comes back with a timeout status and the intent
// stays pending for the callback or the sweep to finish.
func (uc *StatusUseCase) AwaitIntent(ctx context.Context, correlationID string, interval time.Duration, maxAttempts int) (*StatusView, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultAwaitAttempts
	}

	if interval <= 0 {
		interval = DefaultAwaitInterval
	}

	var view *StatusView

	for attempt := 0; attempt < maxAttempts; attempt++ {
		var err error
		view, err = uc.PollIntent(ctx, correlationID)
		if err != nil {
			return nil, err
		}

		if view.Status != domain.StatusPending {
			return view, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}

	uc.logger.InfoCtx(ctx, "status await exhausted",
		"correlation_id", correlationID,
		"attempts", maxAttempts,
	)

	view.Status = domain.StatusTimeout
	view.Message = "confirmation not received yet; check back shortly"

	return view, nil
}

func intentPublicStatus(status domain.IntentStatus) (domain.PublicStatus, string) {
	switch status {
	case domain.IntentCompleted:
		return domain.StatusSuccess, "payment completed"
	case domain.IntentFailed:
		return domain.StatusFailed, "payment failed"
	case domain.IntentTimedOut:
		return domain.StatusTimeout, "payment was not confirmed in time"
	default:
		return domain.StatusPending, "payment in progress"
	}
}

func withdrawalPublicStatus(status domain.WithdrawalStatus) (domain.PublicStatus, string) {
	switch status {
	case domain.WithdrawalCompleted:
		return domain.StatusSuccess, "withdrawal completed"
	case domain.WithdrawalFailed:
		return domain.StatusFailed, "withdrawal failed"
	case domain.WithdrawalRejected:
		return domain.StatusFailed, "withdrawal rejected"
	case domain.WithdrawalCancelled:
		return domain.StatusFailed, "withdrawal cancelled"
	default:
		return domain.StatusPending, "withdrawal in progress"
	}
}
