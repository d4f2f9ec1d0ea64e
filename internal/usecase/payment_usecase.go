package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/infrastructure/logging"
	"github.com/taskearn/paycore/internal/infrastructure/metrics"
)

// PaymentUseCase owns the outbound side of the settlement flow:
// account registration, the registration-fee collection, and task
// payout crediting.
type PaymentUseCase struct {
	txManager   TransactionManager
	retrier     Retrier
	accountRepo AccountRepository
	intentRepo  IntentRepository
	ledger      *LedgerUseCase
	commissions *CommissionUseCase
	settings    Settings
	gateway     Gateway
	notifier    Notifier
	idGen       IDGenerator
	logger      *logging.Logger
	metrics     *metrics.Metrics
}

// NewPaymentUseCase creates a new PaymentUseCase.
func NewPaymentUseCase(
	txManager TransactionManager,
	retrier Retrier,
	accountRepo AccountRepository,
	intentRepo IntentRepository,
	ledger *LedgerUseCase,
	commissions *CommissionUseCase,
	settings Settings,
	gateway Gateway,
	notifier Notifier,
	idGen IDGenerator,
	logger *logging.Logger,
	m *metrics.Metrics,
) *PaymentUseCase {
	return &PaymentUseCase{
		txManager:   txManager,
		retrier:     retrier,
		accountRepo: accountRepo,
		intentRepo:  intentRepo,
		ledger:      ledger,
		commissions: commissions,
		settings:    settings,
		gateway:     gateway,
		notifier:    notifier,
		idGen:       idGen,
		logger:      logger,
		metrics:     m,
	}
}

// RegisterAccountInput creates a new, unpaid account. The referrer is
// bound here, at registration time, and never changes afterwards.
type RegisterAccountInput struct {
	Phone      string
	ReferrerID *string
	Staff      bool
}

// RegisterAccount creates an account in the unpaid registration state.
func (uc *PaymentUseCase) RegisterAccount(ctx context.Context, input RegisterAccountInput) (*domain.Account, error) {
	if !domain.ValidPhone(input.Phone) {
		return nil, domain.ErrInvalidPhone
	}

	if input.ReferrerID != nil && *input.ReferrerID != "" {
		if _, err := uc.accountRepo.GetByID(ctx, *input.ReferrerID); err != nil {
			return nil, fmt.Errorf("referrer: %w", err)
		}
	} else {
		input.ReferrerID = nil
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:                uc.idGen.Generate(),
		Phone:             domain.FormatPhone(input.Phone),
		ReferrerID:        input.ReferrerID,
		Staff:             input.Staff,
		Balance:           decimal.Zero,
		LifetimeEarnings:  decimal.Zero,
		RegistrationState: domain.RegistrationUnpaid,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := uc.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

// InitiateRegistrationCollection starts the registration-fee charge for
// an unpaid account: a payment intent is persisted, the gateway charge
// is requested, and the gateway's correlation id is attached once the
// request is accepted.
func (uc *PaymentUseCase) InitiateRegistrationCollection(ctx context.Context, accountID string) (*domain.PaymentIntent, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if account.RegistrationState == domain.RegistrationPaid {
		return nil, domain.ErrAlreadyPaid
	}

	fee, err := uc.settings.RegistrationFee(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	intent := &domain.PaymentIntent{
		ID:        uc.idGen.Generate(),
		Direction: domain.DirectionCollection,
		Purpose:   domain.PurposeRegistration,
		AccountID: account.ID,
		Amount:    fee,
		Phone:     account.Phone,
		Status:    domain.IntentInitiated,
		CreatedAt: now,
	}

	if err := uc.intentRepo.Create(ctx, intent); err != nil {
		return nil, err
	}

	result, err := uc.gateway.InitiateCollection(ctx, account.Phone, fee, account.ID, "Registration fee")
	if err != nil {
		finalizedAt := time.Now().UTC()
		if markErr := uc.intentRepo.MarkFailed(ctx, intent.ID, nil, finalizedAt); markErr != nil {
			uc.logger.ErrorCtx(ctx, "failed to mark intent failed after gateway error",
				"intent_id", intent.ID,
				"error", markErr,
			)
		}

		return nil, err
	}

	if err := uc.intentRepo.AttachCorrelationID(ctx, intent.ID, result.CorrelationID, result.Raw, time.Now().UTC()); err != nil {
		return nil, err
	}

	intent.CorrelationID = result.CorrelationID
	intent.Status = domain.IntentPending
	intent.RawResponse = result.Raw

	if err := uc.setRegistrationState(ctx, account.ID, domain.RegistrationPending); err != nil {
		return nil, err
	}

	uc.logger.InfoCtx(ctx, "registration collection initiated",
		"intent_id", intent.ID,
		"correlation_id", intent.CorrelationID,
		"amount", fee.String(),
	)

	uc.notify(ctx, domain.StatusEvent{
		AccountID: account.ID,
		Subject:   domain.SubjectCollection,
		SubjectID: intent.CorrelationID,
		Status:    domain.StatusPending,
		Message:   "payment request sent to your phone",
		At:        time.Now().UTC(),
	})

	return intent, nil
}

// CreditTaskPayout credits a completed task through the ledger, keyed
// by the task reference, and evaluates the task commission. Replayed
// payouts return the original entry and create nothing new.
func (uc *PaymentUseCase) CreditTaskPayout(ctx context.Context, accountID string, amount decimal.Decimal, taskRef string) (*domain.LedgerEntry, *domain.Commission, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, domain.ErrInvalidAmount
	}

	entry, applied, err := uc.ledger.Apply(ctx, ApplyEntryInput{
		AccountID:      accountID,
		Kind:           domain.EntryTaskPayout,
		Amount:         amount,
		IdempotencyKey: "task:" + taskRef,
		Metadata:       map[string]any{"task_ref": taskRef},
	})
	if err != nil {
		return nil, nil, err
	}

	if !applied {
		return entry, nil, nil
	}

	commission, err := uc.commissions.EvaluateAndSettle(ctx, EvaluateCommissionInput{
		SourceAccountID: accountID,
		Kind:            domain.CommissionTask,
		TriggerAmount:   amount,
		SourceEventID:   entry.ID,
	})
	if err != nil {
		// The payout itself stands; the commission can be recovered by
		// a later settlement pass.
		uc.logger.ErrorCtx(ctx, "task commission evaluation failed",
			"account_id", accountID,
			"entry_id", entry.ID,
			"error", err,
		)
	}

	return entry, commission, nil
}

// GetAccount returns one account.
func (uc *PaymentUseCase) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, accountID)
}

func (uc *PaymentUseCase) setRegistrationState(ctx context.Context, accountID string, state domain.RegistrationState) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	return uc.retrier.Retry(txCtx, func() error {
		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		if err := uc.accountRepo.SetRegistrationState(txCtx, tx, accountID, state, time.Now().UTC()); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
}

func (uc *PaymentUseCase) notify(ctx context.Context, event domain.StatusEvent) {
	if uc.notifier == nil {
		return
	}

	if err := uc.notifier.Publish(ctx, event); err != nil {
		uc.logger.WarnCtx(ctx, "status event publish failed",
			"subject_id", event.SubjectID,
			"error", err,
		)
	}
}
