package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/infrastructure/logging"
	"github.com/taskearn/paycore/internal/infrastructure/metrics"
)

// WithdrawalUseCase drives withdrawal requests through their state
// machine: pending -> approved (balance reserved) -> processing
// (disbursement in flight) -> completed or failed (balance restored).
type WithdrawalUseCase struct {
	txManager      TransactionManager
	retrier        Retrier
	accountRepo    AccountRepository
	withdrawalRepo WithdrawalRepository
	intentRepo     IntentRepository
	ledger         *LedgerUseCase
	settings       Settings
	gateway        Gateway
	notifier       Notifier
	idGen          IDGenerator
	logger         *logging.Logger
	metrics        *metrics.Metrics
}

// NewWithdrawalUseCase creates a new WithdrawalUseCase.
func NewWithdrawalUseCase(
	txManager TransactionManager,
	retrier Retrier,
	accountRepo AccountRepository,
	withdrawalRepo WithdrawalRepository,
	intentRepo IntentRepository,
	ledger *LedgerUseCase,
	settings Settings,
	gateway Gateway,
	notifier Notifier,
	idGen IDGenerator,
	logger *logging.Logger,
	m *metrics.Metrics,
) *WithdrawalUseCase {
	return &WithdrawalUseCase{
		txManager:      txManager,
		retrier:        retrier,
		accountRepo:    accountRepo,
		withdrawalRepo: withdrawalRepo,
		intentRepo:     intentRepo,
		ledger:         ledger,
		settings:       settings,
		gateway:        gateway,
		notifier:       notifier,
		idGen:          idGen,
		logger:         logger,
		metrics:        m,
	}
}

// CreateWithdrawalInput describes a new cash-out request. Phone is
// optional; the account's registered number is used when empty.
type CreateWithdrawalInput struct {
	AccountID string
	Amount    decimal.Decimal
	Phone     string
}

// Create validates a withdrawal request against the configured limits
// and the account's balance and records it as pending. Nothing is
// reserved until approval.
func (uc *WithdrawalUseCase) Create(ctx context.Context, input CreateWithdrawalInput) (*domain.WithdrawalRequest, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}

	min, max, err := uc.settings.WithdrawalLimits(ctx)
	if err != nil {
		return nil, err
	}

	if input.Amount.LessThan(min) {
		return nil, domain.ErrAmountBelowMinimum
	}

	if input.Amount.GreaterThan(max) {
		return nil, domain.ErrAmountAboveMaximum
	}

	account, err := uc.accountRepo.GetByID(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}

	phone := account.Phone
	if input.Phone != "" {
		if !domain.ValidPhone(input.Phone) {
			return nil, domain.ErrInvalidPhone
		}

		phone = domain.FormatPhone(input.Phone)
	}

	fee, err := uc.settings.WithdrawalFee(ctx, input.Amount)
	if err != nil {
		return nil, err
	}

	if account.Balance.LessThan(input.Amount.Add(fee)) {
		return nil, domain.ErrInsufficientBalance
	}

	now := time.Now().UTC()
	withdrawal := &domain.WithdrawalRequest{
		ID:        uc.idGen.Generate(),
		AccountID: account.ID,
		Amount:    input.Amount,
		Fee:       fee,
		NetAmount: input.Amount.Sub(fee),
		Phone:     phone,
		Status:    domain.WithdrawalPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.withdrawalRepo.Create(ctx, withdrawal); err != nil {
		return nil, err
	}

	uc.logger.InfoCtx(ctx, "withdrawal requested",
		"withdrawal_id", withdrawal.ID,
		"account_id", account.ID,
		"amount", withdrawal.Amount.String(),
		"fee", withdrawal.Fee.String(),
	)
	uc.transition(domain.WithdrawalPending)

	uc.notify(ctx, withdrawal, domain.StatusPending, "withdrawal request received")

	return withdrawal, nil
}

// Approve moves a pending withdrawal to approved and reserves the
// amount by debiting the wallet. The withdrawal id is the idempotency
// key, so a retried approval cannot debit twice.
func (uc *WithdrawalUseCase) Approve(ctx context.Context, withdrawalID string) (*domain.WithdrawalRequest, error) {
	withdrawal, err := uc.mutate(ctx, withdrawalID, func(txCtx context.Context, tx Transaction, w *domain.WithdrawalRequest, now time.Time) error {
		if err := w.ValidateTransition(domain.WithdrawalApproved); err != nil {
			return err
		}

		if _, _, err := uc.ledger.ApplyTx(txCtx, tx, ApplyEntryInput{
			AccountID:      w.AccountID,
			Kind:           domain.EntryWithdrawal,
			Amount:         w.Amount.Neg(),
			IdempotencyKey: w.ID,
			Metadata:       map[string]any{"withdrawal_id": w.ID},
		}); err != nil {
			return err
		}

		w.Status = domain.WithdrawalApproved
		w.UpdatedAt = now

		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.InfoCtx(ctx, "withdrawal approved",
		"withdrawal_id", withdrawal.ID,
		"amount", withdrawal.Amount.String(),
	)

	return withdrawal, nil
}

// Reject declines a pending withdrawal. Nothing was reserved yet, so no
// balance moves.
func (uc *WithdrawalUseCase) Reject(ctx context.Context, withdrawalID, reason string) (*domain.WithdrawalRequest, error) {
	withdrawal, err := uc.mutate(ctx, withdrawalID, func(txCtx context.Context, tx Transaction, w *domain.WithdrawalRequest, now time.Time) error {
		if err := w.ValidateTransition(domain.WithdrawalRejected); err != nil {
			return err
		}

		w.Status = domain.WithdrawalRejected
		w.FailureReason = reason
		w.UpdatedAt = now

		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.notify(ctx, withdrawal, domain.StatusFailed, "withdrawal rejected: "+reason)

	return withdrawal, nil
}

// Cancel withdraws a pending request at the owner's initiative.
func (uc *WithdrawalUseCase) Cancel(ctx context.Context, withdrawalID string) (*domain.WithdrawalRequest, error) {
	return uc.mutate(ctx, withdrawalID, func(txCtx context.Context, tx Transaction, w *domain.WithdrawalRequest, now time.Time) error {
		if err := w.ValidateTransition(domain.WithdrawalCancelled); err != nil {
			return err
		}

		w.Status = domain.WithdrawalCancelled
		w.UpdatedAt = now

		return nil
	})
}

// Process sends an approved withdrawal to the gateway. The withdrawal
// moves to processing with a linked disbursement intent before the
// gateway is called; a synchronous rejection fails the withdrawal and
// restores the reserved amount immediately. The terminal outcome of an
// accepted request arrives through the disbursement callback.
func (uc *WithdrawalUseCase) Process(ctx context.Context, withdrawalID string) (*domain.WithdrawalRequest, error) {
	var intent *domain.PaymentIntent

	withdrawal, err := uc.mutate(ctx, withdrawalID, func(txCtx context.Context, tx Transaction, w *domain.WithdrawalRequest, now time.Time) error {
		if err := w.ValidateTransition(domain.WithdrawalProcessing); err != nil {
			return err
		}

		intent = &domain.PaymentIntent{
			ID:           uc.idGen.Generate(),
			Direction:    domain.DirectionDisbursement,
			Purpose:      domain.PurposeWithdrawal,
			AccountID:    w.AccountID,
			WithdrawalID: &w.ID,
			Amount:       w.NetAmount,
			Phone:        w.Phone,
			Status:       domain.IntentInitiated,
			CreatedAt:    now,
		}

		if err := uc.intentRepo.Create(txCtx, intent); err != nil {
			return err
		}

		w.Status = domain.WithdrawalProcessing
		w.IntentID = &intent.ID
		w.UpdatedAt = now

		return nil
	})
	if err != nil {
		return nil, err
	}

	result, err := uc.gateway.InitiateDisbursement(ctx, withdrawal.Phone, withdrawal.NetAmount, withdrawal.ID)
	if err != nil {
		return uc.failSync(ctx, withdrawal, intent, err)
	}

	if err := uc.intentRepo.AttachCorrelationID(ctx, intent.ID, result.CorrelationID, result.Raw, time.Now().UTC()); err != nil {
		return nil, err
	}

	uc.logger.InfoCtx(ctx, "disbursement initiated",
		"withdrawal_id", withdrawal.ID,
		"intent_id", intent.ID,
		"correlation_id", result.CorrelationID,
		"net_amount", withdrawal.NetAmount.String(),
	)

	uc.notify(ctx, withdrawal, domain.StatusPending, "payout in progress")

	return withdrawal, nil
}

// failSync handles a gateway rejection that arrives on the initiating
// request itself: the intent is failed, the reserved amount refunded,
// and the withdrawal marked failed, all in one transaction. The refund
// key is shared with the callback and sweep paths.
func (uc *WithdrawalUseCase) failSync(ctx context.Context, withdrawal *domain.WithdrawalRequest, intent *domain.PaymentIntent, gatewayErr error) (*domain.WithdrawalRequest, error) {
	uc.logger.ErrorCtx(ctx, "disbursement rejected by gateway",
		"withdrawal_id", withdrawal.ID,
		"intent_id", intent.ID,
		"error", gatewayErr,
	)

	failed, err := uc.mutate(ctx, withdrawal.ID, func(txCtx context.Context, tx Transaction, w *domain.WithdrawalRequest, now time.Time) error {
		if err := uc.intentRepo.Finalize(txCtx, tx, intent.ID, domain.IntentFailed, nil, now); err != nil {
			return err
		}

		if _, _, err := uc.ledger.ApplyTx(txCtx, tx, ApplyEntryInput{
			AccountID:      w.AccountID,
			Kind:           domain.EntryRefund,
			Amount:         w.Amount,
			IdempotencyKey: w.ID + ":refund",
			Metadata:       map[string]any{"withdrawal_id": w.ID},
		}); err != nil {
			return err
		}

		w.Status = domain.WithdrawalFailed
		w.FailureReason = gatewayErr.Error()
		w.UpdatedAt = now

		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.notify(ctx, failed, domain.StatusFailed, "payout could not be sent; balance restored")

	return failed, gatewayErr
}

// Get returns one withdrawal request.
func (uc *WithdrawalUseCase) Get(ctx context.Context, withdrawalID string) (*domain.WithdrawalRequest, error) {
	return uc.withdrawalRepo.GetByID(ctx, withdrawalID)
}

// List returns an account's withdrawal history, newest first.
func (uc *WithdrawalUseCase) List(ctx context.Context, accountID string, limit, offset int) ([]*domain.WithdrawalRequest, error) {
	if limit <= 0 {
		limit = 20
	}

	if limit > 100 {
		limit = 100
	}

	return uc.withdrawalRepo.ListByAccount(ctx, accountID, limit, offset)
}

// Stats summarizes an account's withdrawal history.
func (uc *WithdrawalUseCase) Stats(ctx context.Context, accountID string) (*domain.WithdrawalStats, error) {
	return uc.withdrawalRepo.StatsByAccount(ctx, accountID)
}

// mutate locks the withdrawal row, applies fn, and persists the result,
// all under the retrier.
func (uc *WithdrawalUseCase) mutate(ctx context.Context, withdrawalID string, fn func(context.Context, Transaction, *domain.WithdrawalRequest, time.Time) error) (*domain.WithdrawalRequest, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	var withdrawal *domain.WithdrawalRequest

	err := uc.retrier.Retry(txCtx, func() error {
		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		withdrawal, err = uc.withdrawalRepo.GetByIDForUpdate(txCtx, tx, withdrawalID)
		if err != nil {
			return err
		}

		if err := fn(txCtx, tx, withdrawal, time.Now().UTC()); err != nil {
			return err
		}

		if err := uc.withdrawalRepo.Update(txCtx, tx, withdrawal); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
	if err != nil {
		return nil, err
	}

	uc.transition(withdrawal.Status)

	return withdrawal, nil
}

func (uc *WithdrawalUseCase) transition(to domain.WithdrawalStatus) {
	if uc.metrics != nil {
		uc.metrics.WithdrawalTransitions.WithLabelValues(string(to)).Inc()
	}
}

func (uc *WithdrawalUseCase) notify(ctx context.Context, withdrawal *domain.WithdrawalRequest, status domain.PublicStatus, message string) {
	if uc.notifier == nil {
		return
	}

	event := domain.StatusEvent{
		AccountID: withdrawal.AccountID,
		Subject:   domain.SubjectWithdrawal,
		SubjectID: withdrawal.ID,
		Status:    status,
		Message:   message,
		At:        time.Now().UTC(),
	}

	if err := uc.notifier.Publish(ctx, event); err != nil {
		uc.logger.WarnCtx(ctx, "status event publish failed",
			"subject_id", event.SubjectID,
			"error", err,
		)
	}
}
