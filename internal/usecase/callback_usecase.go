package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/infrastructure/logging"
	"github.com/taskearn/paycore/internal/infrastructure/metrics"
)

// CallbackOutcome classifies how a gateway callback was absorbed.
type CallbackOutcome string

const (
	// OutcomeProcessed means the callback finalized the intent and its
	// side effects were applied.
	OutcomeProcessed CallbackOutcome = "processed"
	// OutcomeAlreadyHandled means the intent was already terminal; the
	// callback was a replay and changed nothing.
	OutcomeAlreadyHandled CallbackOutcome = "already_handled"
	// OutcomeDropped means the callback matched no known intent.
	OutcomeDropped CallbackOutcome = "dropped"
)

// CallbackUseCase reconciles asynchronous gateway results against
// payment intents. Every callback is absorbed exactly once: the intent
// row is locked, finalization and its ledger side effects commit
// atomically, and replays or unknown correlation ids are reported
// without touching any balance.
type CallbackUseCase struct {
	txManager      TransactionManager
	retrier        Retrier
	accountRepo    AccountRepository
	intentRepo     IntentRepository
	withdrawalRepo WithdrawalRepository
	ledger         *LedgerUseCase
	commissions    *CommissionUseCase
	notifier       Notifier
	logger         *logging.Logger
	metrics        *metrics.Metrics
}

// NewCallbackUseCase creates a new CallbackUseCase.
func NewCallbackUseCase(
	txManager TransactionManager,
	retrier Retrier,
	accountRepo AccountRepository,
	intentRepo IntentRepository,
	withdrawalRepo WithdrawalRepository,
	ledger *LedgerUseCase,
	commissions *CommissionUseCase,
	notifier Notifier,
	logger *logging.Logger,
	m *metrics.Metrics,
) *CallbackUseCase {
	return &CallbackUseCase{
		txManager:      txManager,
		retrier:        retrier,
		accountRepo:    accountRepo,
		intentRepo:     intentRepo,
		withdrawalRepo: withdrawalRepo,
		ledger:         ledger,
		commissions:    commissions,
		notifier:       notifier,
		logger:         logger,
		metrics:        m,
	}
}

// CollectionCallbackInput carries the gateway's verdict on a collection.
type CollectionCallbackInput struct {
	CorrelationID string
	ResultCode    int
	ResultDesc    string
	Amount        decimal.Decimal
	Receipt       string
	Raw           json.RawMessage
}

// HandleCollection finalizes a collection intent from its callback. On
// success the registration fee is recorded in the ledger, the account
// flips to paid, and the referral commission is evaluated. On failure
// the account returns to unpaid so the charge can be retried.
func (uc *CallbackUseCase) HandleCollection(ctx context.Context, input CollectionCallbackInput) (CallbackOutcome, error) {
	start := time.Now()
	uc.received("collection")
	defer uc.observe("collection", start)

	success := input.ResultCode == 0

	var (
		outcome CallbackOutcome
		intent  *domain.PaymentIntent
	)

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	err := uc.retrier.Retry(txCtx, func() error {
		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		intent, err = uc.intentRepo.GetByCorrelationIDForUpdate(txCtx, tx, input.CorrelationID)
		if err != nil {
			if errors.Is(err, domain.ErrIntentNotFound) {
				outcome = OutcomeDropped

				return nil
			}

			return err
		}

		if intent.Status.Terminal() {
			outcome = OutcomeAlreadyHandled

			return nil
		}

		now := time.Now().UTC()
		status := domain.IntentFailed
		if success {
			status = domain.IntentCompleted
		}

		if err := uc.intentRepo.Finalize(txCtx, tx, intent.ID, status, input.Raw, now); err != nil {
			return err
		}

		if success {
			if !input.Amount.IsZero() && !input.Amount.Equal(intent.Amount) {
				uc.logger.WarnCtx(txCtx, "callback amount differs from intent",
					"intent_id", intent.ID,
					"intent_amount", intent.Amount.String(),
					"callback_amount", input.Amount.String(),
				)
			}

			// The fee goes to the platform, not the wallet: a zero-delta
			// entry records the payment without crediting the balance.
			if _, _, err := uc.ledger.ApplyTx(txCtx, tx, ApplyEntryInput{
				AccountID:      intent.AccountID,
				Kind:           domain.EntryRegistrationFee,
				Amount:         decimal.Zero,
				IdempotencyKey: intent.ID,
				Metadata: map[string]any{
					"gross_amount": intent.Amount.String(),
					"receipt":      input.Receipt,
				},
			}); err != nil {
				return err
			}

			if err := uc.accountRepo.SetRegistrationState(txCtx, tx, intent.AccountID, domain.RegistrationPaid, now); err != nil {
				return err
			}
		} else {
			// Back to unpaid so the account can retry the charge.
			if err := uc.accountRepo.SetRegistrationState(txCtx, tx, intent.AccountID, domain.RegistrationUnpaid, now); err != nil {
				return err
			}
		}

		outcome = OutcomeProcessed

		return tx.Commit(txCtx)
	})
	if err != nil {
		return "", err
	}

	switch outcome {
	case OutcomeDropped:
		uc.logger.WarnCtx(ctx, "collection callback matched no intent",
			"correlation_id", input.CorrelationID,
			"result_code", input.ResultCode,
		)
		uc.dropped("unknown_correlation_id")

		return outcome, nil
	case OutcomeAlreadyHandled:
		uc.logger.InfoCtx(ctx, "collection callback replayed",
			"intent_id", intent.ID,
			"correlation_id", input.CorrelationID,
		)
		uc.replayed()

		return outcome, nil
	}

	uc.logger.InfoCtx(ctx, "collection finalized",
		"intent_id", intent.ID,
		"correlation_id", input.CorrelationID,
		"result_code", input.ResultCode,
		"success", success,
	)

	if success {
		if _, err := uc.commissions.EvaluateAndSettle(ctx, EvaluateCommissionInput{
			SourceAccountID: intent.AccountID,
			Kind:            domain.CommissionRegistration,
			TriggerAmount:   intent.Amount,
			SourceEventID:   intent.ID,
		}); err != nil {
			// The registration stands either way; the commission can be
			// recovered by a later settlement pass.
			uc.logger.ErrorCtx(ctx, "registration commission evaluation failed",
				"intent_id", intent.ID,
				"error", err,
			)
		}
	}

	uc.notify(ctx, domain.StatusEvent{
		AccountID: intent.AccountID,
		Subject:   domain.SubjectCollection,
		SubjectID: input.CorrelationID,
		Status:    publicStatus(success),
		Message:   domain.ResultMessage(input.ResultCode),
		At:        time.Now().UTC(),
	})

	return outcome, nil
}

// DisbursementCallbackInput carries the gateway's verdict on a payout.
type DisbursementCallbackInput struct {
	CorrelationID string
	ResultCode    int
	ResultDesc    string
	Receipt       string
	Raw           json.RawMessage
}

// HandleDisbursement finalizes a disbursement intent from its callback.
// Success completes the linked withdrawal; failure refunds the reserved
// amount and fails it. The refund shares one idempotency key with the
// sweep path, so the balance is restored at most once.
func (uc *CallbackUseCase) HandleDisbursement(ctx context.Context, input DisbursementCallbackInput) (CallbackOutcome, error) {
	start := time.Now()
	uc.received("disbursement")
	defer uc.observe("disbursement", start)

	success := input.ResultCode == 0

	var (
		outcome    CallbackOutcome
		intent     *domain.PaymentIntent
		withdrawal *domain.WithdrawalRequest
	)

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	err := uc.retrier.Retry(txCtx, func() error {
		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		intent, err = uc.intentRepo.GetByCorrelationIDForUpdate(txCtx, tx, input.CorrelationID)
		if err != nil {
			if errors.Is(err, domain.ErrIntentNotFound) {
				outcome = OutcomeDropped

				return nil
			}

			return err
		}

		if intent.Status.Terminal() {
			outcome = OutcomeAlreadyHandled

			return nil
		}

		now := time.Now().UTC()
		status := domain.IntentFailed
		if success {
			status = domain.IntentCompleted
		}

		if err := uc.intentRepo.Finalize(txCtx, tx, intent.ID, status, input.Raw, now); err != nil {
			return err
		}

		if intent.WithdrawalID == nil {
			uc.logger.ErrorCtx(txCtx, "disbursement intent has no withdrawal",
				"intent_id", intent.ID,
			)
			outcome = OutcomeProcessed

			return tx.Commit(txCtx)
		}

		withdrawal, err = uc.withdrawalRepo.GetByIDForUpdate(txCtx, tx, *intent.WithdrawalID)
		if err != nil {
			return err
		}

		if success {
			if err := withdrawal.ValidateTransition(domain.WithdrawalCompleted); err != nil {
				return err
			}

			withdrawal.Status = domain.WithdrawalCompleted
			withdrawal.ExternalReference = input.Receipt
			withdrawal.CompletedAt = &now
			withdrawal.UpdatedAt = now
		} else {
			if err := uc.refundTx(txCtx, tx, withdrawal); err != nil {
				return err
			}

			withdrawal.Status = domain.WithdrawalFailed
			withdrawal.FailureReason = input.ResultDesc
			withdrawal.UpdatedAt = now
		}

		if err := uc.withdrawalRepo.Update(txCtx, tx, withdrawal); err != nil {
			return err
		}

		uc.transition(withdrawal.Status)
		outcome = OutcomeProcessed

		return tx.Commit(txCtx)
	})
	if err != nil {
		return "", err
	}

	switch outcome {
	case OutcomeDropped:
		uc.logger.WarnCtx(ctx, "disbursement callback matched no intent",
			"correlation_id", input.CorrelationID,
			"result_code", input.ResultCode,
		)
		uc.dropped("unknown_correlation_id")

		return outcome, nil
	case OutcomeAlreadyHandled:
		uc.logger.InfoCtx(ctx, "disbursement callback replayed",
			"intent_id", intent.ID,
			"correlation_id", input.CorrelationID,
		)
		uc.replayed()

		return outcome, nil
	}

	uc.logger.InfoCtx(ctx, "disbursement finalized",
		"intent_id", intent.ID,
		"correlation_id", input.CorrelationID,
		"result_code", input.ResultCode,
		"success", success,
	)

	if withdrawal != nil {
		uc.notify(ctx, domain.StatusEvent{
			AccountID: withdrawal.AccountID,
			Subject:   domain.SubjectWithdrawal,
			SubjectID: withdrawal.ID,
			Status:    publicStatus(success),
			Message:   domain.ResultMessage(input.ResultCode),
			At:        time.Now().UTC(),
		})
	}

	return outcome, nil
}

// refundTx restores a withdrawal's reserved amount. The key is derived
// from the withdrawal id, shared with the timeout sweep, so concurrent
// failure paths collapse into a single credit.
func (uc *CallbackUseCase) refundTx(ctx context.Context, tx Transaction, withdrawal *domain.WithdrawalRequest) error {
	_, _, err := uc.ledger.ApplyTx(ctx, tx, ApplyEntryInput{
		AccountID:      withdrawal.AccountID,
		Kind:           domain.EntryRefund,
		Amount:         withdrawal.Amount,
		IdempotencyKey: withdrawal.ID + ":refund",
		Metadata:       map[string]any{"withdrawal_id": withdrawal.ID},
	})

	return err
}

func publicStatus(success bool) domain.PublicStatus {
	if success {
		return domain.StatusSuccess
	}

	return domain.StatusFailed
}

func (uc *CallbackUseCase) notify(ctx context.Context, event domain.StatusEvent) {
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

func (uc *CallbackUseCase) received(direction string) {
	if uc.metrics != nil {
		uc.metrics.CallbacksReceived.WithLabelValues(direction).Inc()
	}
}

func (uc *CallbackUseCase) observe(direction string, start time.Time) {
	if uc.metrics != nil {
		uc.metrics.CallbackDuration.WithLabelValues(direction).Observe(time.Since(start).Seconds())
	}
}

func (uc *CallbackUseCase) dropped(reason string) {
	if uc.metrics != nil {
		uc.metrics.CallbacksDropped.WithLabelValues(reason).Inc()
	}
}

func (uc *CallbackUseCase) replayed() {
	if uc.metrics != nil {
		uc.metrics.CallbacksReplayed.Inc()
	}
}

func (uc *CallbackUseCase) transition(to domain.WithdrawalStatus) {
	if uc.metrics != nil {
		uc.metrics.WithdrawalTransitions.WithLabelValues(string(to)).Inc()
	}
}
