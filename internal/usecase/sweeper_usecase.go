package usecase

import (
	"context"
	"time"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/infrastructure/logging"
	"github.com/taskearn/paycore/internal/infrastructure/metrics"
)

// SweepUseCase times out payment intents whose callback never arrived.
// Collections simply expire. Disbursements are confirmed against the
// gateway first, because money may have left the till even though the
// callback was lost; the balance is only restored once the gateway does
// not report the payout as completed.
type SweepUseCase struct {
	txManager      TransactionManager
	retrier        Retrier
	accountRepo    AccountRepository
	intentRepo     IntentRepository
	withdrawalRepo WithdrawalRepository
	ledger         *LedgerUseCase
	gateway        Gateway
	notifier       Notifier
	logger         *logging.Logger
	metrics        *metrics.Metrics

	ttl      time.Duration
	interval time.Duration
}

// NewSweepUseCase creates a new SweepUseCase. ttl is how long an intent
// may sit pending; interval is the pause between background passes.
func NewSweepUseCase(
	txManager TransactionManager,
	retrier Retrier,
	accountRepo AccountRepository,
	intentRepo IntentRepository,
	withdrawalRepo WithdrawalRepository,
	ledger *LedgerUseCase,
	gateway Gateway,
	notifier Notifier,
	logger *logging.Logger,
	m *metrics.Metrics,
	ttl, interval time.Duration,
) *SweepUseCase {
	if ttl <= 0 {
		ttl = DefaultPendingIntentTTL
	}

	if interval <= 0 {
		interval = time.Minute
	}

	return &SweepUseCase{
		txManager:      txManager,
		retrier:        retrier,
		accountRepo:    accountRepo,
		intentRepo:     intentRepo,
		withdrawalRepo: withdrawalRepo,
		ledger:         ledger,
		gateway:        gateway,
		notifier:       notifier,
		logger:         logger,
		metrics:        m,
		ttl:            ttl,
		interval:       interval,
	}
}

// SweepResult summarizes one pass.
type SweepResult struct {
	Examined  int
	TimedOut  int
	Completed int
	Skipped   int
}

// Start runs the sweep loop until ctx is cancelled.
func (uc *SweepUseCase) Start(ctx context.Context) {
	uc.logger.Info("intent sweep started",
		"ttl", uc.ttl.String(),
		"interval", uc.interval.String(),
	)

	ticker := time.NewTicker(uc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			uc.logger.Info("intent sweep stopped")

			return
		case <-ticker.C:
			if _, err := uc.SweepOnce(ctx); err != nil {
				uc.logger.ErrorCtx(ctx, "sweep pass failed", "error", err)
			}
		}
	}
}

// SweepOnce expires one batch of overdue pending intents. Each intent
// is handled in its own transaction; a late callback that lands first
// wins and the sweep steps aside.
func (uc *SweepUseCase) SweepOnce(ctx context.Context) (*SweepResult, error) {
	cutoff := time.Now().UTC().Add(-uc.ttl)

	overdue, err := uc.intentRepo.ListPendingBefore(ctx, cutoff, SweepBatchSize)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Examined: len(overdue)}

	for _, intent := range overdue {
		var err error
		switch intent.Direction {
		case domain.DirectionDisbursement:
			err = uc.sweepDisbursement(ctx, intent, result)
		default:
			err = uc.sweepCollection(ctx, intent, result)
		}

		if err != nil {
			uc.logger.ErrorCtx(ctx, "failed to sweep intent",
				"intent_id", intent.ID,
				"direction", string(intent.Direction),
				"error", err,
			)
			result.Skipped++
		}
	}

	if result.TimedOut > 0 || result.Completed > 0 {
		uc.logger.Info("sweep pass finished",
			"examined", result.Examined,
			"timed_out", result.TimedOut,
			"completed", result.Completed,
			"skipped", result.Skipped,
		)
	}

	return result, nil
}

// sweepCollection times out an unconfirmed charge. The account goes
// back to unpaid so the registration can be retried.
func (uc *SweepUseCase) sweepCollection(ctx context.Context, overdue *domain.PaymentIntent, result *SweepResult) error {
	var swept *domain.PaymentIntent

	err := uc.inTx(ctx, func(txCtx context.Context, tx Transaction) error {
		intent, err := uc.intentRepo.GetByIDForUpdate(txCtx, tx, overdue.ID)
		if err != nil {
			return err
		}

		if intent.Status.Terminal() {
			return nil
		}

		now := time.Now().UTC()
		if err := uc.intentRepo.Finalize(txCtx, tx, intent.ID, domain.IntentTimedOut, nil, now); err != nil {
			return err
		}

		if intent.Purpose == domain.PurposeRegistration {
			if err := uc.accountRepo.SetRegistrationState(txCtx, tx, intent.AccountID, domain.RegistrationUnpaid, now); err != nil {
				return err
			}
		}

		swept = intent

		return nil
	})
	if err != nil {
		return err
	}

	if swept == nil {
		return nil
	}

	result.TimedOut++
	uc.swept(domain.DirectionCollection)
	uc.logger.InfoCtx(ctx, "collection timed out",
		"intent_id", swept.ID,
		"correlation_id", swept.CorrelationID,
	)

	uc.notify(ctx, domain.StatusEvent{
		AccountID: swept.AccountID,
		Subject:   domain.SubjectCollection,
		SubjectID: swept.CorrelationID,
		Status:    domain.StatusTimeout,
		Message:   "payment was not confirmed in time",
		At:        time.Now().UTC(),
	})

	return nil
}

// sweepDisbursement resolves an overdue payout. The gateway is asked
// for the authoritative status before any money moves: a completed
// payout is settled as a success, anything else is timed out with the
// reserved amount refunded. A gateway that cannot answer leaves the
// intent for the next pass.
func (uc *SweepUseCase) sweepDisbursement(ctx context.Context, overdue *domain.PaymentIntent, result *SweepResult) error {
	status, raw, err := uc.gateway.QueryStatus(ctx, overdue.CorrelationID)
	if err != nil {
		uc.logger.WarnCtx(ctx, "status query failed, deferring sweep",
			"intent_id", overdue.ID,
			"correlation_id", overdue.CorrelationID,
			"error", err,
		)
		result.Skipped++

		return nil
	}

	confirmed := status == GatewayStatusCompleted

	var (
		swept      *domain.PaymentIntent
		withdrawal *domain.WithdrawalRequest
	)

	err = uc.inTx(ctx, func(txCtx context.Context, tx Transaction) error {
		intent, err := uc.intentRepo.GetByIDForUpdate(txCtx, tx, overdue.ID)
		if err != nil {
			return err
		}

		if intent.Status.Terminal() {
			return nil
		}

		now := time.Now().UTC()
		finalStatus := domain.IntentTimedOut
		if confirmed {
			finalStatus = domain.IntentCompleted
		}

		if err := uc.intentRepo.Finalize(txCtx, tx, intent.ID, finalStatus, raw, now); err != nil {
			return err
		}

		if intent.WithdrawalID != nil {
			withdrawal, err = uc.withdrawalRepo.GetByIDForUpdate(txCtx, tx, *intent.WithdrawalID)
			if err != nil {
				return err
			}

			if confirmed {
				withdrawal.Status = domain.WithdrawalCompleted
				withdrawal.CompletedAt = &now
			} else {
				if _, _, err := uc.ledger.ApplyTx(txCtx, tx, ApplyEntryInput{
					AccountID:      withdrawal.AccountID,
					Kind:           domain.EntryRefund,
					Amount:         withdrawal.Amount,
					IdempotencyKey: withdrawal.ID + ":refund",
					Metadata:       map[string]any{"withdrawal_id": withdrawal.ID},
				}); err != nil {
					return err
				}

				withdrawal.Status = domain.WithdrawalFailed
				withdrawal.FailureReason = "payout not confirmed before timeout"
			}

			withdrawal.UpdatedAt = now
			if err := uc.withdrawalRepo.Update(txCtx, tx, withdrawal); err != nil {
				return err
			}
		}

		swept = intent

		return nil
	})
	if err != nil {
		return err
	}

	if swept == nil {
		return nil
	}

	if confirmed {
		result.Completed++
	} else {
		result.TimedOut++
	}
	uc.swept(domain.DirectionDisbursement)

	uc.logger.InfoCtx(ctx, "disbursement swept",
		"intent_id", swept.ID,
		"correlation_id", swept.CorrelationID,
		"gateway_status", string(status),
		"confirmed", confirmed,
	)

	if withdrawal != nil {
		publicStatus := domain.StatusTimeout
		message := "payout was not confirmed in time; balance restored"
		if confirmed {
			publicStatus = domain.StatusSuccess
			message = "withdrawal completed"
		}

		uc.notify(ctx, domain.StatusEvent{
			AccountID: withdrawal.AccountID,
			Subject:   domain.SubjectWithdrawal,
			SubjectID: withdrawal.ID,
			Status:    publicStatus,
			Message:   message,
			At:        time.Now().UTC(),
		})
	}

	return nil
}

func (uc *SweepUseCase) inTx(ctx context.Context, fn func(context.Context, Transaction) error) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	return uc.retrier.Retry(txCtx, func() error {
		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		if err := fn(txCtx, tx); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
}

func (uc *SweepUseCase) swept(direction domain.IntentDirection) {
	if uc.metrics != nil {
		uc.metrics.IntentsSwept.WithLabelValues(string(direction)).Inc()
	}
}

func (uc *SweepUseCase) notify(ctx context.Context, event domain.StatusEvent) {
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
