package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/infrastructure/logging"
	"github.com/taskearn/paycore/internal/infrastructure/metrics"
)

// CommissionUseCase computes and settles referral commissions for
// qualifying ledger events.
type CommissionUseCase struct {
	txManager      TransactionManager
	retrier        Retrier
	accountRepo    AccountRepository
	commissionRepo CommissionRepository
	ledger         *LedgerUseCase
	settings       Settings
	idGen          IDGenerator
	logger         *logging.Logger
	metrics        *metrics.Metrics
}

// NewCommissionUseCase creates a new CommissionUseCase.
func NewCommissionUseCase(
	txManager TransactionManager,
	retrier Retrier,
	accountRepo AccountRepository,
	commissionRepo CommissionRepository,
	ledger *LedgerUseCase,
	settings Settings,
	idGen IDGenerator,
	logger *logging.Logger,
	m *metrics.Metrics,
) *CommissionUseCase {
	return &CommissionUseCase{
		txManager:      txManager,
		retrier:        retrier,
		accountRepo:    accountRepo,
		commissionRepo: commissionRepo,
		ledger:         ledger,
		settings:       settings,
		idGen:          idGen,
		logger:         logger,
		metrics:        m,
	}
}

// EvaluateCommissionInput identifies the qualifying event.
type EvaluateCommissionInput struct {
	SourceAccountID string
	Kind            domain.CommissionKind
	TriggerAmount   decimal.Decimal
	SourceEventID   string
}

// EvaluateAndSettle creates a commission for the source account's
// referrer, if one is due. It returns (nil, nil) when the account has
// no referrer or the referrer is staff. The commission rate is read
// fresh per call and pinned into the record, so a later rate change
// never alters an already-created commission.
func (uc *CommissionUseCase) EvaluateAndSettle(ctx context.Context, input EvaluateCommissionInput) (*domain.Commission, error) {
	source, err := uc.accountRepo.GetByID(ctx, input.SourceAccountID)
	if err != nil {
		return nil, err
	}

	if !source.HasReferrer() {
		uc.logger.InfoCtx(ctx, "no referrer, skipping commission",
			"source_account_id", input.SourceAccountID,
			"kind", string(input.Kind),
		)
		uc.skip("no_referrer")

		return nil, nil
	}

	referrer, err := uc.accountRepo.GetByID(ctx, *source.ReferrerID)
	if err != nil {
		return nil, err
	}

	// Staff never earn commissions.
	if referrer.Staff {
		uc.logger.InfoCtx(ctx, "staff referrer, skipping commission",
			"source_account_id", input.SourceAccountID,
			"referrer_id", referrer.ID,
		)
		uc.skip("staff_referrer")

		return nil, nil
	}

	rate, err := uc.settings.CommissionRate(ctx)
	if err != nil {
		return nil, err
	}

	autoApprove, err := uc.settings.AutoApproveCommissions(ctx)
	if err != nil {
		return nil, err
	}

	amount := input.TriggerAmount.Mul(rate).Round(2)

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	var commission *domain.Commission

	err = uc.retrier.Retry(txCtx, func() error {
		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		// A referred user registers once; registration commissions are
		// unique per (referrer, source account). Task commissions are
		// unique per source event.
		var existing *domain.Commission
		if input.Kind == domain.CommissionRegistration {
			existing, err = uc.commissionRepo.FindBySource(txCtx, tx, referrer.ID, source.ID, input.Kind)
		} else {
			existing, err = uc.commissionRepo.FindBySourceEvent(txCtx, tx, input.SourceEventID)
		}
		if err != nil {
			return err
		}
		if existing != nil {
			uc.logger.WarnCtx(txCtx, "commission already exists",
				"commission_id", existing.ID,
				"source_account_id", source.ID,
				"kind", string(input.Kind),
			)
			commission = existing

			return tx.Commit(txCtx)
		}

		now := time.Now().UTC()
		commission = &domain.Commission{
			ID:              uc.idGen.Generate(),
			ReferrerID:      referrer.ID,
			SourceAccountID: source.ID,
			SourceEventID:   input.SourceEventID,
			Kind:            input.Kind,
			Rate:            rate,
			SourceAmount:    input.TriggerAmount,
			Amount:          amount,
			CreatedAt:       now,
		}

		if err := uc.commissionRepo.Create(txCtx, tx, commission); err != nil {
			return err
		}

		if uc.metrics != nil {
			uc.metrics.CommissionsCreated.WithLabelValues(string(input.Kind)).Inc()
		}

		if autoApprove {
			if err := uc.settleTx(txCtx, tx, commission, now); err != nil {
				return err
			}
		}

		return tx.Commit(txCtx)
	})
	if err != nil {
		return nil, err
	}

	uc.logger.InfoCtx(ctx, "commission evaluated",
		"commission_id", commission.ID,
		"referrer_id", commission.ReferrerID,
		"amount", commission.Amount.String(),
		"settled", commission.Settled,
	)

	return commission, nil
}

// settleTx folds the commission into the referrer's ledger and marks it
// settled, both inside the caller's transaction. The commission id is
// the idempotency key, so re-settlement replays instead of double
// paying.
func (uc *CommissionUseCase) settleTx(ctx context.Context, tx Transaction, commission *domain.Commission, now time.Time) error {
	_, _, err := uc.ledger.ApplyTx(ctx, tx, ApplyEntryInput{
		AccountID:      commission.ReferrerID,
		Kind:           domain.EntryCommission,
		Amount:         commission.Amount,
		IdempotencyKey: commission.ID,
		Metadata: map[string]any{
			"source_account_id": commission.SourceAccountID,
			"commission_kind":   string(commission.Kind),
		},
	})
	if err != nil {
		return err
	}

	if err := uc.commissionRepo.MarkSettled(ctx, tx, commission.ID, now); err != nil {
		return err
	}

	commission.Settled = true
	commission.SettledAt = &now

	if uc.metrics != nil {
		uc.metrics.CommissionsSettled.Inc()
	}

	return nil
}

// Settle settles a single unsettled commission. Safe to retry: the
// ledger application replays on the commission id.
func (uc *CommissionUseCase) Settle(ctx context.Context, commissionID string) (*domain.Commission, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	var commission *domain.Commission

	err := uc.retrier.Retry(txCtx, func() error {
		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		commission, err = uc.commissionRepo.GetByIDForUpdate(txCtx, tx, commissionID)
		if err != nil {
			return err
		}

		if commission.Settled {
			return tx.Commit(txCtx)
		}

		if err := uc.settleTx(txCtx, tx, commission, time.Now().UTC()); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
	if err != nil {
		return nil, err
	}

	return commission, nil
}

// SettleResult summarizes a batch settlement pass.
type SettleResult struct {
	Settled     int
	TotalAmount decimal.Decimal
}

// SettlePending settles all unsettled commissions, optionally limited
// to one referrer. Failures are logged and skipped; the pass continues.
func (uc *CommissionUseCase) SettlePending(ctx context.Context, referrerID string) (*SettleResult, error) {
	pending, err := uc.commissionRepo.ListUnsettled(ctx, referrerID, 500)
	if err != nil {
		return nil, err
	}

	result := &SettleResult{TotalAmount: decimal.Zero}

	for _, c := range pending {
		settled, err := uc.Settle(ctx, c.ID)
		if err != nil {
			uc.logger.ErrorCtx(ctx, "failed to settle commission",
				"commission_id", c.ID,
				"error", err,
			)

			continue
		}

		result.Settled++
		result.TotalAmount = result.TotalAmount.Add(settled.Amount)
	}

	return result, nil
}

// ListByReferrer returns a referrer's commission history.
func (uc *CommissionUseCase) ListByReferrer(ctx context.Context, referrerID string, limit, offset int) ([]*domain.Commission, error) {
	if limit <= 0 {
		limit = 20
	}

	if limit > 100 {
		limit = 100
	}

	return uc.commissionRepo.ListByReferrer(ctx, referrerID, limit, offset)
}

// Stats summarizes a referrer's commission history.
func (uc *CommissionUseCase) Stats(ctx context.Context, referrerID string) (*domain.CommissionStats, error) {
	return uc.commissionRepo.StatsByReferrer(ctx, referrerID)
}

func (uc *CommissionUseCase) skip(reason string) {
	if uc.metrics != nil {
		uc.metrics.CommissionsSkipped.WithLabelValues(reason).Inc()
	}
}
