package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/infrastructure/logging"
	"github.com/taskearn/paycore/internal/infrastructure/metrics"
)

// LedgerUseCase is the single writer for account balances. Every
// component that moves money calls through Apply or ApplyTx; nothing
// else touches the balance column.
type LedgerUseCase struct {
	txManager   TransactionManager
	retrier     Retrier
	accountRepo AccountRepository
	entryRepo   EntryRepository
	idGen       IDGenerator
	logger      *logging.Logger
	metrics     *metrics.Metrics
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	retrier Retrier,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	idGen IDGenerator,
	logger *logging.Logger,
	m *metrics.Metrics,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:   txManager,
		retrier:     retrier,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		idGen:       idGen,
		logger:      logger,
		metrics:     m,
	}
}

// ApplyEntryInput describes one ledger application.
type ApplyEntryInput struct {
	AccountID      string
	Kind           domain.EntryKind
	Amount         decimal.Decimal
	IdempotencyKey string
	Metadata       map[string]any
}

// Apply writes one ledger entry in its own transaction. The returned
// bool is true when the entry was created by this call and false when
// an entry with the same (account, idempotency key) already existed and
// was returned unchanged.
func (uc *LedgerUseCase) Apply(ctx context.Context, input ApplyEntryInput) (*domain.LedgerEntry, bool, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	var (
		entry   *domain.LedgerEntry
		applied bool
	)

	err := uc.retrier.Retry(txCtx, func() error {
		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		entry, applied, err = uc.ApplyTx(txCtx, tx, input)
		if err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
	if err != nil {
		return nil, false, err
	}

	return entry, applied, nil
}

// ApplyTx writes one ledger entry inside the caller's transaction. The
// account row is locked for the duration, serializing all balance
// mutation per account.
func (uc *LedgerUseCase) ApplyTx(ctx context.Context, tx Transaction, input ApplyEntryInput) (*domain.LedgerEntry, bool, error) {
	account, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, input.AccountID)
	if err != nil {
		return nil, false, err
	}

	existing, err := uc.entryRepo.GetByIdempotencyKey(ctx, tx, input.AccountID, input.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		// Idempotent replay: the event was already applied. Not an
		// error; the caller gets the original entry unchanged.
		uc.logger.DebugCtx(ctx, "ledger entry replayed",
			"account_id", input.AccountID,
			"idempotency_key", input.IdempotencyKey,
		)
		if uc.metrics != nil {
			uc.metrics.EntriesReplays.Inc()
		}

		return existing, false, nil
	}

	balanceAfter := account.Balance.Add(input.Amount)
	if balanceAfter.IsNegative() {
		if uc.metrics != nil {
			uc.metrics.EntriesBlocked.Inc()
		}

		return nil, false, domain.ErrInsufficientBalance
	}

	now := time.Now().UTC()
	entry := &domain.LedgerEntry{
		ID:             uc.idGen.Generate(),
		AccountID:      input.AccountID,
		Kind:           input.Kind,
		Amount:         input.Amount,
		BalanceBefore:  account.Balance,
		BalanceAfter:   balanceAfter,
		IdempotencyKey: input.IdempotencyKey,
		Metadata:       input.Metadata,
		CreatedAt:      now,
	}

	if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
		return nil, false, err
	}

	lifetime := account.LifetimeEarnings
	if input.Kind.Earning() && input.Amount.IsPositive() {
		lifetime = lifetime.Add(input.Amount)
	}

	if err := uc.accountRepo.UpdateBalance(ctx, tx, input.AccountID, balanceAfter, lifetime, now); err != nil {
		return nil, false, err
	}

	if uc.metrics != nil {
		uc.metrics.EntriesApplied.WithLabelValues(string(input.Kind)).Inc()
	}

	return entry, true, nil
}

// ListEntries returns an account's ledger history, newest first.
func (uc *LedgerUseCase) ListEntries(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	if limit > 100 {
		limit = 100
	}

	return uc.entryRepo.ListByAccount(ctx, accountID, limit, offset)
}
