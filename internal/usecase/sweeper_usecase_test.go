package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/infrastructure/logging"
	"github.com/taskearn/paycore/internal/usecase"
	"github.com/taskearn/paycore/internal/usecase/mocks"
)

type sweepFixture struct {
	uc             *usecase.SweepUseCase
	accountRepo    *mocks.MockAccountRepository
	intentRepo     *mocks.MockIntentRepository
	withdrawalRepo *mocks.MockWithdrawalRepository
	gateway        *mocks.MockGateway
	notifier       *mocks.MockNotifier
}

func newSweepFixture() *sweepFixture {
	accountRepo := mocks.NewMockAccountRepository()
	intentRepo := mocks.NewMockIntentRepository()
	withdrawalRepo := mocks.NewMockWithdrawalRepository()
	entryRepo := mocks.NewMockEntryRepository()
	gateway := mocks.NewMockGateway()
	notifier := mocks.NewMockNotifier()
	txMgr := mocks.NewMockTransactionManager()
	retrier := mocks.NewMockRetrier()
	logger := logging.NewNop()

	ledger := usecase.NewLedgerUseCase(txMgr, retrier, accountRepo, entryRepo, mocks.NewMockIDGenerator(), logger, nil)
	uc := usecase.NewSweepUseCase(txMgr, retrier, accountRepo, intentRepo, withdrawalRepo, ledger, gateway, notifier, logger, nil, 15*time.Minute, time.Minute)

	return &sweepFixture{
		uc:             uc,
		accountRepo:    accountRepo,
		intentRepo:     intentRepo,
		withdrawalRepo: withdrawalRepo,
		gateway:        gateway,
		notifier:       notifier,
	}
}

func (f *sweepFixture) seedOverdueCollection() *domain.PaymentIntent {
	f.accountRepo.Seed(&domain.Account{
		ID:                "acc-1",
		RegistrationState: domain.RegistrationPending,
		Balance:           decimal.Zero,
	})

	intent := &domain.PaymentIntent{
		ID:            "intent-1",
		Direction:     domain.DirectionCollection,
		Purpose:       domain.PurposeRegistration,
		CorrelationID: "chk-1",
		AccountID:     "acc-1",
		Amount:        decimal.NewFromInt(500),
		Status:        domain.IntentPending,
		CreatedAt:     time.Now().UTC().Add(-20 * time.Minute),
	}
	f.intentRepo.Seed(intent)

	return intent
}

func (f *sweepFixture) seedOverdueDisbursement() (*domain.PaymentIntent, *domain.WithdrawalRequest) {
	f.accountRepo.Seed(&domain.Account{ID: "acc-1", Balance: decimal.NewFromInt(100)})

	withdrawalID := "wd-1"
	intent := &domain.PaymentIntent{
		ID:            "intent-2",
		Direction:     domain.DirectionDisbursement,
		Purpose:       domain.PurposeWithdrawal,
		CorrelationID: "conv-1",
		AccountID:     "acc-1",
		WithdrawalID:  &withdrawalID,
		Amount:        decimal.NewFromInt(980),
		Status:        domain.IntentPending,
		CreatedAt:     time.Now().UTC().Add(-20 * time.Minute),
	}
	f.intentRepo.Seed(intent)

	withdrawal := &domain.WithdrawalRequest{
		ID:        withdrawalID,
		AccountID: "acc-1",
		Amount:    decimal.NewFromInt(1000),
		Fee:       decimal.NewFromInt(20),
		NetAmount: decimal.NewFromInt(980),
		Status:    domain.WithdrawalProcessing,
		IntentID:  &intent.ID,
	}
	f.withdrawalRepo.Seed(withdrawal)

	return intent, withdrawal
}

func TestSweepCollectionTimeout(t *testing.T) {
	f := newSweepFixture()
	f.seedOverdueCollection()

	result, err := f.uc.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.TimedOut != 1 {
		t.Errorf("timed out = %d, want 1", result.TimedOut)
	}

	intent, _ := f.intentRepo.GetByID(context.Background(), "intent-1")
	if intent.Status != domain.IntentTimedOut {
		t.Errorf("intent status = %s, want timed_out", intent.Status)
	}

	account, _ := f.accountRepo.GetByID(context.Background(), "acc-1")
	if account.RegistrationState != domain.RegistrationUnpaid {
		t.Errorf("registration state = %s, want unpaid", account.RegistrationState)
	}

	events := f.notifier.Events()
	if len(events) != 1 || events[0].Status != domain.StatusTimeout {
		t.Errorf("expected one timeout event, got %+v", events)
	}
}

func TestSweepIgnoresFreshIntents(t *testing.T) {
	f := newSweepFixture()
	intent := f.seedOverdueCollection()
	intent.CreatedAt = time.Now().UTC().Add(-1 * time.Minute)

	result, err := f.uc.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.Examined != 0 {
		t.Errorf("examined = %d, want 0", result.Examined)
	}

	got, _ := f.intentRepo.GetByID(context.Background(), "intent-1")
	if got.Status != domain.IntentPending {
		t.Errorf("fresh intent status = %s, want pending", got.Status)
	}
}

func TestSweepDisbursementConfirmedCompletes(t *testing.T) {
	f := newSweepFixture()
	f.seedOverdueDisbursement()
	f.gateway.QueryStatusFunc = func(ctx context.Context, correlationID string) (usecase.GatewayStatus, json.RawMessage, error) {
		return usecase.GatewayStatusCompleted, nil, nil
	}

	result, err := f.uc.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.Completed != 1 {
		t.Errorf("completed = %d, want 1", result.Completed)
	}

	withdrawal, _ := f.withdrawalRepo.GetByID(context.Background(), "wd-1")
	if withdrawal.Status != domain.WithdrawalCompleted {
		t.Errorf("withdrawal status = %s, want completed", withdrawal.Status)
	}

	// The payout went through; nothing is refunded.
	account, _ := f.accountRepo.GetByID(context.Background(), "acc-1")
	if !account.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance = %s, want unchanged 100", account.Balance)
	}
}

func TestSweepDisbursementUnconfirmedRefunds(t *testing.T) {
	f := newSweepFixture()
	f.seedOverdueDisbursement()
	// Default mock answers pending: the payout never confirmed.

	result, err := f.uc.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.TimedOut != 1 {
		t.Errorf("timed out = %d, want 1", result.TimedOut)
	}

	withdrawal, _ := f.withdrawalRepo.GetByID(context.Background(), "wd-1")
	if withdrawal.Status != domain.WithdrawalFailed {
		t.Errorf("withdrawal status = %s, want failed", withdrawal.Status)
	}

	account, _ := f.accountRepo.GetByID(context.Background(), "acc-1")
	if !account.Balance.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("balance = %s, want 1100 after refund", account.Balance)
	}

	// A second pass finds nothing pending; the refund never repeats.
	if _, err := f.uc.SweepOnce(context.Background()); err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	account, _ = f.accountRepo.GetByID(context.Background(), "acc-1")
	if !account.Balance.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("balance moved on second pass: %s", account.Balance)
	}
}

func TestSweepDisbursementQueryErrorDefers(t *testing.T) {
	f := newSweepFixture()
	f.seedOverdueDisbursement()
	f.gateway.QueryStatusFunc = func(ctx context.Context, correlationID string) (usecase.GatewayStatus, json.RawMessage, error) {
		return usecase.GatewayStatusUnknown, nil, errors.New("gateway unreachable")
	}

	result, err := f.uc.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", result.Skipped)
	}

	// Nothing was decided: intent still pending, no refund.
	intent, _ := f.intentRepo.GetByID(context.Background(), "intent-2")
	if intent.Status != domain.IntentPending {
		t.Errorf("intent status = %s, want still pending", intent.Status)
	}

	account, _ := f.accountRepo.GetByID(context.Background(), "acc-1")
	if !account.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance = %s, want unchanged 100", account.Balance)
	}
}

func TestSweepStepsAsideForLateCallback(t *testing.T) {
	f := newSweepFixture()
	intent := f.seedOverdueCollection()

	// A callback finalized the intent between listing and locking.
	f.intentRepo.GetByIDForUpdateFunc = func(ctx context.Context, tx usecase.Transaction, id string) (*domain.PaymentIntent, error) {
		finalized := *intent
		finalized.Status = domain.IntentCompleted
		return &finalized, nil
	}

	result, err := f.uc.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.TimedOut != 0 {
		t.Errorf("timed out = %d, want 0 when the callback won", result.TimedOut)
	}
}
