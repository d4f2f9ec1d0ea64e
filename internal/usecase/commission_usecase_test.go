package usecase_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/infrastructure/logging"
	"github.com/taskearn/paycore/internal/usecase"
	"github.com/taskearn/paycore/internal/usecase/mocks"
)

type commissionFixture struct {
	uc             *usecase.CommissionUseCase
	accountRepo    *mocks.MockAccountRepository
	commissionRepo *mocks.MockCommissionRepository
	settings       *mocks.MockSettings
}

func newCommissionFixture() *commissionFixture {
	accountRepo := mocks.NewMockAccountRepository()
	commissionRepo := mocks.NewMockCommissionRepository()
	entryRepo := mocks.NewMockEntryRepository()
	settings := mocks.NewMockSettings()
	txMgr := mocks.NewMockTransactionManager()
	retrier := mocks.NewMockRetrier()
	idGen := mocks.NewMockIDGenerator()
	logger := logging.NewNop()

	ledger := usecase.NewLedgerUseCase(txMgr, retrier, accountRepo, entryRepo, idGen, logger, nil)
	uc := usecase.NewCommissionUseCase(txMgr, retrier, accountRepo, commissionRepo, ledger, settings, idGen, logger, nil)

	return &commissionFixture{
		uc:             uc,
		accountRepo:    accountRepo,
		commissionRepo: commissionRepo,
		settings:       settings,
	}
}

func (f *commissionFixture) seedReferrerAndSource(staffReferrer bool) {
	referrerID := "referrer-1"
	f.accountRepo.Seed(&domain.Account{
		ID:      referrerID,
		Staff:   staffReferrer,
		Balance: decimal.Zero,
	})
	f.accountRepo.Seed(&domain.Account{
		ID:         "source-1",
		ReferrerID: &referrerID,
		Balance:    decimal.Zero,
	})
}

func TestCommissionStats(t *testing.T) {
	f := newCommissionFixture()
	f.commissionRepo.Seed(&domain.Commission{
		ID:         "com-1",
		ReferrerID: "referrer-1",
		Amount:     decimal.NewFromInt(125),
		Settled:    true,
	})
	f.commissionRepo.Seed(&domain.Commission{
		ID:         "com-2",
		ReferrerID: "referrer-1",
		Amount:     decimal.NewFromInt(50),
	})
	f.commissionRepo.Seed(&domain.Commission{
		ID:         "com-3",
		ReferrerID: "referrer-2",
		Amount:     decimal.NewFromInt(25),
		Settled:    true,
	})

	stats, err := f.uc.Stats(context.Background(), "referrer-1")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalCount != 2 || stats.SettledCount != 1 || stats.PendingCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1", stats.TotalCount, stats.SettledCount, stats.PendingCount)
	}
	if !stats.SettledAmount.Equal(decimal.NewFromInt(125)) {
		t.Errorf("settled amount = %s, want 125", stats.SettledAmount)
	}
	if !stats.PendingAmount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("pending amount = %s, want 50", stats.PendingAmount)
	}
}

func TestCommissionNoReferrer(t *testing.T) {
	f := newCommissionFixture()
	f.accountRepo.Seed(&domain.Account{ID: "source-1", Balance: decimal.Zero})

	commission, err := f.uc.EvaluateAndSettle(context.Background(), usecase.EvaluateCommissionInput{
		SourceAccountID: "source-1",
		Kind:            domain.CommissionRegistration,
		TriggerAmount:   decimal.NewFromInt(500),
		SourceEventID:   "evt-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if commission != nil {
		t.Fatalf("expected no commission, got %+v", commission)
	}
}

func TestCommissionStaffReferrerSkipped(t *testing.T) {
	f := newCommissionFixture()
	f.seedReferrerAndSource(true)

	commission, err := f.uc.EvaluateAndSettle(context.Background(), usecase.EvaluateCommissionInput{
		SourceAccountID: "source-1",
		Kind:            domain.CommissionRegistration,
		TriggerAmount:   decimal.NewFromInt(500),
		SourceEventID:   "evt-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if commission != nil {
		t.Fatalf("staff referrer must not earn, got %+v", commission)
	}
}

func TestCommissionAutoApproveSettlesImmediately(t *testing.T) {
	f := newCommissionFixture()
	f.seedReferrerAndSource(false)

	commission, err := f.uc.EvaluateAndSettle(context.Background(), usecase.EvaluateCommissionInput{
		SourceAccountID: "source-1",
		Kind:            domain.CommissionRegistration,
		TriggerAmount:   decimal.NewFromInt(500),
		SourceEventID:   "evt-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if commission == nil {
		t.Fatal("expected a commission")
	}

	// 500 * 0.25
	if !commission.Amount.Equal(decimal.NewFromInt(125)) {
		t.Errorf("commission amount = %s, want 125", commission.Amount)
	}
	if !commission.Settled {
		t.Error("auto-approved commission should be settled")
	}

	referrer, _ := f.accountRepo.GetByID(context.Background(), "referrer-1")
	if !referrer.Balance.Equal(decimal.NewFromInt(125)) {
		t.Errorf("referrer balance = %s, want 125", referrer.Balance)
	}
}

func TestCommissionManualApprovalDefersSettlement(t *testing.T) {
	f := newCommissionFixture()
	f.seedReferrerAndSource(false)
	f.settings.AutoApprove = false

	commission, err := f.uc.EvaluateAndSettle(context.Background(), usecase.EvaluateCommissionInput{
		SourceAccountID: "source-1",
		Kind:            domain.CommissionRegistration,
		TriggerAmount:   decimal.NewFromInt(500),
		SourceEventID:   "evt-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if commission.Settled {
		t.Fatal("commission should await manual settlement")
	}

	referrer, _ := f.accountRepo.GetByID(context.Background(), "referrer-1")
	if !referrer.Balance.IsZero() {
		t.Errorf("referrer balance = %s before settlement, want 0", referrer.Balance)
	}

	settled, err := f.uc.Settle(context.Background(), commission.ID)
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if !settled.Settled {
		t.Error("commission not marked settled")
	}

	referrer, _ = f.accountRepo.GetByID(context.Background(), "referrer-1")
	if !referrer.Balance.Equal(decimal.NewFromInt(125)) {
		t.Errorf("referrer balance = %s after settlement, want 125", referrer.Balance)
	}
}

func TestCommissionSettleIsIdempotent(t *testing.T) {
	f := newCommissionFixture()
	f.seedReferrerAndSource(false)
	f.settings.AutoApprove = false

	commission, err := f.uc.EvaluateAndSettle(context.Background(), usecase.EvaluateCommissionInput{
		SourceAccountID: "source-1",
		Kind:            domain.CommissionRegistration,
		TriggerAmount:   decimal.NewFromInt(500),
		SourceEventID:   "evt-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.uc.Settle(context.Background(), commission.ID); err != nil {
		t.Fatalf("first settle failed: %v", err)
	}
	if _, err := f.uc.Settle(context.Background(), commission.ID); err != nil {
		t.Fatalf("second settle failed: %v", err)
	}

	referrer, _ := f.accountRepo.GetByID(context.Background(), "referrer-1")
	if !referrer.Balance.Equal(decimal.NewFromInt(125)) {
		t.Errorf("referrer credited twice: %s, want 125", referrer.Balance)
	}
}

func TestCommissionDuplicateRegistrationReturnsExisting(t *testing.T) {
	f := newCommissionFixture()
	f.seedReferrerAndSource(false)

	input := usecase.EvaluateCommissionInput{
		SourceAccountID: "source-1",
		Kind:            domain.CommissionRegistration,
		TriggerAmount:   decimal.NewFromInt(500),
		SourceEventID:   "evt-1",
	}

	first, err := f.uc.EvaluateAndSettle(context.Background(), input)
	if err != nil {
		t.Fatalf("first evaluation failed: %v", err)
	}

	// A retried registration event carries a different source event id
	// but the same (referrer, source account) pair.
	input.SourceEventID = "evt-1-retry"
	second, err := f.uc.EvaluateAndSettle(context.Background(), input)
	if err != nil {
		t.Fatalf("second evaluation failed: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("duplicate registration created commission %s, want existing %s", second.ID, first.ID)
	}

	referrer, _ := f.accountRepo.GetByID(context.Background(), "referrer-1")
	if !referrer.Balance.Equal(decimal.NewFromInt(125)) {
		t.Errorf("referrer balance = %s, want single credit of 125", referrer.Balance)
	}
}

func TestCommissionTaskDedupedBySourceEvent(t *testing.T) {
	f := newCommissionFixture()
	f.seedReferrerAndSource(false)

	input := usecase.EvaluateCommissionInput{
		SourceAccountID: "source-1",
		Kind:            domain.CommissionTask,
		TriggerAmount:   decimal.NewFromInt(200),
		SourceEventID:   "entry-1",
	}

	first, err := f.uc.EvaluateAndSettle(context.Background(), input)
	if err != nil {
		t.Fatalf("first evaluation failed: %v", err)
	}

	second, err := f.uc.EvaluateAndSettle(context.Background(), input)
	if err != nil {
		t.Fatalf("replayed evaluation failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("replayed event created commission %s, want existing %s", second.ID, first.ID)
	}

	// A different task entry earns again.
	input.SourceEventID = "entry-2"
	third, err := f.uc.EvaluateAndSettle(context.Background(), input)
	if err != nil {
		t.Fatalf("third evaluation failed: %v", err)
	}
	if third.ID == first.ID {
		t.Error("distinct task event should create a new commission")
	}
}

func TestCommissionRatePinnedAtCreation(t *testing.T) {
	f := newCommissionFixture()
	f.seedReferrerAndSource(false)

	commission, err := f.uc.EvaluateAndSettle(context.Background(), usecase.EvaluateCommissionInput{
		SourceAccountID: "source-1",
		Kind:            domain.CommissionRegistration,
		TriggerAmount:   decimal.NewFromInt(500),
		SourceEventID:   "evt-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !commission.Rate.Equal(decimal.RequireFromString("0.25")) {
		t.Errorf("pinned rate = %s, want 0.25", commission.Rate)
	}

	// Changing the live rate must not alter the stored record.
	f.settings.Rate = decimal.RequireFromString("0.50")

	stored, err := f.commissionRepo.GetByID(context.Background(), commission.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !stored.Rate.Equal(decimal.RequireFromString("0.25")) {
		t.Errorf("stored rate drifted to %s", stored.Rate)
	}
}

func TestCommissionSettlePending(t *testing.T) {
	f := newCommissionFixture()
	f.seedReferrerAndSource(false)
	f.settings.AutoApprove = false

	for _, evt := range []string{"entry-1", "entry-2"} {
		if _, err := f.uc.EvaluateAndSettle(context.Background(), usecase.EvaluateCommissionInput{
			SourceAccountID: "source-1",
			Kind:            domain.CommissionTask,
			TriggerAmount:   decimal.NewFromInt(100),
			SourceEventID:   evt,
		}); err != nil {
			t.Fatalf("evaluation failed: %v", err)
		}
	}

	result, err := f.uc.SettlePending(context.Background(), "")
	if err != nil {
		t.Fatalf("settle pending failed: %v", err)
	}
	if result.Settled != 2 {
		t.Errorf("settled %d commissions, want 2", result.Settled)
	}
	if !result.TotalAmount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("total settled = %s, want 50", result.TotalAmount)
	}
}
