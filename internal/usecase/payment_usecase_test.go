package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/infrastructure/logging"
	"github.com/taskearn/paycore/internal/usecase"
	"github.com/taskearn/paycore/internal/usecase/mocks"
)

type paymentFixture struct {
	uc          *usecase.PaymentUseCase
	accountRepo *mocks.MockAccountRepository
	intentRepo  *mocks.MockIntentRepository
	gateway     *mocks.MockGateway
	notifier    *mocks.MockNotifier
}

func newPaymentFixture() *paymentFixture {
	accountRepo := mocks.NewMockAccountRepository()
	intentRepo := mocks.NewMockIntentRepository()
	entryRepo := mocks.NewMockEntryRepository()
	commissionRepo := mocks.NewMockCommissionRepository()
	gateway := mocks.NewMockGateway()
	settings := mocks.NewMockSettings()
	notifier := mocks.NewMockNotifier()
	txMgr := mocks.NewMockTransactionManager()
	retrier := mocks.NewMockRetrier()
	idGen := mocks.NewMockIDGenerator()
	logger := logging.NewNop()

	ledger := usecase.NewLedgerUseCase(txMgr, retrier, accountRepo, entryRepo, idGen, logger, nil)
	commissions := usecase.NewCommissionUseCase(txMgr, retrier, accountRepo, commissionRepo, ledger, settings, idGen, logger, nil)
	uc := usecase.NewPaymentUseCase(txMgr, retrier, accountRepo, intentRepo, ledger, commissions, settings, gateway, notifier, idGen, logger, nil)

	return &paymentFixture{
		uc:          uc,
		accountRepo: accountRepo,
		intentRepo:  intentRepo,
		gateway:     gateway,
		notifier:    notifier,
	}
}

func TestRegisterAccount(t *testing.T) {
	f := newPaymentFixture()

	account, err := f.uc.RegisterAccount(context.Background(), usecase.RegisterAccountInput{
		Phone: "0712345678",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if account.Phone != "254712345678" {
		t.Errorf("phone = %s, want normalized form", account.Phone)
	}
	if account.RegistrationState != domain.RegistrationUnpaid {
		t.Errorf("registration state = %s, want unpaid", account.RegistrationState)
	}
	if !account.Balance.IsZero() {
		t.Errorf("balance = %s, want 0", account.Balance)
	}
}

func TestRegisterAccountInvalidPhone(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.uc.RegisterAccount(context.Background(), usecase.RegisterAccountInput{Phone: "12345"})
	if !errors.Is(err, domain.ErrInvalidPhone) {
		t.Fatalf("error = %v, want ErrInvalidPhone", err)
	}
}

func TestRegisterAccountUnknownReferrer(t *testing.T) {
	f := newPaymentFixture()
	ghost := "ghost"

	_, err := f.uc.RegisterAccount(context.Background(), usecase.RegisterAccountInput{
		Phone:      "0712345678",
		ReferrerID: &ghost,
	})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("error = %v, want ErrAccountNotFound", err)
	}
}

func TestInitiateRegistrationCollection(t *testing.T) {
	f := newPaymentFixture()
	f.accountRepo.Seed(&domain.Account{
		ID:                "acc-1",
		Phone:             "254712345678",
		RegistrationState: domain.RegistrationUnpaid,
		Balance:           decimal.Zero,
	})

	intent, err := f.uc.InitiateRegistrationCollection(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if intent.Status != domain.IntentPending {
		t.Errorf("intent status = %s, want pending", intent.Status)
	}
	if intent.CorrelationID == "" {
		t.Error("correlation id not attached")
	}
	if !intent.Amount.Equal(decimal.RequireFromString("500.00")) {
		t.Errorf("amount = %s, want the configured fee", intent.Amount)
	}

	account, _ := f.accountRepo.GetByID(context.Background(), "acc-1")
	if account.RegistrationState != domain.RegistrationPending {
		t.Errorf("registration state = %s, want pending", account.RegistrationState)
	}
}

func TestInitiateRegistrationCollectionAlreadyPaid(t *testing.T) {
	f := newPaymentFixture()
	f.accountRepo.Seed(&domain.Account{
		ID:                "acc-1",
		Phone:             "254712345678",
		RegistrationState: domain.RegistrationPaid,
	})

	_, err := f.uc.InitiateRegistrationCollection(context.Background(), "acc-1")
	if !errors.Is(err, domain.ErrAlreadyPaid) {
		t.Fatalf("error = %v, want ErrAlreadyPaid", err)
	}
}

func TestInitiateRegistrationCollectionGatewayDown(t *testing.T) {
	f := newPaymentFixture()
	f.accountRepo.Seed(&domain.Account{
		ID:                "acc-1",
		Phone:             "254712345678",
		RegistrationState: domain.RegistrationUnpaid,
	})
	f.gateway.InitiateCollectionFunc = func(ctx context.Context, phone string, amount decimal.Decimal, reference, description string) (*usecase.GatewayResult, error) {
		return nil, domain.ErrGatewayUnavailable
	}

	_, err := f.uc.InitiateRegistrationCollection(context.Background(), "acc-1")
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("error = %v, want ErrGatewayUnavailable", err)
	}

	// The intent is recorded as failed; the account never left unpaid.
	account, _ := f.accountRepo.GetByID(context.Background(), "acc-1")
	if account.RegistrationState != domain.RegistrationUnpaid {
		t.Errorf("registration state = %s, want unpaid", account.RegistrationState)
	}
}

func TestCreditTaskPayout(t *testing.T) {
	f := newPaymentFixture()
	f.accountRepo.Seed(&domain.Account{ID: "acc-1", Balance: decimal.Zero})

	entry, commission, err := f.uc.CreditTaskPayout(context.Background(), "acc-1", decimal.NewFromInt(200), "task-77")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if commission != nil {
		t.Errorf("no referrer, commission should be nil, got %+v", commission)
	}
	if !entry.Amount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("entry amount = %s, want 200", entry.Amount)
	}

	account, _ := f.accountRepo.GetByID(context.Background(), "acc-1")
	if !account.Balance.Equal(decimal.NewFromInt(200)) {
		t.Errorf("balance = %s, want 200", account.Balance)
	}
	if !account.LifetimeEarnings.Equal(decimal.NewFromInt(200)) {
		t.Errorf("lifetime earnings = %s, want 200", account.LifetimeEarnings)
	}
}

func TestCreditTaskPayoutReplay(t *testing.T) {
	f := newPaymentFixture()
	referrerID := "referrer-1"
	f.accountRepo.Seed(&domain.Account{ID: referrerID, Balance: decimal.Zero})
	f.accountRepo.Seed(&domain.Account{ID: "acc-1", ReferrerID: &referrerID, Balance: decimal.Zero})

	first, commission, err := f.uc.CreditTaskPayout(context.Background(), "acc-1", decimal.NewFromInt(200), "task-77")
	if err != nil {
		t.Fatalf("first payout failed: %v", err)
	}
	if commission == nil {
		t.Fatal("expected a task commission")
	}

	second, replayCommission, err := f.uc.CreditTaskPayout(context.Background(), "acc-1", decimal.NewFromInt(200), "task-77")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("replay returned entry %s, want original %s", second.ID, first.ID)
	}
	if replayCommission != nil {
		t.Errorf("replay must not evaluate a commission, got %+v", replayCommission)
	}

	account, _ := f.accountRepo.GetByID(context.Background(), "acc-1")
	if !account.Balance.Equal(decimal.NewFromInt(200)) {
		t.Errorf("balance credited twice: %s", account.Balance)
	}

	referrer, _ := f.accountRepo.GetByID(context.Background(), referrerID)
	if !referrer.Balance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("referrer balance = %s, want single commission of 50", referrer.Balance)
	}
}

func TestCreditTaskPayoutRejectsNonPositive(t *testing.T) {
	f := newPaymentFixture()
	f.accountRepo.Seed(&domain.Account{ID: "acc-1", Balance: decimal.Zero})

	_, _, err := f.uc.CreditTaskPayout(context.Background(), "acc-1", decimal.Zero, "task-77")
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("error = %v, want ErrInvalidAmount", err)
	}
}
