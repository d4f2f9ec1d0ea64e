package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/taskearn/paycore/internal/adapter/http/handler"
	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/infrastructure/logging"
	"github.com/taskearn/paycore/internal/usecase"
	"github.com/taskearn/paycore/internal/usecase/mocks"
)

type callbackHandlerFixture struct {
	handler        *handler.CallbackHandler
	accountRepo    *mocks.MockAccountRepository
	intentRepo     *mocks.MockIntentRepository
	withdrawalRepo *mocks.MockWithdrawalRepository
}

func newCallbackHandlerFixture() *callbackHandlerFixture {
	accountRepo := mocks.NewMockAccountRepository()
	intentRepo := mocks.NewMockIntentRepository()
	withdrawalRepo := mocks.NewMockWithdrawalRepository()
	entryRepo := mocks.NewMockEntryRepository()
	commissionRepo := mocks.NewMockCommissionRepository()
	txMgr := mocks.NewMockTransactionManager()
	retrier := mocks.NewMockRetrier()
	idGen := mocks.NewMockIDGenerator()
	logger := logging.NewNop()

	ledger := usecase.NewLedgerUseCase(txMgr, retrier, accountRepo, entryRepo, idGen, logger, nil)
	commissions := usecase.NewCommissionUseCase(txMgr, retrier, accountRepo, commissionRepo, ledger, mocks.NewMockSettings(), idGen, logger, nil)
	callbacks := usecase.NewCallbackUseCase(txMgr, retrier, accountRepo, intentRepo, withdrawalRepo, ledger, commissions, mocks.NewMockNotifier(), logger, nil)

	return &callbackHandlerFixture{
		handler:        handler.NewCallbackHandler(callbacks, logger),
		accountRepo:    accountRepo,
		intentRepo:     intentRepo,
		withdrawalRepo: withdrawalRepo,
	}
}

func (f *callbackHandlerFixture) seedCollection() {
	f.accountRepo.Seed(&domain.Account{
		ID:                "acc-1",
		Phone:             "254712345678",
		RegistrationState: domain.RegistrationPending,
		Balance:           decimal.Zero,
	})
	f.intentRepo.Seed(&domain.PaymentIntent{
		ID:            "intent-1",
		Direction:     domain.DirectionCollection,
		Purpose:       domain.PurposeRegistration,
		CorrelationID: "ws_CO_1",
		AccountID:     "acc-1",
		Amount:        decimal.NewFromInt(500),
		Status:        domain.IntentPending,
	})
}

const stkSuccessBody = `{
	"Body": {
		"stkCallback": {
			"MerchantRequestID": "mr-1",
			"CheckoutRequestID": "ws_CO_1",
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully.",
			"CallbackMetadata": {
				"Item": [
					{"Name": "Amount", "Value": 500.00},
					{"Name": "MpesaReceiptNumber", "Value": "REC123"}
				]
			}
		}
	}
}`

func decodeAck(t *testing.T, rec *httptest.ResponseRecorder) (int, string) {
	t.Helper()
	var ack struct {
		ResultCode int    `json:"ResultCode"`
		ResultDesc string `json:"ResultDesc"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&ack); err != nil {
		t.Fatalf("decoding ack: %v", err)
	}

	return ack.ResultCode, ack.ResultDesc
}

func TestSTKCallbackSuccess(t *testing.T) {
	f := newCallbackHandlerFixture()
	f.seedCollection()

	req := httptest.NewRequest(http.MethodPost, "/payments/callback", strings.NewReader(stkSuccessBody))
	rec := httptest.NewRecorder()
	f.handler.STKCallback(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if code, desc := decodeAck(t, rec); code != 0 || desc != "Accepted" {
		t.Errorf("ack = %d %q, want 0 Accepted", code, desc)
	}

	intent, _ := f.intentRepo.GetByID(context.Background(), "intent-1")
	if intent.Status != domain.IntentCompleted {
		t.Errorf("intent status = %s, want completed", intent.Status)
	}

	account, _ := f.accountRepo.GetByID(context.Background(), "acc-1")
	if account.RegistrationState != domain.RegistrationPaid {
		t.Errorf("registration state = %s, want paid", account.RegistrationState)
	}
}

func TestSTKCallbackUnparseableBody(t *testing.T) {
	f := newCallbackHandlerFixture()

	req := httptest.NewRequest(http.MethodPost, "/payments/callback", strings.NewReader("{{{"))
	rec := httptest.NewRecorder()
	f.handler.STKCallback(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 so the gateway retries delivery", rec.Code)
	}
}

func TestSTKCallbackMissingCorrelationAcked(t *testing.T) {
	f := newCallbackHandlerFixture()
	f.seedCollection()

	// Parseable, but nothing to reconcile: must be acknowledged, never
	// rejected, so the gateway does not redeliver it forever.
	req := httptest.NewRequest(http.MethodPost, "/payments/callback",
		strings.NewReader(`{"Body":{"stkCallback":{"ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`))
	rec := httptest.NewRecorder()
	f.handler.STKCallback(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 ack for parseable payload with absent correlation id", rec.Code)
	}
	if code, desc := decodeAck(t, rec); code != 0 || desc != "Accepted" {
		t.Errorf("ack = %d %q, want 0 Accepted", code, desc)
	}

	// No intent was touched.
	intent, _ := f.intentRepo.GetByID(context.Background(), "intent-1")
	if intent.Status != domain.IntentPending {
		t.Errorf("intent status = %s, want still pending", intent.Status)
	}
}

func TestSTKCallbackUnknownCorrelationStillAcked(t *testing.T) {
	f := newCallbackHandlerFixture()
	// No intents seeded: the correlation id matches nothing.

	req := httptest.NewRequest(http.MethodPost, "/payments/callback", strings.NewReader(stkSuccessBody))
	rec := httptest.NewRecorder()
	f.handler.STKCallback(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 so the gateway stops redelivering", rec.Code)
	}
}

func TestB2CResultSuccess(t *testing.T) {
	f := newCallbackHandlerFixture()
	f.accountRepo.Seed(&domain.Account{ID: "acc-1", Balance: decimal.NewFromInt(100)})

	withdrawalID := "wd-1"
	intentID := "intent-2"
	f.intentRepo.Seed(&domain.PaymentIntent{
		ID:            intentID,
		Direction:     domain.DirectionDisbursement,
		Purpose:       domain.PurposeWithdrawal,
		CorrelationID: "AG_1",
		AccountID:     "acc-1",
		WithdrawalID:  &withdrawalID,
		Amount:        decimal.NewFromInt(980),
		Status:        domain.IntentPending,
	})
	f.withdrawalRepo.Seed(&domain.WithdrawalRequest{
		ID:        withdrawalID,
		AccountID: "acc-1",
		Amount:    decimal.NewFromInt(1000),
		Fee:       decimal.NewFromInt(20),
		NetAmount: decimal.NewFromInt(980),
		Status:    domain.WithdrawalProcessing,
		IntentID:  &intentID,
	})

	body := `{
		"Result": {
			"ResultType": 0,
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully.",
			"ConversationID": "AG_1",
			"TransactionID": "TX1",
			"ResultParameters": {
				"ResultParameter": [
					{"Key": "TransactionReceipt", "Value": "REC456"}
				]
			}
		}
	}`

	req := httptest.NewRequest(http.MethodPost, "/payments/b2c/result", strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.B2CResult(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	withdrawal, _ := f.withdrawalRepo.GetByID(context.Background(), withdrawalID)
	if withdrawal.Status != domain.WithdrawalCompleted {
		t.Errorf("withdrawal status = %s, want completed", withdrawal.Status)
	}
	if withdrawal.ExternalReference != "REC456" {
		t.Errorf("external reference = %q, want the receipt parameter", withdrawal.ExternalReference)
	}
}

func TestB2CResultUnparseableBody(t *testing.T) {
	f := newCallbackHandlerFixture()

	req := httptest.NewRequest(http.MethodPost, "/payments/b2c/result", strings.NewReader("{{{"))
	rec := httptest.NewRecorder()
	f.handler.B2CResult(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestB2CResultMissingConversationIDAcked(t *testing.T) {
	f := newCallbackHandlerFixture()

	req := httptest.NewRequest(http.MethodPost, "/payments/b2c/result",
		strings.NewReader(`{"Result":{"ResultCode":0}}`))
	rec := httptest.NewRecorder()
	f.handler.B2CResult(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 ack for parseable payload with absent correlation id", rec.Code)
	}
	if code, desc := decodeAck(t, rec); code != 0 || desc != "Accepted" {
		t.Errorf("ack = %d %q, want 0 Accepted", code, desc)
	}
}

func TestB2CTimeoutAlwaysAcked(t *testing.T) {
	f := newCallbackHandlerFixture()

	req := httptest.NewRequest(http.MethodPost, "/payments/b2c/timeout", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	f.handler.B2CTimeout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if code, desc := decodeAck(t, rec); code != 0 || desc != "Accepted" {
		t.Errorf("ack = %d %q, want 0 Accepted", code, desc)
	}
}
