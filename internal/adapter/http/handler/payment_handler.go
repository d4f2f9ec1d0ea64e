package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskearn/paycore/internal/adapter/http/dto"
	"github.com/taskearn/paycore/internal/usecase"
)

// PaymentHandler serves account registration, the registration charge,
// task payouts, and ledger history.
type PaymentHandler struct {
	payments *usecase.PaymentUseCase
	ledger   *usecase.LedgerUseCase
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments *usecase.PaymentUseCase, ledger *usecase.LedgerUseCase) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		ledger:   ledger,
	}
}

// RegisterAccount handles POST /accounts.
func (h *PaymentHandler) RegisterAccount(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	account, err := h.payments.RegisterAccount(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to register account", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// GetAccount handles GET /accounts/{id}.
func (h *PaymentHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.payments.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get account", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// InitiateRegistration handles POST /accounts/{id}/registration.
func (h *PaymentHandler) InitiateRegistration(w http.ResponseWriter, r *http.Request) {
	intent, err := h.payments.InitiateRegistrationCollection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to initiate registration payment", err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, dto.IntentFromDomain(intent))
}

// TaskPayout handles POST /payouts/task.
func (h *PaymentHandler) TaskPayout(w http.ResponseWriter, r *http.Request) {
	var req dto.TaskPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if req.TaskRef == "" {
		writeError(w, http.StatusBadRequest, "task_ref is required", "")
		return
	}

	entry, commission, err := h.payments.CreditTaskPayout(r.Context(), req.AccountID, req.Amount, req.TaskRef)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to credit task payout", err.Error())
		return
	}

	resp := struct {
		Entry      dto.EntryResponse       `json:"entry"`
		Commission *dto.CommissionResponse `json:"commission,omitempty"`
	}{
		Entry: dto.EntryFromDomain(entry),
	}
	if commission != nil {
		c := dto.CommissionFromDomain(commission)
		resp.Commission = &c
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListEntries handles GET /accounts/{id}/entries.
func (h *PaymentHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	entries, err := h.ledger.ListEntries(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list entries", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}
