package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskearn/paycore/internal/adapter/http/dto"
	"github.com/taskearn/paycore/internal/usecase"
)

// WithdrawalHandler serves the withdrawal lifecycle.
type WithdrawalHandler struct {
	withdrawals *usecase.WithdrawalUseCase
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(withdrawals *usecase.WithdrawalUseCase) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals}
}

// Create handles POST /withdrawals.
func (h *WithdrawalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	withdrawal, err := h.withdrawals.Create(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to create withdrawal", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.WithdrawalFromDomain(withdrawal))
}

// Get handles GET /withdrawals/{id}.
func (h *WithdrawalHandler) Get(w http.ResponseWriter, r *http.Request) {
	withdrawal, err := h.withdrawals.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get withdrawal", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.WithdrawalFromDomain(withdrawal))
}

// ListByAccount handles GET /accounts/{id}/withdrawals.
func (h *WithdrawalHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	withdrawals, err := h.withdrawals.List(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list withdrawals", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.WithdrawalsFromDomain(withdrawals))
}

// Stats handles GET /accounts/{id}/withdrawals/stats.
func (h *WithdrawalHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.withdrawals.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to compute withdrawal stats", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.WithdrawalStatsFromDomain(stats))
}

// Approve handles POST /withdrawals/{id}/approve.
func (h *WithdrawalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	withdrawal, err := h.withdrawals.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to approve withdrawal", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.WithdrawalFromDomain(withdrawal))
}

// Reject handles POST /withdrawals/{id}/reject.
func (h *WithdrawalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req dto.RejectWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	withdrawal, err := h.withdrawals.Reject(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to reject withdrawal", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.WithdrawalFromDomain(withdrawal))
}

// Cancel handles POST /withdrawals/{id}/cancel.
func (h *WithdrawalHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	withdrawal, err := h.withdrawals.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to cancel withdrawal", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.WithdrawalFromDomain(withdrawal))
}

// Process handles POST /withdrawals/{id}/process.
func (h *WithdrawalHandler) Process(w http.ResponseWriter, r *http.Request) {
	withdrawal, err := h.withdrawals.Process(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to process withdrawal", err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, dto.WithdrawalFromDomain(withdrawal))
}
