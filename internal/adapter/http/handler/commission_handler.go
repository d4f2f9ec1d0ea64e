package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskearn/paycore/internal/adapter/http/dto"
	"github.com/taskearn/paycore/internal/usecase"
)

// CommissionHandler serves referral commission history and settlement.
type CommissionHandler struct {
	commissions *usecase.CommissionUseCase
}

// NewCommissionHandler creates a new CommissionHandler.
func NewCommissionHandler(commissions *usecase.CommissionUseCase) *CommissionHandler {
	return &CommissionHandler{commissions: commissions}
}

// ListByReferrer handles GET /accounts/{id}/commissions.
func (h *CommissionHandler) ListByReferrer(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	commissions, err := h.commissions.ListByReferrer(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list commissions", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.CommissionsFromDomain(commissions))
}

// Stats handles GET /accounts/{id}/commissions/stats.
func (h *CommissionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.commissions.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to compute commission stats", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.CommissionStatsFromDomain(stats))
}

// Settle handles POST /commissions/{id}/settle.
func (h *CommissionHandler) Settle(w http.ResponseWriter, r *http.Request) {
	commission, err := h.commissions.Settle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to settle commission", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.CommissionFromDomain(commission))
}

// SettlePending handles POST /commissions/settle. An optional
// referrer_id query parameter limits the pass to one referrer.
func (h *CommissionHandler) SettlePending(w http.ResponseWriter, r *http.Request) {
	result, err := h.commissions.SettlePending(r.Context(), r.URL.Query().Get("referrer_id"))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to settle commissions", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Settled     int    `json:"settled"`
		TotalAmount string `json:"total_amount"`
	}{
		Settled:     result.Settled,
		TotalAmount: result.TotalAmount.String(),
	})
}
