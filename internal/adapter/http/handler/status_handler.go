package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskearn/paycore/internal/usecase"
)

// StatusHandler answers client status polls. The poll path reads the
// stores directly, so it stays correct even when push delivery fails.
type StatusHandler struct {
	status        *usecase.StatusUseCase
	awaitInterval time.Duration
	awaitAttempts int
}

// NewStatusHandler creates a new StatusHandler. awaitInterval and
// awaitAttempts bound blocking polls; zero values fall back to the
// use case defaults.
func NewStatusHandler(status *usecase.StatusUseCase, awaitInterval time.Duration, awaitAttempts int) *StatusHandler {
	return &StatusHandler{
		status:        status,
		awaitInterval: awaitInterval,
		awaitAttempts: awaitAttempts,
	}
}

// PollIntent handles GET /status/{correlationID} and
// GET /payments/status?correlationId=... With ?wait=1 the request
// blocks for a bounded number of polls before reporting a timeout.
func (h *StatusHandler) PollIntent(w http.ResponseWriter, r *http.Request) {
	correlationID := chi.URLParam(r, "correlationID")
	if correlationID == "" {
		correlationID = r.URL.Query().Get("correlationId")
	}

	var (
		view *usecase.StatusView
		err  error
	)

	if r.URL.Query().Get("wait") != "" {
		view, err = h.status.AwaitIntent(r.Context(), correlationID, h.awaitInterval, h.awaitAttempts)
	} else {
		view, err = h.status.PollIntent(r.Context(), correlationID)
	}

	if err != nil {
		writeError(w, mapDomainError(err), "failed to poll status", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// PollWithdrawal handles GET /withdrawals/{id}/status.
func (h *StatusHandler) PollWithdrawal(w http.ResponseWriter, r *http.Request) {
	view, err := h.status.PollWithdrawal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to poll status", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, view)
}
