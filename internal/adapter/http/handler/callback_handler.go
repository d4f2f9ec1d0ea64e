package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/taskearn/paycore/internal/adapter/http/dto"
	"github.com/taskearn/paycore/internal/infrastructure/logging"
	"github.com/taskearn/paycore/internal/usecase"
)

// CallbackHandler receives asynchronous gateway results. The gateway
// redelivers on non-2xx, so every parseable callback is acknowledged
// with ResultCode 0 no matter how reconciliation went; only a body that
// cannot be parsed at all is rejected.
type CallbackHandler struct {
	callbacks *usecase.CallbackUseCase
	logger    *logging.Logger
}

// NewCallbackHandler creates a new CallbackHandler.
func NewCallbackHandler(callbacks *usecase.CallbackUseCase, logger *logging.Logger) *CallbackHandler {
	return &CallbackHandler{
		callbacks: callbacks,
		logger:    logger,
	}
}

// STKCallback handles POST /payments/callback.
func (h *CallbackHandler) STKCallback(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body", "")
		return
	}

	var payload dto.STKCallbackPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed callback", "")
		return
	}

	// A parseable body without a correlation id has nothing to
	// reconcile; acknowledge it so the gateway does not redeliver.
	if payload.Body.StkCallback.CheckoutRequestID == "" {
		h.logger.WarnCtx(r.Context(), "collection callback without correlation id",
			"result_code", payload.Body.StkCallback.ResultCode,
		)
		writeJSON(w, http.StatusOK, dto.AcceptedAck())
		return
	}

	if _, err := h.callbacks.HandleCollection(r.Context(), payload.ToUseCaseInput(raw)); err != nil {
		// Acknowledged anyway: redelivery would hit the same error, and
		// the timeout sweep covers intents stuck pending.
		h.logger.ErrorCtx(r.Context(), "collection callback reconciliation failed",
			"correlation_id", payload.Body.StkCallback.CheckoutRequestID,
			"error", err,
		)
	}

	writeJSON(w, http.StatusOK, dto.AcceptedAck())
}

// B2CResult handles POST /payments/b2c/result.
func (h *CallbackHandler) B2CResult(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body", "")
		return
	}

	var payload dto.B2CResultPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed callback", "")
		return
	}

	if payload.Result.ConversationID == "" {
		h.logger.WarnCtx(r.Context(), "disbursement result without correlation id",
			"result_code", payload.Result.ResultCode,
		)
		writeJSON(w, http.StatusOK, dto.AcceptedAck())
		return
	}

	if _, err := h.callbacks.HandleDisbursement(r.Context(), payload.ToUseCaseInput(raw)); err != nil {
		h.logger.ErrorCtx(r.Context(), "disbursement callback reconciliation failed",
			"correlation_id", payload.Result.ConversationID,
			"error", err,
		)
	}

	writeJSON(w, http.StatusOK, dto.AcceptedAck())
}

// B2CTimeout handles POST /payments/b2c/timeout. The gateway could not
// deliver a result in time; the intent stays pending for the sweep.
func (h *CallbackHandler) B2CTimeout(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)

	h.logger.WarnCtx(r.Context(), "b2c timeout notification received",
		"body_bytes", len(raw),
	)

	writeJSON(w, http.StatusOK, dto.AcceptedAck())
}
