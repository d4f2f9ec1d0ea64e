package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/taskearn/paycore/internal/adapter/http/dto"
	"github.com/taskearn/paycore/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrIntentNotFound),
		errors.Is(err, domain.ErrWithdrawalNotFound),
		errors.Is(err, domain.ErrCommissionNotFound),
		errors.Is(err, domain.ErrSettingNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrAlreadyPaid),
		errors.Is(err, domain.ErrDuplicateCorrelationID):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidPhone),
		errors.Is(err, domain.ErrAmountBelowMinimum),
		errors.Is(err, domain.ErrAmountAboveMaximum):
		return http.StatusBadRequest
	case domain.IsInvalidTransition(err):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrGatewayRejected):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
