package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskearn/paycore/internal/adapter/http/dto"
	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/usecase"
)

// SettingsHandler serves the operator-tunable settings.
type SettingsHandler struct {
	settings *usecase.SettingsUseCase
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settings *usecase.SettingsUseCase) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// List handles GET /settings.
func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.List(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list settings", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SettingsFromDomain(settings))
}

// Get handles GET /settings/{key}.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	setting, err := h.settings.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get setting", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SettingFromDomain(setting))
}

// Update handles PUT /settings/{key}.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	setting := &domain.Setting{
		Key:       chi.URLParam(r, "key"),
		Type:      domain.SettingType(req.Type),
		RawValue:  req.Value,
		UpdatedBy: req.UpdatedBy,
	}

	if err := h.settings.Set(r.Context(), setting, req.Reason); err != nil {
		writeError(w, http.StatusBadRequest, "failed to update setting", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SettingFromDomain(setting))
}
