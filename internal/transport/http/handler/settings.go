package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/otp-relay/internal/domain"
	"github.com/otp-relay/internal/pkg/validate"
)

// AutoDeleteService is the slice of the cleanup sweeper the handler needs.
type AutoDeleteService interface {
	Settings(ctx context.Context) (domain.AutoDeleteSettings, error)
	SetMinutes(ctx context.Context, minutes int) error
}

type SettingsHandler struct {
	autodelete AutoDeleteService
}

func NewSettingsHandler(autodelete AutoDeleteService) *SettingsHandler {
	return &SettingsHandler{autodelete: autodelete}
}

func (h *SettingsHandler) GetAutoDelete(w http.ResponseWriter, r *http.Request) {
	settings, err := h.autodelete.Settings(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type autoDeleteRequest struct {
	Minutes *int `json:"minutes" validate:"required,min=0,max=10080"`
}

func (h *SettingsHandler) PutAutoDelete(w http.ResponseWriter, r *http.Request) {
	var req autoDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.autodelete.SetMinutes(r.Context(), *req.Minutes); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "autodelete updated"})
}
