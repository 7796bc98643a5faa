package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/otp-relay/internal/domain"
)

// InventoryService is the slice of the inventory service the handler needs.
type InventoryService interface {
	AddRange(ctx context.Context, country, flag, service string, file io.Reader) (*domain.NumberRange, error)
	List(ctx context.Context) ([]domain.NumberRange, error)
	Remove(ctx context.Context, rangeID string) error
	RangeFile(ctx context.Context, rangeID string) (*domain.NumberRange, io.ReadCloser, error)
}

type RangeHandler struct {
	inventory InventoryService
}

func NewRangeHandler(inventory InventoryService) *RangeHandler {
	return &RangeHandler{inventory: inventory}
}

func (h *RangeHandler) List(w http.ResponseWriter, r *http.Request) {
	ranges, err := h.inventory.List(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ranges)
}

// Upload accepts a multipart form with a "file" part and country, flag and
// service fields.
func (h *RangeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	country := r.FormValue("country")
	if country == "" {
		writeError(w, http.StatusBadRequest, "missing country")
		return
	}
	nr, err := h.inventory.AddRange(r.Context(), country, r.FormValue("flag"), r.FormValue("service"), file)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, nr)
}

func (h *RangeHandler) Download(w http.ResponseWriter, r *http.Request) {
	rangeID := chi.URLParam(r, "id")
	nr, rc, err := h.inventory.RangeFile(r.Context(), rangeID)
	if err != nil {
		httpError(w, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Content-Disposition", `attachment; filename="`+nr.RangeID+`.txt"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

func (h *RangeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.inventory.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "range deleted"})
}
