// Package handlers provides HTTP handlers for the snapshot store.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/utils"
)

// Store is the snapshot store as seen by the HTTP layer
type Store interface {
	Put(ctx context.Context, s domain.Snapshot) error
	Query(ctx context.Context, accountIDs []string, rng domain.DateRange) ([]domain.Snapshot, error)
	Delete(ctx context.Context, accountID string, date time.Time) (bool, error)
	Export(ctx context.Context) ([]domain.Snapshot, error)
	Import(ctx context.Context, batch []domain.Snapshot) (int, error)
}

// Handler handles snapshot HTTP requests
type Handler struct {
	store Store
	log   zerolog.Logger
}

// NewHandler creates a new snapshot handler
func NewHandler(store Store, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "snapshots").Logger(),
	}
}

// HandleRecord handles POST /api/snapshots
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	var s domain.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		h.writeError(w, asValidation(err))
		return
	}

	if err := h.store.Put(r.Context(), s); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, envelope(s.Normalized()))
}

// HandleList handles GET /api/snapshots?accounts=&from=&to=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	rng, err := utils.ParseDateRange(r.URL.Query())
	if err != nil {
		h.writeError(w, err)
		return
	}

	list, err := h.store.Query(r.Context(), utils.ParseCSV(r.URL.Query().Get("accounts")), rng)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(nonNil(list)))
}

// HandleDelete handles DELETE /api/snapshots/{account_id}/{date}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	date, err := domain.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.writeError(w, domain.NewValidationError("date", "must be YYYY-MM-DD"))
		return
	}

	deleted, err := h.store.Delete(r.Context(), chi.URLParam(r, "account_id"), date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !deleted {
		h.writeError(w, domain.ErrNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleExport handles GET /api/snapshots/export
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.Export(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(nonNil(list)))
}

// HandleImport handles POST /api/snapshots/import with a flat JSON array
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	var batch []domain.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		h.writeError(w, asValidation(err))
		return
	}

	n, err := h.store.Import(r.Context(), batch)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]int{"imported": n}))
}

func nonNil(list []domain.Snapshot) []domain.Snapshot {
	if list == nil {
		return []domain.Snapshot{}
	}
	return list
}

func asValidation(err error) error {
	if domain.IsValidationError(err) {
		return err
	}
	return domain.NewValidationError("body", err.Error())
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsValidationError(err):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	default:
		h.log.Error().Err(err).Msg("Snapshot request failed")
	}

	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
