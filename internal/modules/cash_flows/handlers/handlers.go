// Package handlers provides HTTP handlers for flow annotations.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/utils"
)

// FlowStore records and lists flow annotations
type FlowStore interface {
	Record(ctx context.Context, f domain.FlowAnnotation) (domain.FlowAnnotation, error)
	List(ctx context.Context, accountIDs []string, rng domain.DateRange) ([]domain.FlowAnnotation, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Handler handles flow annotation requests
type Handler struct {
	store FlowStore
	log   zerolog.Logger
}

// NewHandler creates a new flow annotation handler
func NewHandler(store FlowStore, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "cash_flows").Logger(),
	}
}

// RegisterRoutes registers flow annotation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/flows", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleRecord)
		r.Delete("/{id}", h.HandleDelete)
	})
}

// HandleRecord handles POST /api/flows
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	var f domain.FlowAnnotation
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		if !domain.IsValidationError(err) {
			err = domain.NewValidationError("body", err.Error())
		}
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	saved, err := h.store.Record(r.Context(), f)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data":     saved,
		"metadata": map[string]interface{}{"timestamp": time.Now().Format(time.RFC3339)},
	})
}

// HandleList handles GET /api/flows?accounts=&from=&to=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	rng, err := utils.ParseDateRange(r.URL.Query())
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	list, err := h.store.List(r.Context(), utils.ParseCSV(r.URL.Query().Get("accounts")), rng)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if list == nil {
		list = []domain.FlowAnnotation{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     list,
		"metadata": map[string]interface{}{"timestamp": time.Now().Format(time.RFC3339)},
	})
}

// HandleDelete handles DELETE /api/flows/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.store.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if !deleted {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "flow annotation not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	if domain.IsValidationError(err) {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	h.log.Error().Err(err).Msg("Flow request failed")
	h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
