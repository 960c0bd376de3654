// Package handlers provides HTTP handlers for the account registry.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/domain"
)

// Registry is the account registry as seen by the HTTP layer
type Registry interface {
	Upsert(ctx context.Context, a domain.Account) error
	List(ctx context.Context) ([]domain.Account, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Handler handles account registry requests
type Handler struct {
	registry Registry
	log      zerolog.Logger
}

// NewHandler creates a new accounts handler
func NewHandler(registry Registry, log zerolog.Logger) *Handler {
	return &Handler{
		registry: registry,
		log:      log.With().Str("handler", "accounts").Logger(),
	}
}

// RegisterRoutes registers account registry routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Put("/{id}", h.HandleUpsert)
		r.Delete("/{id}", h.HandleDelete)
	})
}

// HandleList handles GET /api/accounts
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.registry.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list accounts")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if list == nil {
		list = []domain.Account{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     list,
		"metadata": map[string]interface{}{"timestamp": time.Now().Format(time.RFC3339)},
	})
}

// HandleUpsert handles PUT /api/accounts/{id}
func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var a domain.Account
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	a.ID = chi.URLParam(r, "id")

	if err := h.registry.Upsert(r.Context(), a); err != nil {
		status := http.StatusInternalServerError
		if domain.IsValidationError(err) {
			status = http.StatusBadRequest
		} else {
			h.log.Error().Err(err).Str("id", a.ID).Msg("Failed to upsert account")
		}
		h.writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": a})
}

// HandleDelete handles DELETE /api/accounts/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.registry.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to delete account")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !deleted {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "account not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
