// Package handlers provides HTTP handlers for benchmark series.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/modules/benchmarks"
	"github.com/aristath/networth/internal/utils"
)

// Store is the benchmark repository as seen by the HTTP layer
type Store interface {
	Put(ctx context.Context, benchmarkID string, points []domain.BenchmarkPoint) error
	Series(ctx context.Context, benchmarkID string, rng domain.DateRange) ([]domain.BenchmarkPoint, error)
	List(ctx context.Context) ([]benchmarks.Summary, error)
}

// Handler handles benchmark requests
type Handler struct {
	store Store
	log   zerolog.Logger
}

// NewHandler creates a new benchmark handler
func NewHandler(store Store, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "benchmarks").Logger(),
	}
}

// RegisterRoutes registers benchmark routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/benchmarks", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/catalog", h.HandleCatalog)
		r.Get("/{id}", h.HandleSeries)
		r.Post("/{id}", h.HandleRecord)
	})
}

// HandleList handles GET /api/benchmarks
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if list == nil {
		list = []benchmarks.Summary{}
	}
	h.writeData(w, http.StatusOK, list)
}

// HandleCatalog handles GET /api/benchmarks/catalog
func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, benchmarks.StandardBenchmarks)
}

// HandleSeries handles GET /api/benchmarks/{id}?from=&to=
func (h *Handler) HandleSeries(w http.ResponseWriter, r *http.Request) {
	rng, err := utils.ParseDateRange(r.URL.Query())
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	points, err := h.store.Series(r.Context(), chi.URLParam(r, "id"), rng)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if points == nil {
		points = []domain.BenchmarkPoint{}
	}
	h.writeData(w, http.StatusOK, points)
}

// HandleRecord handles POST /api/benchmarks/{id} with an array of {date, value}
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	var points []domain.BenchmarkPoint
	if err := json.NewDecoder(r.Body).Decode(&points); err != nil {
		if !domain.IsValidationError(err) {
			err = domain.NewValidationError("body", err.Error())
		}
		h.writeFailure(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.store.Put(r.Context(), id, points); err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeData(w, http.StatusOK, map[string]interface{}{"benchmark_id": id, "stored": len(points)})
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data":     data,
		"metadata": map[string]interface{}{"timestamp": time.Now().Format(time.RFC3339)},
	})
}

func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	if domain.IsValidationError(err) {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	h.log.Error().Err(err).Msg("Benchmark request failed")
	h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
