// Package handlers exposes the analytics accessors over HTTP.
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
	"github.com/aristath/networth/internal/modules/analytics"
	"github.com/aristath/networth/internal/utils"
)

// Engine is the analytics read side
type Engine interface {
	GetDailySeries(ctx context.Context, p domain.Params) (*analytics.DailySeries, error)
	GetCashFlowBreakdown(ctx context.Context, p domain.Params) (*analytics.CashFlowReport, error)
	GetRiskMetrics(ctx context.Context, p domain.Params) (*analytics.RiskReport, error)
	GetCorrelationMatrix(ctx context.Context, p domain.Params) (*analytics.CorrelationReport, error)
	CacheStats() analytics.CacheStats
	Invalidate(reason string)
}

// Handler handles analytics requests
type Handler struct {
	engine Engine
	log    zerolog.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(engine Engine, log zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		log:    log.With().Str("handler", "analytics").Logger(),
	}
}

// RegisterRoutes registers analytics routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/series", h.HandleSeries)
		r.Get("/cash-flows", h.HandleCashFlows)
		r.Get("/risk", h.HandleRisk)
		r.Get("/correlation", h.HandleCorrelation)
		r.Get("/cache", h.HandleCacheStats)
		r.Delete("/cache", h.HandleInvalidate)
	})
}

// HandleSeries handles GET /api/analytics/series?accounts=&from=&to=&base_currency=
func (h *Handler) HandleSeries(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.engine.GetDailySeries)
}

// HandleCashFlows handles GET /api/analytics/cash-flows
func (h *Handler) HandleCashFlows(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.engine.GetCashFlowBreakdown)
}

// HandleRisk handles GET /api/analytics/risk?benchmark=
func (h *Handler) HandleRisk(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.engine.GetRiskMetrics)
}

// HandleCorrelation handles GET /api/analytics/correlation
func (h *Handler) HandleCorrelation(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.engine.GetCorrelationMatrix)
}

// HandleCacheStats handles GET /api/analytics/cache
func (h *Handler) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, envelope(h.engine.CacheStats()))
}

// HandleInvalidate handles DELETE /api/analytics/cache
func (h *Handler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	h.engine.Invalidate("api")
	w.WriteHeader(http.StatusNoContent)
}

func serve[V any](h *Handler, w http.ResponseWriter, r *http.Request, get func(context.Context, domain.Params) (V, error)) {
	params, err := utils.ParseParams(r.URL.Query())
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	result, err := get(r.Context(), params)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(result))
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data":     data,
		"metadata": map[string]interface{}{"timestamp": time.Now().Format(time.RFC3339)},
	}
}

func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsValidationError(err):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, context.Canceled):
		h.log.Debug().Str("path", r.URL.Path).Msg("Client went away")
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("Analytics request failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
