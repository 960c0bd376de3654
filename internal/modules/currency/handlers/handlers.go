// Package handlers provides HTTP handlers for FX rates.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/utils"
)

// RateService is the currency normalizer as seen by the HTTP layer
type RateService interface {
	Base() string
	Rate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error)
	Rates(ctx context.Context, currency string, rng domain.DateRange) ([]domain.FXRate, error)
	SetRate(ctx context.Context, rate domain.FXRate) (domain.FXRate, error)
	Refresh(ctx context.Context, asOf time.Time) error
}

// Handler handles currency HTTP requests
type Handler struct {
	rates RateService
	log   zerolog.Logger
}

// NewHandler creates a new currency handler
func NewHandler(rates RateService, log zerolog.Logger) *Handler {
	return &Handler{
		rates: rates,
		log:   log.With().Str("handler", "currency").Logger(),
	}
}

// RegisterRoutes registers all currency routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/currency", func(r chi.Router) {
		r.Get("/rates", h.HandleListRates)
		r.Post("/rates", h.HandleSetRate)
		r.Get("/rate/{currency}/{date}", h.HandleGetRate)
		r.Post("/refresh", h.HandleRefresh)
	})
}

// HandleListRates handles GET /api/currency/rates?currency=&from=&to=
func (h *Handler) HandleListRates(w http.ResponseWriter, r *http.Request) {
	rng, err := utils.ParseDateRange(r.URL.Query())
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	rates, err := h.rates.Rates(r.Context(), r.URL.Query().Get("currency"), rng)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if rates == nil {
		rates = []domain.FXRate{}
	}
	h.writeData(w, http.StatusOK, map[string]interface{}{
		"base_currency": h.rates.Base(),
		"rates":         rates,
	})
}

// HandleSetRate handles POST /api/currency/rates
func (h *Handler) HandleSetRate(w http.ResponseWriter, r *http.Request) {
	var rate domain.FXRate
	if err := json.NewDecoder(r.Body).Decode(&rate); err != nil {
		if !domain.IsValidationError(err) {
			err = domain.NewValidationError("body", err.Error())
		}
		h.writeFailure(w, err)
		return
	}

	saved, err := h.rates.SetRate(r.Context(), rate)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeData(w, http.StatusCreated, saved)
}

// HandleGetRate handles GET /api/currency/rate/{currency}/{date}.
// The resolved rate may be carried forward from an earlier date.
func (h *Handler) HandleGetRate(w http.ResponseWriter, r *http.Request) {
	date, err := domain.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.writeFailure(w, domain.NewValidationError("date", "must be YYYY-MM-DD"))
		return
	}
	currency := chi.URLParam(r, "currency")

	rate, err := h.rates.Rate(r.Context(), currency, date)
	if domain.IsRateUnavailable(err) {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"base_currency": h.rates.Base(),
		"currency":      currency,
		"date":          domain.FormatDate(date),
		"rate":          rate,
	})
}

// HandleRefresh handles POST /api/currency/refresh?date=
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	asOf := domain.TruncateDate(time.Now())
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := domain.ParseDate(v)
		if err != nil {
			h.writeFailure(w, domain.NewValidationError("date", "must be YYYY-MM-DD"))
			return
		}
		asOf = d
	}

	if err := h.rates.Refresh(r.Context(), asOf); err != nil {
		h.log.Warn().Err(err).Msg("Manual rate refresh failed")
		h.writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	h.writeData(w, http.StatusOK, map[string]string{"status": "refreshed", "as_of": domain.FormatDate(asOf)})
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
	h.log.Error().Err(err).Msg("Currency request failed")
	h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
