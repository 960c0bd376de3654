package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/modules/analytics"
	"github.com/aristath/networth/internal/modules/risk"
)

type fakeEngine struct {
	params      domain.Params
	err         error
	invalidated string
}

func (f *fakeEngine) GetDailySeries(_ context.Context, p domain.Params) (*analytics.DailySeries, error) {
	f.params = p
	return &analytics.DailySeries{Meta: analytics.Meta{BaseCurrency: "USD"}}, f.err
}

func (f *fakeEngine) GetCashFlowBreakdown(_ context.Context, p domain.Params) (*analytics.CashFlowReport, error) {
	f.params = p
	return &analytics.CashFlowReport{}, f.err
}

func (f *fakeEngine) GetRiskMetrics(_ context.Context, p domain.Params) (*analytics.RiskReport, error) {
	f.params = p
	return &analytics.RiskReport{Metrics: &risk.Result{RiskCategory: risk.CategoryGood}}, f.err
}

func (f *fakeEngine) GetCorrelationMatrix(_ context.Context, p domain.Params) (*analytics.CorrelationReport, error) {
	f.params = p
	return &analytics.CorrelationReport{}, f.err
}

func (f *fakeEngine) CacheStats() analytics.CacheStats {
	return analytics.CacheStats{Recomputes: 7}
}

func (f *fakeEngine) Invalidate(reason string) {
	f.invalidated = reason
}

func serveRequest(engine Engine, method, path string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	NewHandler(engine, zerolog.New(nil).Level(zerolog.Disabled)).RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestAnalyticsRoutes(t *testing.T) {
	engine := &fakeEngine{}

	w := serveRequest(engine, http.MethodGet, "/analytics/risk?accounts=a,b&from=2024-01-01&to=2024-06-30&benchmark=%5EGSPC&base_currency=usd")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"risk_category":"Good"`)
	assert.Equal(t, []string{"a", "b"}, engine.params.AccountIDs)
	assert.Equal(t, "^GSPC", engine.params.BenchmarkID)
	assert.Equal(t, "USD", engine.params.BaseCurrency)
	assert.Equal(t, "2024-06-30", domain.FormatDate(engine.params.Range.To))

	for _, path := range []string{"/analytics/series", "/analytics/cash-flows", "/analytics/correlation"} {
		w = serveRequest(engine, http.MethodGet, path)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), `"metadata"`, path)
	}

	w = serveRequest(engine, http.MethodGet, "/analytics/cache")
	assert.Contains(t, w.Body.String(), `"recomputes":7`)

	w = serveRequest(engine, http.MethodDelete, "/analytics/cache")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "api", engine.invalidated)
}

func TestAnalyticsErrors(t *testing.T) {
	w := serveRequest(&fakeEngine{}, http.MethodGet, "/analytics/series?from=2024-02-01&to=2024-01-01")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serveRequest(&fakeEngine{err: domain.NewValidationError("base_currency", "must be USD")}, http.MethodGet, "/analytics/series")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serveRequest(&fakeEngine{err: errors.New("disk on fire")}, http.MethodGet, "/analytics/risk")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
