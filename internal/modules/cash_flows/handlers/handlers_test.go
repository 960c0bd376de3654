package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/networth/internal/modules/cash_flows"
	testingpkg "github.com/aristath/networth/internal/testing"
)

func setupRouter(t *testing.T) chi.Router {
	db, cleanup := testingpkg.NewTestDB(t, "networth")
	t.Cleanup(cleanup)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	router := chi.NewRouter()
	NewHandler(cash_flows.NewRepository(db.Conn(), nil, log), log).RegisterRoutes(router)
	return router
}

func TestFlowRoutes(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/flows",
		bytes.NewBufferString(`{"date":"2024-01-15","account_id":"broker","amount":"300.00","kind":"contribution","note":"salary"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)

	req = httptest.NewRequest(http.MethodGet, "/flows?accounts=broker&from=2024-01-01&to=2024-01-31", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"contribution"`)
	assert.Contains(t, w.Body.String(), `"date":"2024-01-15"`)

	req = httptest.NewRequest(http.MethodDelete, "/flows/"+created.Data.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/flows/"+created.Data.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFlowRoutes_RejectsInvalid(t *testing.T) {
	router := setupRouter(t)

	for _, body := range []string{
		`{"date":"2024-01-15","account_id":"broker","amount":"-5","kind":"contribution"}`,
		`{"date":"2024-01-15","account_id":"broker","amount":null,"kind":"contribution"}`,
		`{"date":"15/01/2024","account_id":"broker","amount":"5","kind":"contribution"}`,
		`{"date":"2024-01-15","account_id":"broker","amount":"5","kind":"dividend"}`,
		`not json`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/flows", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}

	req := httptest.NewRequest(http.MethodGet, "/flows?from=2024-02-01&to=2024-01-01", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
