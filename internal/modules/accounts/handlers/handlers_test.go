package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/networth/internal/modules/accounts"
	testingpkg "github.com/aristath/networth/internal/testing"
)

func TestAccountRoutes(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "networth")
	defer cleanup()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	router := chi.NewRouter()
	NewHandler(accounts.NewRepository(db.Conn(), nil, log), log).RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodPut, "/accounts/broker",
		bytes.NewBufferString(`{"name":"Broker","currency":"EUR","category":"investment","tracked":true}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	req = httptest.NewRequest(http.MethodPut, "/accounts/bad", bytes.NewBufferString(`{"currency":"euro"}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/accounts", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"broker"`)
	assert.Contains(t, w.Body.String(), `"tracked":true`)

	req = httptest.NewRequest(http.MethodDelete, "/accounts/broker", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/accounts/broker", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
