package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/journal/internal/database"
	"github.com/aristath/journal/internal/modules/settings"
	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) chi.Router {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.ApplySchema(db, database.NameJournal))
	t.Cleanup(func() { db.Close() })

	logger := zerolog.New(nil).Level(zerolog.Disabled)
	svc := settings.NewService(settings.NewRepository(db, logger), nil, logger)
	router := chi.NewRouter()
	NewHandler(svc, logger).RegisterRoutes(router)
	return router
}

func put(router chi.Router, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("PUT", "/settings/"+key, bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getAll(t *testing.T, router chi.Router) map[string]interface{} {
	req := httptest.NewRequest("GET", "/settings/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response.Data
}

func TestHandleGetAll_Defaults(t *testing.T) {
	router := setupRouter(t)

	data := getAll(t, router)
	assert.Equal(t, settings.DefaultInitialCapital, data[settings.KeyInitialCapital])
	assert.Equal(t, "CNY", data[settings.KeyReportingCurrency])
}

func TestHandleUpdate(t *testing.T) {
	router := setupRouter(t)

	w := put(router, settings.KeyInitialCapital, `{"value": 50000}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"initial_capital":"50000"}`, w.Body.String())

	w = put(router, settings.KeyBackupSecretKey, `{"value": "hunter2"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")

	data := getAll(t, router)
	assert.Equal(t, "50000", data[settings.KeyInitialCapital])
	assert.Equal(t, "********", data[settings.KeyBackupSecretKey])
}

func TestHandleUpdate_BadRequests(t *testing.T) {
	router := setupRouter(t)

	assert.Equal(t, http.StatusBadRequest, put(router, settings.KeyInitialCapital, `{`).Code)
	assert.Equal(t, http.StatusBadRequest, put(router, settings.KeyInitialCapital, `{"value": -1}`).Code)
	assert.Equal(t, http.StatusBadRequest, put(router, "unknown", `{"value": 1}`).Code)
}

func TestHandleReset(t *testing.T) {
	router := setupRouter(t)

	require.Equal(t, http.StatusOK, put(router, settings.KeyReportingCurrency, `{"value": "HKD"}`).Code)

	req := httptest.NewRequest("DELETE", "/settings/"+settings.KeyReportingCurrency, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, "CNY", getAll(t, router)[settings.KeyReportingCurrency])
}
