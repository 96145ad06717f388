package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/currency"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticRates struct{}

func (staticRates) GetFxRates(ctx context.Context) (*domain.FxRateSet, error) {
	return &domain.FxRateSet{
		Base:  domain.CurrencyUSD,
		Rates: map[domain.Currency]float64{domain.CurrencyCNY: 7, domain.CurrencyHKD: 7.8},
	}, nil
}

func setupRouter() chi.Router {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(currency.NewService(staticRates{}, logger), logger)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func TestHandleGetRates(t *testing.T) {
	router := setupRouter()

	req := httptest.NewRequest("GET", "/currency/rates", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Contains(t, response, "data")
	assert.Contains(t, response, "metadata")
	data := response["data"].(map[string]interface{})
	assert.Equal(t, currency.SourceProvider, data["source"])
}

func TestHandleConvertQuery(t *testing.T) {
	router := setupRouter()

	req := httptest.NewRequest("GET", "/currency/convert?amount=10&from=usd&to=CNY", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Data currency.Conversion `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.InDelta(t, 70, response.Data.Result, 1e-9)
	assert.InDelta(t, 7, response.Data.Rate, 1e-9)
}

func TestHandleConvert(t *testing.T) {
	router := setupRouter()

	body, _ := json.Marshal(ConvertRequest{FromCurrency: "HKD", ToCurrency: "USD", Amount: 78})
	req := httptest.NewRequest("POST", "/currency/convert", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Data currency.Conversion `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.InDelta(t, 10, response.Data.Result, 1e-9)
}

func TestHandleConvert_BadRequests(t *testing.T) {
	router := setupRouter()

	testCases := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"bad amount", "GET", "/currency/convert?amount=x&from=USD&to=CNY", ""},
		{"missing to", "GET", "/currency/convert?amount=1&from=USD", ""},
		{"unknown currency", "GET", "/currency/convert?amount=1&from=EUR&to=CNY", ""},
		{"invalid json", "POST", "/currency/convert", "{"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(tc.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandleGetAvailableCurrencies(t *testing.T) {
	router := setupRouter()

	req := httptest.NewRequest("GET", "/currency/available-currencies", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["count"])
}
