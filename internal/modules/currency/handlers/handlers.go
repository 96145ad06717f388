// Package handlers provides HTTP handlers for currency operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/currency"
	"github.com/rs/zerolog"
)

// Handler handles currency HTTP requests
type Handler struct {
	service *currency.Service
	log     zerolog.Logger
}

// NewHandler creates a new currency handler
func NewHandler(service *currency.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "currency").Logger(),
	}
}

// ConvertRequest represents a request to convert currency
type ConvertRequest struct {
	FromCurrency string  `json:"from_currency"`
	ToCurrency   string  `json:"to_currency"`
	Amount       float64 `json:"amount"`
}

// HandleGetRates handles GET /api/currency/rates
func (h *Handler) HandleGetRates(w http.ResponseWriter, r *http.Request) {
	rates := h.service.Rates(r.Context())
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": rates,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"stale":     rates.Stale,
		},
	})
}

// HandleConvertQuery handles GET /api/currency/convert?amount=&from=&to=
func (h *Handler) HandleConvertQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := strconv.ParseFloat(q.Get("amount"), 64)
	if err != nil {
		http.Error(w, "amount must be a number", http.StatusBadRequest)
		return
	}
	h.convert(w, r, ConvertRequest{FromCurrency: q.Get("from"), ToCurrency: q.Get("to"), Amount: amount})
}

// HandleConvert handles POST /api/currency/convert
func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	h.convert(w, r, req)
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request, req ConvertRequest) {
	if req.FromCurrency == "" || req.ToCurrency == "" {
		http.Error(w, "from and to currencies are required", http.StatusBadRequest)
		return
	}

	conv, err := h.service.Convert(r.Context(), req.Amount,
		domain.ParseCurrency(req.FromCurrency), domain.ParseCurrency(req.ToCurrency))
	if err != nil {
		if errors.Is(err, domain.ErrNoRate) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Msg("Failed to convert amount")
		http.Error(w, "Failed to convert amount", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": conv,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetAvailableCurrencies handles GET /api/currency/available-currencies
func (h *Handler) HandleGetAvailableCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies := []map[string]interface{}{
		{"code": "CNY", "name": "Chinese Yuan", "symbol": "¥", "market": domain.MarketCN},
		{"code": "HKD", "name": "Hong Kong Dollar", "symbol": "HK$", "market": domain.MarketHK},
		{"code": "USD", "name": "US Dollar", "symbol": "$", "market": domain.MarketUS},
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"currencies": currencies,
			"count":      len(currencies),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
