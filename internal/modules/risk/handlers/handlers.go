// Package handlers provides HTTP handlers for risk assessment.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/journal/internal/modules/risk"
	"github.com/rs/zerolog"
)

// Handler handles risk HTTP requests
type Handler struct {
	service *risk.Service
	log     zerolog.Logger
}

// NewHandler creates a new risk handler
func NewHandler(service *risk.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "risk").Logger(),
	}
}

// HandleAssess handles GET /api/risk
func (h *Handler) HandleAssess(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Assess(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to assess risk")
		http.Error(w, "Failed to assess risk", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": report,
		"metadata": map[string]interface{}{
			"timestamp":   time.Now().Format(time.RFC3339),
			"price_stale": report.PriceStale,
			"fx_stale":    report.FxStale,
		},
	})
}

// HandleGetPolicy handles GET /api/risk/policy
func (h *Handler) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": h.service.Policy(),
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
