// Package handlers provides HTTP handlers for journal analytics.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/analytics"
	"github.com/rs/zerolog"
)

// DefaultSMAPeriod is used when the asset curve request names none
const DefaultSMAPeriod = 20

// Handler handles analytics HTTP requests
type Handler struct {
	service *analytics.Service
	log     zerolog.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service *analytics.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analytics").Logger(),
	}
}

// parseRange reads from/to query parameters; ok is false after a 400 was written
func (h *Handler) parseRange(w http.ResponseWriter, r *http.Request) (analytics.Range, bool) {
	rng := analytics.Range{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	}
	for name, value := range map[string]string{"from": rng.From, "to": rng.To} {
		if value == "" {
			continue
		}
		if _, err := domain.ParseDate(value); err != nil {
			http.Error(w, name+" must be YYYY-MM-DD", http.StatusBadRequest)
			return rng, false
		}
	}
	return rng, true
}

// HandleOverview handles GET /api/analytics/overview
func (h *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	overview, err := h.service.Overview(rng)
	if err != nil {
		h.fail(w, err, "overview")
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(overview))
}

// HandleStats handles GET /api/analytics/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Stats(rng)
	if err != nil {
		h.fail(w, err, "stats")
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(stats))
}

// HandleStreaks handles GET /api/analytics/streaks
func (h *Handler) HandleStreaks(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	streaks, err := h.service.Streaks(rng)
	if err != nil {
		h.fail(w, err, "streaks")
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(streaks))
}

// HandleDrawdown handles GET /api/analytics/drawdown
func (h *Handler) HandleDrawdown(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	report, err := h.service.Drawdown(rng)
	if err != nil {
		h.fail(w, err, "drawdown")
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(report))
}

// HandleDistribution handles GET /api/analytics/distribution
func (h *Handler) HandleDistribution(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	pnl, ratio, err := h.service.Distribution(rng)
	if err != nil {
		h.fail(w, err, "distribution")
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"pnl":       pnl,
		"pnl_ratio": ratio,
	}))
}

// breakdown serves one grouping of realized sales
func (h *Handler) breakdown(key analytics.KeyFunc, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rng, ok := h.parseRange(w, r)
		if !ok {
			return
		}
		rows, err := h.service.Breakdown(rng, key)
		if err != nil {
			h.fail(w, err, name)
			return
		}
		h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
			"group": name,
			"rows":  rows,
		}))
	}
}

// HandleAssetCurve handles GET /api/analytics/asset-curve?sma=20
func (h *Handler) HandleAssetCurve(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	period := DefaultSMAPeriod
	if raw := r.URL.Query().Get("sma"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "sma must be a non-negative integer", http.StatusBadRequest)
			return
		}
		period = parsed
	}

	points, perf, err := h.service.AssetCurve(rng, period)
	if err != nil {
		h.fail(w, err, "asset curve")
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"points":      points,
		"sma_period":  period,
		"performance": perf,
	}))
}

func (h *Handler) fail(w http.ResponseWriter, err error, what string) {
	h.log.Error().Err(err).Str("report", what).Msg("Failed to compute analytics")
	http.Error(w, "Failed to compute "+what, http.StatusInternalServerError)
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
