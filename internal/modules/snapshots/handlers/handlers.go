// Package handlers provides HTTP handlers for account snapshots.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/snapshots"
	"github.com/rs/zerolog"
)

// Handler handles snapshot HTTP requests
type Handler struct {
	service *snapshots.Service
	log     zerolog.Logger
}

// NewHandler creates a new snapshot handler
func NewHandler(service *snapshots.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "snapshots").Logger(),
	}
}

// RebuildRequest is the body of POST /api/snapshots/rebuild
type RebuildRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Persist *bool  `json:"persist"`
}

// HandleList handles GET /api/snapshots?from=&to=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	series, err := h.service.List(from, to)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list snapshots")
		http.Error(w, "Failed to list snapshots", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"snapshots": series,
		"count":     len(series),
	}))
}

// HandleLatest handles GET /api/snapshots/latest
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	latest, err := h.service.Latest()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get latest snapshot")
		http.Error(w, "Failed to get latest snapshot", http.StatusInternalServerError)
		return
	}
	if latest == nil {
		http.Error(w, "No snapshots stored", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(latest))
}

// HandleSave handles POST /api/snapshots
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var snap domain.AccountSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	saved, err := h.service.SaveManual(snap)
	if err != nil {
		if domain.IsValidation(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("date", snap.Date).Msg("Failed to save snapshot")
		http.Error(w, "Failed to save snapshot", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, envelope(saved))
}

// HandleRebuild handles POST /api/snapshots/rebuild
func (h *Handler) HandleRebuild(w http.ResponseWriter, r *http.Request) {
	var req RebuildRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	for field, value := range map[string]string{"from": req.From, "to": req.To} {
		if value == "" {
			continue
		}
		if _, err := domain.ParseDate(value); err != nil {
			http.Error(w, field+" must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	persist := true
	if req.Persist != nil {
		persist = *req.Persist
	}

	result, err := h.service.Rebuild(r.Context(), snapshots.RebuildOptions{
		From:    req.From,
		To:      req.To,
		Persist: persist,
	})
	if err != nil {
		if errors.Is(err, r.Context().Err()) {
			http.Error(w, "Rebuild cancelled", http.StatusServiceUnavailable)
			return
		}
		h.log.Error().Err(err).Msg("Snapshot rebuild failed")
		http.Error(w, "Snapshot rebuild failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(result))
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
