package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers risk routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/risk", func(r chi.Router) {
		r.Get("/", h.HandleAssess)
		r.Get("/policy", h.HandleGetPolicy)
	})
}
