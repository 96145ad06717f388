package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers trade journal and position routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/trades", func(r chi.Router) {
		r.Get("/", h.HandleGetTrades)
		r.Post("/", h.HandleRecordTrade)
		r.Get("/summary", h.HandleGetTradesSummary)
		r.Get("/{id}", h.HandleGetTrade)
		r.Patch("/{id}", h.HandleAnnotateTrade)
		r.Delete("/{id}", h.HandleDeleteTrade)
	})

	r.Route("/positions", func(r chi.Router) {
		r.Get("/", h.HandleGetPositions)
		r.Get("/{symbol}", h.HandleGetPosition)
	})
}
