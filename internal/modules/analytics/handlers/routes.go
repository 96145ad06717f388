package handlers

import (
	"github.com/aristath/journal/internal/modules/analytics"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all analytics routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/overview", h.HandleOverview)
		r.Get("/stats", h.HandleStats)
		r.Get("/streaks", h.HandleStreaks)
		r.Get("/drawdown", h.HandleDrawdown)
		r.Get("/distribution", h.HandleDistribution)
		r.Get("/asset-curve", h.HandleAssetCurve)

		// Breakdowns
		r.Get("/daily", h.breakdown(analytics.ByDay, "daily"))
		r.Get("/monthly", h.breakdown(analytics.ByMonth, "monthly"))
		r.Get("/strategies", h.breakdown(analytics.ByStrategy, "strategy"))
		r.Get("/emotions", h.breakdown(analytics.ByEmotion, "emotion"))
	})
}
