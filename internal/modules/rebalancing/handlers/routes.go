package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all rebalancing routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/rebalancing", func(r chi.Router) {
		r.Post("/plans", h.HandleGeneratePlan)
		r.Get("/plans/{id}", h.HandleGetPlan)
		r.Post("/plans/{id}/status", h.HandleUpdateStatus)
		r.Get("/portfolios/{portfolioID}/plans", h.HandleListPortfolioPlans)
	})
}
