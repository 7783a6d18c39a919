package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the efficient frontier routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/efficient-frontier", h.HandleEfficientFrontier)
}
