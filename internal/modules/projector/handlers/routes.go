package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all projector routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/projector", func(r chi.Router) {
		r.Post("/run", h.HandleRun)
		r.Post("/submit", h.HandleSubmit)
		r.Post("/phases", h.HandlePhases)
		r.Post("/shifts", h.HandleShifts)
	})
}
