package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all experiment routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/experiments", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/stats", h.HandleStats)
		r.Get("/presets", h.HandlePresets)
		r.Post("/presets/{name}", h.HandleSubmitPreset)
		r.Get("/{id}", h.HandleGet)
		r.Delete("/{id}", h.HandleDelete)
	})
}
