package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all operator routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/operators", func(r chi.Router) {
		r.Post("/hubbard", h.HandleHubbard)
		r.Post("/ising", h.HandleIsing)
		r.Post("/spectrum", h.HandleSpectrum)
		r.Post("/encode", h.HandleEncode)
	})
}
