// Package handlers provides HTTP handlers for stored experiment records
// and the embedded preset catalog.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/wallcheb/internal/modules/experiments"
	"github.com/aristath/wallcheb/internal/work"
	"github.com/aristath/wallcheb/pkg/embedded"
)

// defaultListLimit bounds unpaginated listing.
const defaultListLimit = 100

// Handlers serves the experiments endpoints.
type Handlers struct {
	repo      *experiments.Repository
	processor *work.Processor
	log       zerolog.Logger
}

// NewHandlers creates the experiments handlers.
func NewHandlers(repo *experiments.Repository, processor *work.Processor, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo:      repo,
		processor: processor,
		log:       log.With().Str("handler", "experiments").Logger(),
	}
}

// HandleList handles GET /api/experiments. Optional filters: ?kind=,
// ?status=, ?limit=.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	status := r.URL.Query().Get("status")

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	exps, err := h.repo.List(kind, status, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list experiments")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(exps))
}

// HandleGet handles GET /api/experiments/{id}.
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	exp, err := h.repo.Get(id)
	if err != nil {
		if errors.Is(err, experiments.ErrNotFound) {
			http.Error(w, "experiment not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("uuid", id).Msg("failed to get experiment")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(exp))
}

// HandleDelete handles DELETE /api/experiments/{id}.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.Delete(id); err != nil {
		if errors.Is(err, experiments.ErrNotFound) {
			http.Error(w, "experiment not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("uuid", id).Msg("failed to delete experiment")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]string{
		"status": "deleted",
		"uuid":   id,
	}))
}

// HandleStats handles GET /api/experiments/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to get experiment stats")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(stats))
}

// HandlePresets handles GET /api/experiments/presets.
func (h *Handlers) HandlePresets(w http.ResponseWriter, r *http.Request) {
	presets, err := embedded.Presets()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load preset catalog")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(presets))
}

// HandleSubmitPreset handles POST /api/experiments/presets/{name}: enqueue
// the preset's request as a pending experiment.
func (h *Handlers) HandleSubmitPreset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	preset, ok := embedded.PresetByName(name)
	if !ok {
		http.Error(w, "unknown preset: "+name, http.StatusNotFound)
		return
	}

	exp, err := h.repo.Create(preset.Kind, preset.Request)
	if err != nil {
		h.log.Error().Err(err).Str("preset", name).Msg("failed to create experiment from preset")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.processor.Trigger()

	h.log.Info().Str("preset", name).Str("experiment", exp.UUID).Msg("preset submitted")

	h.writeJSON(w, http.StatusAccepted, envelope(map[string]string{
		"experiment_id": exp.UUID,
		"status":        exp.Status,
		"preset":        name,
	}))
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

// writeJSON writes a JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
