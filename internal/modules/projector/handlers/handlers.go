// Package handlers provides HTTP handlers for projection runs, wall shift
// previews and QSP phase compilation.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/wallcheb/internal/modules/experiments"
	"github.com/aristath/wallcheb/internal/projector"
	"github.com/aristath/wallcheb/internal/work"
)

// Handlers serves the projector endpoints.
type Handlers struct {
	service   *projector.Service
	repo      *experiments.Repository
	processor *work.Processor

	// Synchronous run limits. Anything larger must go through submit.
	maxSyncQubits int
	maxSyncM      int

	log zerolog.Logger
}

// NewHandlers creates the projector handlers.
func NewHandlers(
	service *projector.Service,
	repo *experiments.Repository,
	processor *work.Processor,
	maxSyncQubits int,
	maxSyncM int,
	log zerolog.Logger,
) *Handlers {
	return &Handlers{
		service:       service,
		repo:          repo,
		processor:     processor,
		maxSyncQubits: maxSyncQubits,
		maxSyncM:      maxSyncM,
		log:           log.With().Str("handler", "projector").Logger(),
	}
}

// stateQubits returns the state register width the request implies.
func stateQubits(req projector.Request) int {
	if req.Model == projector.ModelHubbard {
		return 2 * req.NSites
	}
	return req.NQubits
}

// HandleRun handles POST /api/projector/run: a synchronous projection for
// systems small enough to answer within the request.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req projector.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if n := stateQubits(req); n > h.maxSyncQubits || req.M > h.maxSyncM {
		msg := fmt.Sprintf(
			"run too large for the synchronous endpoint (%d state qubits, m=%d; limits %d, %d): use /api/projector/submit",
			n, req.M, h.maxSyncQubits, h.maxSyncM,
		)
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	result, err := h.service.Run(r.Context(), req)
	if err != nil {
		if errors.Is(err, projector.ErrInvalidRequest) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("model", req.Model).Msg("projection run failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(result))
}

// HandleSubmit handles POST /api/projector/submit: record the run as a
// pending experiment and wake the work processor.
func (h *Handlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req projector.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	exp, err := h.repo.Create(experiments.KindProjection, req)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to create experiment")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.processor.Trigger()

	h.log.Info().Str("experiment", exp.UUID).Str("model", req.Model).Msg("projection run submitted")

	h.writeJSON(w, http.StatusAccepted, envelope(map[string]interface{}{
		"experiment_id": exp.UUID,
		"status":        exp.Status,
		"work_type":     work.TypeExperimentProjection,
	}))
}

// HandlePhases handles POST /api/projector/phases: compile QSP phases for
// a named polynomial target, cache-first.
func (h *Handlers) HandlePhases(w http.ResponseWriter, r *http.Request) {
	var req projector.PhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.CompilePhases(r.Context(), req)
	if err != nil {
		if errors.Is(err, projector.ErrInvalidRequest) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("kind", req.Kind).Int("degree", req.Degree).Msg("phase compilation failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(result))
}

// HandleShifts handles POST /api/projector/shifts: preview the wall
// interval and shift grid a request would use.
func (h *Handlers) HandleShifts(w http.ResponseWriter, r *http.Request) {
	var req projector.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	preview, err := h.service.Shifts(r.Context(), req)
	if err != nil {
		if errors.Is(err, projector.ErrInvalidRequest) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("model", req.Model).Msg("shift preview failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(preview))
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
