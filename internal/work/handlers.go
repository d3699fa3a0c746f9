package work

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers provides HTTP handlers for the work processor
type Handlers struct {
	processor *Processor
	registry  *Registry
	stream    http.HandlerFunc
	log       zerolog.Logger
}

// NewHandlers creates new HTTP handlers for the work processor
func NewHandlers(processor *Processor, registry *Registry, log zerolog.Logger) *Handlers {
	return &Handlers{
		processor: processor,
		registry:  registry,
		log:       log.With().Str("handler", "work").Logger(),
	}
}

// SetStream registers the live job event stream endpoint. The handler is
// built by the server because it needs the event bus.
func (h *Handlers) SetStream(fn http.HandlerFunc) {
	h.stream = fn
}

// RegisterRoutes registers HTTP routes for work management
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/work", func(r chi.Router) {
		r.Get("/status", h.HandleStatus)
		r.Get("/types", h.HandleListWorkTypes)
		r.Post("/trigger", h.HandleTrigger)
		r.Post("/trigger/{workType}", h.HandleTriggerType)
		if h.stream != nil {
			r.Get("/stream", h.stream)
		}
	})
}

// HandleStatus handles GET /api/work/status
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, envelope(h.processor.GetStatus()))
}

// HandleListWorkTypes handles GET /api/work/types
func (h *Handlers) HandleListWorkTypes(w http.ResponseWriter, r *http.Request) {
	types := h.registry.ByPriority()

	list := make([]map[string]interface{}, 0, len(types))
	for _, wt := range types {
		list = append(list, map[string]interface{}{
			"id":         wt.ID,
			"priority":   wt.Priority.String(),
			"timing":     wt.Timing.String(),
			"interval":   wt.Interval.String(),
			"depends_on": wt.DependsOn,
		})
	}

	h.writeJSON(w, http.StatusOK, envelope(list))
}

// HandleTrigger handles POST /api/work/trigger. It wakes the processor to
// look for eligible work.
func (h *Handlers) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	h.processor.Trigger()
	h.writeJSON(w, http.StatusOK, envelope(map[string]string{"status": "triggered"}))
}

// HandleTriggerType handles POST /api/work/trigger/{workType}. It executes
// the work type synchronously, bypassing timing checks.
func (h *Handlers) HandleTriggerType(w http.ResponseWriter, r *http.Request) {
	workType := chi.URLParam(r, "workType")

	if err := h.processor.ExecuteNow(workType, ""); err != nil {
		h.log.Warn().Err(err).Str("work_type", workType).Msg("manual trigger failed")
		status := http.StatusBadRequest
		if errors.Is(err, ErrAlreadyRunning) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]string{
		"status":    "executed",
		"work_type": workType,
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
