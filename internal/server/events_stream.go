// Package server provides the HTTP server and routing for wallcheb.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/wallcheb/internal/events"
	"github.com/aristath/wallcheb/internal/utils"
)

// EventsStreamHandler streams every bus event to clients over Server-Sent
// Events. Clients can narrow the stream with ?types=job_progress,job_failed.
type EventsStreamHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewEventsStreamHandler creates the SSE handler.
func NewEventsStreamHandler(bus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		bus: bus,
		log: log.With().Str("handler", "events_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/stream requests (SSE).
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	allowed := parseTypesFilter(r.URL.Query().Get("types"))

	ch, cancel := h.bus.Subscribe()
	defer cancel()

	h.log.Info().Int("subscribers", h.bus.SubscriberCount()).Msg("Client connected to event stream")
	defer h.log.Info().Msg("Client disconnected from event stream")

	h.send(w, map[string]interface{}{
		"type":      "connected",
		"timestamp": time.Now().Format(time.RFC3339),
	})
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	done := r.Context().Done()

	for {
		select {
		case <-done:
			return

		case evt, open := <-ch:
			if !open {
				// Bus closed, server shutting down.
				return
			}
			if allowed != nil && !allowed[evt.Type] {
				continue
			}
			h.send(w, evt)
			flusher.Flush()

		case <-heartbeat.C:
			h.send(w, map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().Format(time.RFC3339),
			})
			flusher.Flush()
		}
	}
}

// send writes one SSE data frame.
func (h *EventsStreamHandler) send(w http.ResponseWriter, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// parseTypesFilter returns nil when no filter is requested, meaning all
// event types pass.
func parseTypesFilter(raw string) map[events.EventType]bool {
	types := utils.ParseCSV(raw)
	if types == nil {
		return nil
	}
	allowed := make(map[events.EventType]bool, len(types))
	for _, t := range types {
		allowed[events.EventType(t)] = true
	}
	return allowed
}
