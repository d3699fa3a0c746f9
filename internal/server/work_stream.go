package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/wallcheb/internal/events"
)

// workStreamTypes are the job lifecycle events forwarded on the work
// WebSocket. Everything else on the bus stays on the SSE stream.
var workStreamTypes = map[events.EventType]bool{
	events.JobQueued:    true,
	events.JobStarted:   true,
	events.JobProgress:  true,
	events.JobCompleted: true,
	events.JobFailed:    true,
}

// WorkStreamHandler pushes job lifecycle events to clients over WebSocket.
type WorkStreamHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewWorkStreamHandler creates the work stream handler.
func NewWorkStreamHandler(bus *events.Bus, log zerolog.Logger) *WorkStreamHandler {
	return &WorkStreamHandler{
		bus: bus,
		log: log.With().Str("handler", "work_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/work/stream requests (WebSocket).
func (h *WorkStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "connection closed")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	h.log.Info().Msg("Client connected to work stream")
	defer h.log.Info().Msg("Client disconnected from work stream")

	// Drain client frames so pings are answered and closure is noticed.
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				cancel()
				return
			}
		}
	}()

	if err := wsjson.Write(ctx, conn, map[string]interface{}{
		"type":      "connected",
		"timestamp": time.Now().Format(time.RFC3339),
	}); err != nil {
		return
	}

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case evt, open := <-ch:
			if !open {
				return
			}
			if !workStreamTypes[evt.Type] {
				continue
			}
			if err := wsjson.Write(ctx, conn, evt); err != nil {
				return
			}

		case <-heartbeat.C:
			if err := wsjson.Write(ctx, conn, map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().Format(time.RFC3339),
			}); err != nil {
				return
			}
		}
	}
}
