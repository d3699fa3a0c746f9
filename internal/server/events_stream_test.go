package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/wallcheb/internal/events"
)

func TestEventsStreamDeliversEvents(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	defer bus.Close()
	handler := NewEventsStreamHandler(bus, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/events/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.ServeHTTP(w, req)
	}()

	// Wait for the subscription before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && bus.SubscriberCount() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, bus.SubscriberCount())

	bus.Publish("test", &events.JobStatusData{
		JobID:     "experiment:projection:abc",
		JobType:   "experiment:projection",
		Status:    "started",
		Timestamp: time.Now(),
	})

	// Give the handler a moment to flush, then disconnect.
	time.Sleep(100 * time.Millisecond)
	cancel()
	wg.Wait()

	body := w.Body.String()
	assert.Contains(t, body, `"type":"connected"`)
	assert.Contains(t, body, "job_started")
	assert.Contains(t, body, "experiment:projection:abc")

	// SSE framing: every payload rides a data: line.
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		if line == "" {
			continue
		}
		assert.True(t, strings.HasPrefix(line, "data: "), "unexpected line %q", line)
	}
}

func TestEventsStreamTypeFilter(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	defer bus.Close()
	handler := NewEventsStreamHandler(bus, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/events/stream?types=job_failed", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.ServeHTTP(w, req)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && bus.SubscriberCount() == 0 {
		time.Sleep(10 * time.Millisecond)
	}

	bus.Publish("test", &events.JobStatusData{JobID: "a", Status: "started", Timestamp: time.Now()})
	bus.Publish("test", &events.JobStatusData{JobID: "b", Status: "failed", Timestamp: time.Now()})

	time.Sleep(100 * time.Millisecond)
	cancel()
	wg.Wait()

	body := w.Body.String()
	assert.Contains(t, body, "job_failed")
	assert.NotContains(t, body, "job_started")
}

func TestParseTypesFilter(t *testing.T) {
	assert.Nil(t, parseTypesFilter(""))

	allowed := parseTypesFilter("job_failed, job_completed")
	assert.True(t, allowed[events.JobFailed])
	assert.True(t, allowed[events.JobCompleted])
	assert.False(t, allowed[events.JobStarted])
}
