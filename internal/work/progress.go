package work

import (
	"sync"
	"time"

	"github.com/aristath/wallcheb/internal/events"
)

// Emitter is the slice of the event bus the work package needs. Satisfied by
// *events.Bus.
type Emitter interface {
	Publish(source string, data events.EventData)
}

// Throttle interval for progress events (avoid spam)
const progressThrottleInterval = 100 * time.Millisecond

// ProgressReporter reports progress from inside a running work item. Events
// land on the bus and reach the SSE and WebSocket streams.
type ProgressReporter struct {
	emitter  Emitter
	workID   string
	workType string

	// Throttling to avoid spam
	lastReport time.Time
	mu         sync.Mutex
}

// NewProgressReporter creates a progress reporter for a work item. A nil
// emitter yields a reporter that discards everything.
func NewProgressReporter(emitter Emitter, workID, workType string) *ProgressReporter {
	return &ProgressReporter{
		emitter:  emitter,
		workID:   workID,
		workType: workType,
	}
}

// Report reports numeric progress (current/total) with a message.
// Progress events are throttled.
func (r *ProgressReporter) Report(current, total int, message string) {
	r.ReportWithDetails(current, total, message, nil)
}

// ReportPhase reports a named phase with a message. Useful for work with
// distinct stages rather than numeric progress.
func (r *ProgressReporter) ReportPhase(phase, message string) {
	r.emit(&events.JobProgressInfo{Phase: phase, Message: message})
}

// ReportWithDetails reports progress with additional stage metrics, such as
// the running energy or the last success probability.
func (r *ProgressReporter) ReportWithDetails(current, total int, message string, details map[string]interface{}) {
	r.emit(&events.JobProgressInfo{
		Current: current,
		Total:   total,
		Message: message,
		Details: details,
	})
}

func (r *ProgressReporter) emit(info *events.JobProgressInfo) {
	if r == nil || r.emitter == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Throttle progress events
	if time.Since(r.lastReport) < progressThrottleInterval {
		return
	}
	r.lastReport = time.Now()

	r.emitter.Publish("work", &events.JobStatusData{
		JobID:     r.workID,
		JobType:   r.workType,
		Status:    "progress",
		Progress:  info,
		Timestamp: time.Now(),
	})
}
