// Package events carries typed application events between the work
// processor, the maintenance jobs and the streaming handlers.
package events

import (
	"encoding/json"
	"time"
)

// EventType identifies an event on the wire.
type EventType string

const (
	JobQueued    EventType = "job_queued"
	JobStarted   EventType = "job_started"
	JobProgress  EventType = "job_progress"
	JobCompleted EventType = "job_completed"
	JobFailed    EventType = "job_failed"

	BackupCompleted EventType = "backup_completed"
	CachePurged     EventType = "cache_purged"
	ErrorOccurred   EventType = "error_occurred"
)

// EventData is implemented by all event payload types, tying each payload
// to its event type.
type EventData interface {
	EventType() EventType
}

// JobProgressInfo reports how far a running job has come.
type JobProgressInfo struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`

	// Phase names the current stage, e.g. "spectrum", "factors".
	Phase string `json:"phase,omitempty"`

	// Details carries stage metrics such as the running energy or the
	// last success probability.
	Details map[string]interface{} `json:"details,omitempty"`
}

// JobStatusData is the payload for job lifecycle events. The Status field
// selects the event type.
type JobStatusData struct {
	JobID       string                 `json:"job_id"`
	JobType     string                 `json:"job_type"`
	Status      string                 `json:"status"` // "queued", "started", "progress", "completed", "failed"
	Description string                 `json:"description,omitempty"`
	Progress    *JobProgressInfo       `json:"progress,omitempty"`
	Error       string                 `json:"error,omitempty"`
	DurationMS  float64                `json:"duration_ms,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// EventType maps the job status onto the corresponding lifecycle event.
func (d *JobStatusData) EventType() EventType {
	switch d.Status {
	case "queued":
		return JobQueued
	case "progress":
		return JobProgress
	case "completed":
		return JobCompleted
	case "failed":
		return JobFailed
	default:
		return JobStarted
	}
}

// BackupCompletedData is the payload for BackupCompleted events.
type BackupCompletedData struct {
	Destination string  `json:"destination"`
	SizeBytes   int64   `json:"size_bytes"`
	DurationMS  float64 `json:"duration_ms"`
}

// EventType returns the event type for BackupCompletedData.
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// CachePurgedData is the payload for CachePurged events: rows removed per
// cache table.
type CachePurgedData struct {
	Removed map[string]int64 `json:"removed"`
}

// EventType returns the event type for CachePurgedData.
func (d *CachePurgedData) EventType() EventType {
	return CachePurged
}

// ErrorEventData is the payload for ErrorOccurred events.
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData.
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// Event is the envelope delivered to subscribers.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
	Data      EventData `json:"data,omitempty"`
}

// MarshalJSON flattens the typed payload into the envelope.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	aux := struct {
		alias
		Data json.RawMessage `json:"data,omitempty"`
	}{alias: alias(e)}

	if e.Data != nil {
		raw, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		aux.Data = raw
	}
	return json.Marshal(aux)
}
