package experiments

import "encoding/json"

// Experiment lifecycle states.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Experiment kinds.
const (
	KindProjection = "projection"
	KindPhases     = "phases"
)

// Experiment is one recorded run: the request as submitted, and the result
// or error once finished.
type Experiment struct {
	UUID        string          `json:"uuid"`
	Kind        string          `json:"kind"`
	Status      string          `json:"status"`
	Request     json.RawMessage `json:"request"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   int64           `json:"created_at"`
	StartedAt   *int64          `json:"started_at,omitempty"`
	CompletedAt *int64          `json:"completed_at,omitempty"`
	DurationMS  *float64        `json:"duration_ms,omitempty"`
}

// Stats aggregates the experiments table.
type Stats struct {
	Total         int64            `json:"total"`
	ByStatus      map[string]int64 `json:"by_status"`
	ByKind        map[string]int64 `json:"by_kind"`
	AvgDurationMS float64          `json:"avg_duration_ms"`
}
