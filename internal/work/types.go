// Package work provides a unified work processor for background job
// execution. Queued experiments and maintenance chores flow through a single
// event-driven loop that respects priorities, dependencies and load timing.
package work

import (
	"context"
	"strings"
	"time"
)

// WorkTimeout is the maximum duration a work item can run before being cancelled.
const WorkTimeout = 7 * time.Minute

// MaxRetries is the maximum number of times a failed work item will be retried.
const MaxRetries = 10

// Timing defines when work can be executed based on processor load.
type Timing int

const (
	// AnyTime means work can run whenever the processor is free.
	AnyTime Timing = iota
	// WhenIdle means work runs only when no experiments are waiting.
	WhenIdle
	// MaintenanceWindow means work runs only inside the configured
	// maintenance hours.
	MaintenanceWindow
)

// String returns a human-readable name for the timing.
func (t Timing) String() string {
	switch t {
	case AnyTime:
		return "AnyTime"
	case WhenIdle:
		return "WhenIdle"
	case MaintenanceWindow:
		return "MaintenanceWindow"
	default:
		return "Unknown"
	}
}

// Priority defines the execution priority of work types.
type Priority int

const (
	// PriorityLow is for non-urgent work (pruning, vacuum).
	PriorityLow Priority = iota
	// PriorityMedium is for regular background work (cache purges).
	PriorityMedium
	// PriorityHigh is for phase compilation experiments.
	PriorityHigh
	// PriorityCritical is for queued projection runs.
	PriorityCritical
)

// String returns a human-readable name for the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	case PriorityCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// WorkType defines a type of work that can be executed.
// Work types are registered once and can generate multiple work items.
type WorkType struct {
	// ID is the unique identifier for this work type (e.g., "experiment:projection").
	ID string

	// DependsOn lists work type IDs that must complete before this work can
	// run. For per-experiment work, dependencies are scoped to the same
	// subject (experiment uuid).
	DependsOn []string

	// Timing defines when this work can be executed.
	Timing Timing

	// Interval is the minimum time between runs (0 = on-demand only).
	Interval time.Duration

	// Priority determines execution order when multiple work items are eligible.
	Priority Priority

	// FindSubjects returns subjects (experiment uuids) that need this work.
	// Returns []string{""} for global work, nil if no work needed.
	FindSubjects func() []string

	// Execute performs the work for a given subject.
	// Subject is empty string for global work, an experiment uuid otherwise.
	Execute func(ctx context.Context, subject string) error
}

// WorkItem represents a specific unit of work to be executed.
type WorkItem struct {
	// ID is the full work ID including subject (e.g., "experiment:projection:<uuid>").
	ID string

	// TypeID is the work type ID (e.g., "experiment:projection").
	TypeID string

	// Subject is the experiment uuid for per-experiment work, empty for global work.
	Subject string

	// Retries is the number of times this item has been retried.
	Retries int

	// CreatedAt is when this work item was created.
	CreatedAt time.Time
}

// NewWorkItem creates a new work item from a work type and subject.
func NewWorkItem(workType *WorkType, subject string) *WorkItem {
	id := workType.ID
	if subject != "" {
		id = workType.ID + ":" + subject
	}

	return &WorkItem{
		ID:        id,
		TypeID:    workType.ID,
		Subject:   subject,
		CreatedAt: time.Now(),
	}
}

// ParseWorkID extracts the work type ID and subject from a full work ID.
// Work type IDs have the form "category:type"; anything after the second
// colon is the subject. "experiment:projection:abc" yields
// ("experiment:projection", "abc"), "cache:purge" yields ("cache:purge", "").
func ParseWorkID(id string) (typeID string, subject string) {
	parts := strings.Split(id, ":")
	if len(parts) <= 2 {
		return id, ""
	}
	return strings.Join(parts[:2], ":"), strings.Join(parts[2:], ":")
}

// CompletionKey uniquely identifies a completed work item.
type CompletionKey struct {
	TypeID  string
	Subject string
}

// NewCompletionKey creates a completion key from a work item.
func NewCompletionKey(item *WorkItem) CompletionKey {
	return CompletionKey{
		TypeID:  item.TypeID,
		Subject: item.Subject,
	}
}

// String returns a string representation of the completion key.
func (ck CompletionKey) String() string {
	if ck.Subject == "" {
		return ck.TypeID
	}
	return ck.TypeID + ":" + ck.Subject
}
