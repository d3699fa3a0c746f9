package work

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimingString(t *testing.T) {
	tests := []struct {
		timing   Timing
		expected string
	}{
		{AnyTime, "AnyTime"},
		{WhenIdle, "WhenIdle"},
		{MaintenanceWindow, "MaintenanceWindow"},
		{Timing(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.timing.String())
		})
	}
}

func TestPriorityString(t *testing.T) {
	tests := []struct {
		priority Priority
		expected string
	}{
		{PriorityLow, "Low"},
		{PriorityMedium, "Medium"},
		{PriorityHigh, "High"},
		{PriorityCritical, "Critical"},
		{Priority(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.priority.String())
		})
	}
}

func TestNewWorkItem_GlobalWork(t *testing.T) {
	wt := &WorkType{
		ID:       "cache:purge",
		Priority: PriorityMedium,
	}

	item := NewWorkItem(wt, "")

	assert.Equal(t, "cache:purge", item.ID)
	assert.Equal(t, "cache:purge", item.TypeID)
	assert.Equal(t, "", item.Subject)
	assert.False(t, item.CreatedAt.IsZero())
}

func TestNewWorkItem_WithSubject(t *testing.T) {
	wt := &WorkType{
		ID:       "experiment:projection",
		Priority: PriorityCritical,
	}

	item := NewWorkItem(wt, "abc-123")

	assert.Equal(t, "experiment:projection:abc-123", item.ID)
	assert.Equal(t, "experiment:projection", item.TypeID)
	assert.Equal(t, "abc-123", item.Subject)
}

func TestParseWorkID(t *testing.T) {
	tests := []struct {
		id          string
		wantTypeID  string
		wantSubject string
	}{
		{"cache:purge", "cache:purge", ""},
		{"experiment:projection:abc-123", "experiment:projection", "abc-123"},
		{"experiments:prune", "experiments:prune", ""},
		{"a:b:c:d", "a:b", "c:d"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			typeID, subject := ParseWorkID(tt.id)
			assert.Equal(t, tt.wantTypeID, typeID)
			assert.Equal(t, tt.wantSubject, subject)
		})
	}
}

func TestCompletionKeyString(t *testing.T) {
	item := NewWorkItem(&WorkType{ID: "experiment:phases"}, "u1")
	key := NewCompletionKey(item)

	assert.Equal(t, "experiment:phases:u1", key.String())

	global := NewCompletionKey(NewWorkItem(&WorkType{ID: "cache:purge"}, ""))
	assert.Equal(t, "cache:purge", global.String())
}
