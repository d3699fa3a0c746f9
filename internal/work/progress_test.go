package work

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/wallcheb/internal/events"
)

func TestProgressReporter_Report(t *testing.T) {
	emitter := &fakeEmitter{}
	r := NewProgressReporter(emitter, "experiment:projection:u1", "experiment:projection")

	r.Report(3, 10, "factor applied")

	require.Len(t, emitter.events, 1)
	data, ok := emitter.events[0].(*events.JobStatusData)
	require.True(t, ok)
	assert.Equal(t, "experiment:projection:u1", data.JobID)
	assert.Equal(t, "progress", data.Status)
	require.NotNil(t, data.Progress)
	assert.Equal(t, 3, data.Progress.Current)
	assert.Equal(t, 10, data.Progress.Total)
	assert.Equal(t, "factor applied", data.Progress.Message)
}

func TestProgressReporter_ReportPhase(t *testing.T) {
	emitter := &fakeEmitter{}
	r := NewProgressReporter(emitter, "experiment:phases:u1", "experiment:phases")

	r.ReportPhase("spectrum", "diagonalizing")

	require.Len(t, emitter.events, 1)
	data := emitter.events[0].(*events.JobStatusData)
	require.NotNil(t, data.Progress)
	assert.Equal(t, "spectrum", data.Progress.Phase)
}

func TestProgressReporter_Throttles(t *testing.T) {
	emitter := &fakeEmitter{}
	r := NewProgressReporter(emitter, "w", "t")

	for i := 0; i < 10; i++ {
		r.Report(i, 10, "tick")
	}

	// Only the first report inside the throttle window gets through.
	assert.Len(t, emitter.events, 1)
}

func TestProgressReporter_NilSafe(t *testing.T) {
	var r *ProgressReporter
	r.Report(1, 2, "ignored")
	r.ReportPhase("x", "ignored")

	noEmitter := NewProgressReporter(nil, "w", "t")
	noEmitter.Report(1, 2, "ignored")
}
