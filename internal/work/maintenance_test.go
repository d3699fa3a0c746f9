package work

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/wallcheb/internal/cache"
	"github.com/aristath/wallcheb/internal/events"
	"github.com/aristath/wallcheb/internal/modules/experiments"
	testingpkg "github.com/aristath/wallcheb/internal/testing"
)

func newCacheRepo(t *testing.T) *cache.Repository {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "cache")
	t.Cleanup(cleanup)
	return cache.NewRepository(db.Conn())
}

func TestMaintenanceWork_RegisterWorkTypes(t *testing.T) {
	m := NewMaintenanceWork(newCacheRepo(t), newExperimentsRepo(t), 30*24*time.Hour, nil, zerolog.Nop())
	registry := NewRegistry()
	m.RegisterWorkTypes(registry)

	assert.True(t, registry.Has("cache:purge"))
	assert.True(t, registry.Has("experiments:prune"))
	assert.Equal(t, WhenIdle, registry.Get("cache:purge").Timing)
	assert.Equal(t, MaintenanceWindow, registry.Get("experiments:prune").Timing)
}

func TestMaintenanceWork_ZeroRetentionSkipsPruning(t *testing.T) {
	m := NewMaintenanceWork(newCacheRepo(t), newExperimentsRepo(t), 0, nil, zerolog.Nop())
	registry := NewRegistry()
	m.RegisterWorkTypes(registry)

	assert.True(t, registry.Has("cache:purge"))
	assert.False(t, registry.Has("experiments:prune"))
}

func TestMaintenanceWork_PurgeCacheEmitsEvent(t *testing.T) {
	repo := newCacheRepo(t)
	emitter := &fakeEmitter{}
	m := NewMaintenanceWork(repo, newExperimentsRepo(t), 0, emitter, zerolog.Nop())

	// One entry already expired, one still fresh.
	require.NoError(t, repo.Store(cache.TableSpectra, "stale", []float64{1}, -time.Minute))
	require.NoError(t, repo.Store(cache.TableSpectra, "fresh", []float64{2}, time.Hour))

	require.NoError(t, m.purgeCache(context.Background(), ""))

	require.Len(t, emitter.events, 1)
	purged, ok := emitter.events[0].(*events.CachePurgedData)
	require.True(t, ok)
	assert.Equal(t, int64(1), purged.Removed[cache.TableSpectra])

	var vals []float64
	hit, err := repo.GetIfFresh(cache.TableSpectra, "fresh", &vals)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestMaintenanceWork_PruneExperiments(t *testing.T) {
	expRepo := newExperimentsRepo(t)
	m := NewMaintenanceWork(newCacheRepo(t), expRepo, 24*time.Hour, nil, zerolog.Nop())

	exp, err := expRepo.Create(experiments.KindProjection, map[string]interface{}{"model": "ising"})
	require.NoError(t, err)
	require.NoError(t, expRepo.MarkRunning(exp.UUID))
	require.NoError(t, expRepo.Complete(exp.UUID, map[string]interface{}{}, 1))

	// Recent completions survive the prune.
	require.NoError(t, m.pruneExperiments(context.Background(), ""))
	_, err = expRepo.Get(exp.UUID)
	assert.NoError(t, err)
}
