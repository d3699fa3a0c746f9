package work

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/wallcheb/internal/cache"
	"github.com/aristath/wallcheb/internal/events"
	"github.com/aristath/wallcheb/internal/modules/experiments"
)

// Maintenance intervals. Experiments take precedence through priority; these
// only fire when the processor gets to them.
const (
	cachePurgeInterval      = 6 * time.Hour
	experimentPruneInterval = 24 * time.Hour
)

// MaintenanceWork holds the background chores that run between experiments.
type MaintenanceWork struct {
	cache     *cache.Repository
	repo      *experiments.Repository
	retention time.Duration
	emitter   Emitter
	log       zerolog.Logger
}

// NewMaintenanceWork creates the maintenance work set. A zero retention
// disables experiment pruning.
func NewMaintenanceWork(cacheRepo *cache.Repository, expRepo *experiments.Repository, retention time.Duration, emitter Emitter, log zerolog.Logger) *MaintenanceWork {
	return &MaintenanceWork{
		cache:     cacheRepo,
		repo:      expRepo,
		retention: retention,
		emitter:   emitter,
		log:       log.With().Str("component", "maintenance_work").Logger(),
	}
}

// RegisterWorkTypes registers cache purging and experiment pruning.
func (m *MaintenanceWork) RegisterWorkTypes(registry *Registry) {
	registry.Register(&WorkType{
		ID:       "cache:purge",
		Timing:   WhenIdle,
		Interval: cachePurgeInterval,
		Priority: PriorityMedium,
		FindSubjects: func() []string {
			return []string{""}
		},
		Execute: m.purgeCache,
	})

	if m.retention > 0 {
		registry.Register(&WorkType{
			ID:       "experiments:prune",
			Timing:   MaintenanceWindow,
			Interval: experimentPruneInterval,
			Priority: PriorityLow,
			FindSubjects: func() []string {
				return []string{""}
			},
			Execute: m.pruneExperiments,
		})
	}
}

// purgeCache drops expired rows from every cache table.
func (m *MaintenanceWork) purgeCache(ctx context.Context, _ string) error {
	removed, err := m.cache.DeleteAllExpired()
	if err != nil {
		return err
	}

	var total int64
	for _, n := range removed {
		total += n
	}
	if total > 0 {
		m.log.Info().Int64("removed", total).Msg("purged expired cache entries")
		if m.emitter != nil {
			m.emitter.Publish("maintenance", &events.CachePurgedData{Removed: removed})
		}
	}
	return ctx.Err()
}

// pruneExperiments removes finished experiments older than the retention
// window.
func (m *MaintenanceWork) pruneExperiments(ctx context.Context, _ string) error {
	cutoff := time.Now().Add(-m.retention)
	if _, err := m.repo.DeleteFinishedBefore(cutoff); err != nil {
		return err
	}
	return ctx.Err()
}
