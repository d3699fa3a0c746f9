package work

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/wallcheb/internal/modules/experiments"
	"github.com/aristath/wallcheb/internal/projector"
)

// Work type IDs for queued experiments, one per experiment kind.
const (
	TypeExperimentProjection = "experiment:projection"
	TypeExperimentPhases     = "experiment:phases"
)

// ExperimentRunner executes queued experiments through the projector service
// and records their outcome.
type ExperimentRunner struct {
	repo      *experiments.Repository
	projector *projector.Service
	emitter   Emitter
	log       zerolog.Logger
}

// NewExperimentRunner creates an experiment runner.
func NewExperimentRunner(repo *experiments.Repository, svc *projector.Service, emitter Emitter, log zerolog.Logger) *ExperimentRunner {
	return &ExperimentRunner{
		repo:      repo,
		projector: svc,
		emitter:   emitter,
		log:       log.With().Str("component", "experiment_runner").Logger(),
	}
}

// RegisterWorkTypes registers one work type per experiment kind. Projection
// runs outrank phase compilations: a queued projection always goes first.
func (r *ExperimentRunner) RegisterWorkTypes(registry *Registry) {
	registry.Register(&WorkType{
		ID:       TypeExperimentProjection,
		Timing:   AnyTime,
		Priority: PriorityCritical,
		FindSubjects: func() []string {
			return r.pendingSubjects(experiments.KindProjection)
		},
		Execute: func(ctx context.Context, subject string) error {
			return r.runProjection(ctx, subject)
		},
	})

	registry.Register(&WorkType{
		ID:       TypeExperimentPhases,
		Timing:   AnyTime,
		Priority: PriorityHigh,
		FindSubjects: func() []string {
			return r.pendingSubjects(experiments.KindPhases)
		},
		Execute: func(ctx context.Context, subject string) error {
			return r.runPhases(ctx, subject)
		},
	})
}

// pendingSubjects lists the uuids of pending experiments of one kind, oldest
// first so submissions run in order.
func (r *ExperimentRunner) pendingSubjects(kind string) []string {
	exps, err := r.repo.List(kind, experiments.StatusPending, 0)
	if err != nil {
		r.log.Error().Err(err).Str("kind", kind).Msg("failed to list pending experiments")
		return nil
	}
	if len(exps) == 0 {
		return nil
	}
	subjects := make([]string, len(exps))
	for i, exp := range exps {
		subjects[len(exps)-1-i] = exp.UUID
	}
	return subjects
}

// claim transitions the experiment to running and parses its request.
func (r *ExperimentRunner) claim(subject string, request interface{}) (*experiments.Experiment, error) {
	exp, err := r.repo.Get(subject)
	if err != nil {
		return nil, err
	}
	if exp.Status != experiments.StatusPending {
		return nil, fmt.Errorf("experiment %s is %s, not pending", subject, exp.Status)
	}
	if err := json.Unmarshal(exp.Request, request); err != nil {
		cause := fmt.Sprintf("invalid request: %v", err)
		if ferr := r.repo.Fail(subject, cause, 0); ferr != nil {
			r.log.Error().Err(ferr).Str("uuid", subject).Msg("failed to mark experiment failed")
		}
		return nil, fmt.Errorf("experiment %s: %s", subject, cause)
	}
	if err := r.repo.MarkRunning(subject); err != nil {
		return nil, err
	}
	return exp, nil
}

// finish records the outcome. Execution errors are persisted on the
// experiment and not returned: a bad request must not ride the retry queue.
func (r *ExperimentRunner) finish(subject string, result interface{}, runErr error, start time.Time) error {
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	if runErr != nil {
		r.log.Warn().Err(runErr).Str("uuid", subject).Msg("experiment failed")
		return r.repo.Fail(subject, runErr.Error(), elapsed)
	}
	return r.repo.Complete(subject, result, elapsed)
}

func (r *ExperimentRunner) runProjection(ctx context.Context, subject string) error {
	var req projector.Request
	if _, err := r.claim(subject, &req); err != nil {
		return err
	}
	start := time.Now()

	reporter := NewProgressReporter(r.emitter, TypeExperimentProjection+":"+subject, TypeExperimentProjection)
	reporter.ReportPhase("projection", req.ModelKey())

	result, err := r.projector.Run(ctx, req)
	if err == nil {
		reporter.ReportWithDetails(req.M, req.M, "projection finished", map[string]interface{}{
			"final_energy":       result.FinalEnergy,
			"cumulative_success": result.CumulativeSuccess,
		})
	}
	return r.finish(subject, result, err, start)
}

func (r *ExperimentRunner) runPhases(ctx context.Context, subject string) error {
	var req projector.PhaseRequest
	if _, err := r.claim(subject, &req); err != nil {
		return err
	}
	start := time.Now()

	reporter := NewProgressReporter(r.emitter, TypeExperimentPhases+":"+subject, TypeExperimentPhases)
	reporter.ReportPhase("phases", req.CacheKey())

	result, err := r.projector.CompilePhases(ctx, req)
	return r.finish(subject, result, err, start)
}
