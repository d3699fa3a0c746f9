package testing

import (
	"testing"

	"github.com/aristath/wallcheb/internal/modules/experiments"
	"github.com/aristath/wallcheb/internal/projector"
)

// ProjectionRequestFixture returns the canonical two-site Hubbard projection
// request used across tests: small enough to run in milliseconds, with a
// known ground energy to assert against.
func ProjectionRequestFixture() projector.Request {
	return projector.Request{
		Model:    projector.ModelHubbard,
		U:        1.0,
		NSites:   2,
		M:        7,
		Fidelity: true,
	}
}

// PhaseRequestFixture returns a small QSP phase compilation request.
func PhaseRequestFixture() projector.PhaseRequest {
	return projector.PhaseRequest{
		Kind:   projector.TargetChebyshev,
		Degree: 3,
	}
}

// SeedExperiment creates an experiment in the given status and returns it.
// Completed and failed experiments get a placeholder result or error.
func SeedExperiment(t *testing.T, repo *experiments.Repository, kind, status string) *experiments.Experiment {
	t.Helper()

	var request interface{}
	if kind == experiments.KindPhases {
		request = PhaseRequestFixture()
	} else {
		request = ProjectionRequestFixture()
	}

	exp, err := repo.Create(kind, request)
	if err != nil {
		t.Fatalf("Failed to create fixture experiment: %v", err)
	}

	switch status {
	case experiments.StatusPending:
		return exp
	case experiments.StatusRunning:
		err = repo.MarkRunning(exp.UUID)
	case experiments.StatusCompleted:
		if err = repo.MarkRunning(exp.UUID); err == nil {
			err = repo.Complete(exp.UUID, map[string]interface{}{"final_energy": -1.0}, 10)
		}
	case experiments.StatusFailed:
		if err = repo.MarkRunning(exp.UUID); err == nil {
			err = repo.Fail(exp.UUID, "fixture failure", 10)
		}
	default:
		t.Fatalf("Unknown fixture status %q", status)
	}
	if err != nil {
		t.Fatalf("Failed to move fixture experiment to %s: %v", status, err)
	}

	got, err := repo.Get(exp.UUID)
	if err != nil {
		t.Fatalf("Failed to reload fixture experiment: %v", err)
	}
	return got
}
