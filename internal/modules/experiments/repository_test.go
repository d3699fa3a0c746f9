package experiments

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, InitSchema(db))

	return NewRepository(db, zerolog.Nop())
}

type fakeRequest struct {
	Model string `json:"model"`
	M     int    `json:"m"`
}

func TestCreateAndGet(t *testing.T) {
	repo := setupRepo(t)

	exp, err := repo.Create(KindProjection, fakeRequest{Model: "hubbard", M: 3})
	require.NoError(t, err)
	require.NotEmpty(t, exp.UUID)
	assert.Equal(t, StatusPending, exp.Status)

	got, err := repo.Get(exp.UUID)
	require.NoError(t, err)
	assert.Equal(t, exp.UUID, got.UUID)
	assert.Equal(t, KindProjection, got.Kind)
	assert.Equal(t, StatusPending, got.Status)
	assert.Nil(t, got.StartedAt)
	assert.Nil(t, got.Result)

	var req fakeRequest
	require.NoError(t, json.Unmarshal(got.Request, &req))
	assert.Equal(t, "hubbard", req.Model)
	assert.Equal(t, 3, req.M)

	_, err = repo.Get("no-such-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLifecycleTransitions(t *testing.T) {
	repo := setupRepo(t)

	exp, err := repo.Create(KindProjection, fakeRequest{Model: "ising", M: 5})
	require.NoError(t, err)

	require.NoError(t, repo.MarkRunning(exp.UUID))
	got, err := repo.Get(exp.UUID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	require.NotNil(t, got.StartedAt)

	require.NoError(t, repo.Complete(exp.UUID, map[string]float64{"final_energy": -1.56}, 12.5))
	got, err = repo.Get(exp.UUID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.DurationMS)
	assert.Equal(t, 12.5, *got.DurationMS)

	var result map[string]float64
	require.NoError(t, json.Unmarshal(got.Result, &result))
	assert.Equal(t, -1.56, result["final_energy"])

	// Transitions on unknown rows report not-found.
	assert.ErrorIs(t, repo.MarkRunning("no-such-uuid"), ErrNotFound)
	assert.ErrorIs(t, repo.Complete("no-such-uuid", nil, 0), ErrNotFound)
	assert.ErrorIs(t, repo.Fail("no-such-uuid", "boom", 0), ErrNotFound)
}

func TestFailRecordsError(t *testing.T) {
	repo := setupRepo(t)

	exp, err := repo.Create(KindPhases, fakeRequest{Model: "chebyshev"})
	require.NoError(t, err)
	require.NoError(t, repo.Fail(exp.UUID, "optimizer diverged", 3.25))

	got, err := repo.Get(exp.UUID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "optimizer diverged", got.Error)
	assert.Nil(t, got.Result)
}

func TestListFiltersAndLimits(t *testing.T) {
	repo := setupRepo(t)

	a, err := repo.Create(KindProjection, fakeRequest{Model: "hubbard"})
	require.NoError(t, err)
	b, err := repo.Create(KindProjection, fakeRequest{Model: "ising"})
	require.NoError(t, err)
	c, err := repo.Create(KindPhases, fakeRequest{Model: "chebyshev"})
	require.NoError(t, err)
	require.NoError(t, repo.Complete(b.UUID, nil, 1))

	all, err := repo.List("", "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	// Newest first.
	assert.Equal(t, c.UUID, all[0].UUID)

	projections, err := repo.List(KindProjection, "", 0)
	require.NoError(t, err)
	assert.Len(t, projections, 2)

	completed, err := repo.List("", StatusCompleted, 0)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, b.UUID, completed[0].UUID)

	limited, err := repo.List("", "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	_ = a
}

func TestDelete(t *testing.T) {
	repo := setupRepo(t)

	exp, err := repo.Create(KindProjection, fakeRequest{})
	require.NoError(t, err)
	require.NoError(t, repo.Delete(exp.UUID))

	_, err = repo.Get(exp.UUID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(exp.UUID), ErrNotFound)
}

func TestDeleteFinishedBefore(t *testing.T) {
	repo := setupRepo(t)

	done, err := repo.Create(KindProjection, fakeRequest{})
	require.NoError(t, err)
	require.NoError(t, repo.Complete(done.UUID, nil, 1))
	pending, err := repo.Create(KindProjection, fakeRequest{})
	require.NoError(t, err)

	// A cutoff in the future prunes finished rows but never pending ones.
	n, err := repo.DeleteFinishedBefore(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Get(done.UUID)
	assert.ErrorIs(t, err, ErrNotFound)
	still, err := repo.Get(pending.UUID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, still.Status)

	// A cutoff in the past prunes nothing.
	n, err = repo.DeleteFinishedBefore(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStats(t *testing.T) {
	repo := setupRepo(t)

	a, err := repo.Create(KindProjection, fakeRequest{})
	require.NoError(t, err)
	b, err := repo.Create(KindProjection, fakeRequest{})
	require.NoError(t, err)
	_, err = repo.Create(KindPhases, fakeRequest{})
	require.NoError(t, err)

	require.NoError(t, repo.Complete(a.UUID, nil, 10))
	require.NoError(t, repo.Fail(b.UUID, "boom", 30))

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.ByStatus[StatusCompleted])
	assert.Equal(t, int64(1), stats.ByStatus[StatusFailed])
	assert.Equal(t, int64(1), stats.ByStatus[StatusPending])
	assert.Equal(t, int64(2), stats.ByKind[KindProjection])
	assert.Equal(t, int64(1), stats.ByKind[KindPhases])
	assert.InDelta(t, 20.0, stats.AvgDurationMS, 1e-9)
}
