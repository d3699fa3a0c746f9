package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/wallcheb/internal/modules/experiments"
	"github.com/aristath/wallcheb/internal/work"
)

func setupHandlers(t *testing.T) (*Handlers, *experiments.Repository) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, experiments.InitSchema(db))

	repo := experiments.NewRepository(db, zerolog.Nop())
	registry := work.NewRegistry()
	processor := work.NewProcessor(registry, work.NewCompletionTracker(), nil, nil, zerolog.Nop())

	return NewHandlers(repo, processor, zerolog.Nop()), repo
}

// serve runs a request through a router with the experiment routes mounted,
// so chi URL params resolve.
func serve(t *testing.T, h *Handlers, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Contains(t, response, "data")
	return response["data"]
}

func TestHandleListAndGet(t *testing.T) {
	h, repo := setupHandlers(t)

	exp, err := repo.Create(experiments.KindProjection, map[string]interface{}{"model": "ising", "nqubits": 2, "m": 2})
	require.NoError(t, err)

	w := serve(t, h, "GET", "/experiments")
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeData(t, w).([]interface{})
	require.Len(t, list, 1)

	w = serve(t, h, "GET", "/experiments/"+exp.UUID)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeData(t, w).(map[string]interface{})
	assert.Equal(t, exp.UUID, got["uuid"])
	assert.Equal(t, experiments.StatusPending, got["status"])
}

func TestHandleListFilters(t *testing.T) {
	h, repo := setupHandlers(t)

	_, err := repo.Create(experiments.KindProjection, map[string]interface{}{"model": "ising"})
	require.NoError(t, err)
	_, err = repo.Create(experiments.KindPhases, map[string]interface{}{"kind": "chebyshev", "degree": 3})
	require.NoError(t, err)

	w := serve(t, h, "GET", "/experiments?kind=phases")
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeData(t, w).([]interface{})
	require.Len(t, list, 1)

	w = serve(t, h, "GET", "/experiments?limit=bogus")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetNotFound(t *testing.T) {
	h, _ := setupHandlers(t)
	w := serve(t, h, "GET", "/experiments/no-such-uuid")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleDelete(t *testing.T) {
	h, repo := setupHandlers(t)

	exp, err := repo.Create(experiments.KindProjection, map[string]interface{}{"model": "ising"})
	require.NoError(t, err)

	w := serve(t, h, "DELETE", "/experiments/"+exp.UUID)
	require.Equal(t, http.StatusOK, w.Code)

	_, err = repo.Get(exp.UUID)
	assert.ErrorIs(t, err, experiments.ErrNotFound)

	w = serve(t, h, "DELETE", "/experiments/"+exp.UUID)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleStats(t *testing.T) {
	h, repo := setupHandlers(t)

	_, err := repo.Create(experiments.KindProjection, map[string]interface{}{"model": "ising"})
	require.NoError(t, err)

	w := serve(t, h, "GET", "/experiments/stats")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decodeData(t, w).(map[string]interface{})
	assert.Equal(t, float64(1), stats["total"])
}

func TestHandlePresets(t *testing.T) {
	h, _ := setupHandlers(t)

	w := serve(t, h, "GET", "/experiments/presets")
	require.Equal(t, http.StatusOK, w.Code)

	presets := decodeData(t, w).([]interface{})
	require.NotEmpty(t, presets)

	first := presets[0].(map[string]interface{})
	assert.Contains(t, first, "name")
	assert.Contains(t, first, "request")
}

func TestHandleSubmitPreset(t *testing.T) {
	h, repo := setupHandlers(t)

	w := serve(t, h, "POST", "/experiments/presets/hubbard-2site-baseline")
	require.Equal(t, http.StatusAccepted, w.Code)

	data := decodeData(t, w).(map[string]interface{})
	id := data["experiment_id"].(string)
	require.NotEmpty(t, id)

	exp, err := repo.Get(id)
	require.NoError(t, err)
	assert.Equal(t, experiments.KindProjection, exp.Kind)
	assert.Equal(t, experiments.StatusPending, exp.Status)

	// The stored request round-trips into a projector request.
	var req map[string]interface{}
	require.NoError(t, json.Unmarshal(exp.Request, &req))
	assert.Equal(t, "hubbard", req["model"])
}

func TestHandleSubmitPresetUnknown(t *testing.T) {
	h, _ := setupHandlers(t)
	w := serve(t, h, "POST", "/experiments/presets/no-such-preset")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
