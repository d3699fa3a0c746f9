package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/wallcheb/internal/modules/experiments"
	"github.com/aristath/wallcheb/internal/projector"
	"github.com/aristath/wallcheb/internal/work"
)

func setupHandlers(t *testing.T) (*Handlers, *experiments.Repository) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, experiments.InitSchema(db))

	repo := experiments.NewRepository(db, zerolog.Nop())
	service := projector.NewService(zerolog.Nop(), nil)

	registry := work.NewRegistry()
	completion := work.NewCompletionTracker()
	processor := work.NewProcessor(registry, completion, nil, nil, zerolog.Nop())

	h := NewHandlers(service, repo, processor, 4, 8, zerolog.Nop())
	return h, repo
}

func postJSON(t *testing.T, fn http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	fn(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Contains(t, response, "data")
	return response["data"].(map[string]interface{})
}

func TestHandleRunIsing(t *testing.T) {
	h, _ := setupHandlers(t)

	w := postJSON(t, h.HandleRun, map[string]interface{}{
		"model":   "ising",
		"nqubits": 2,
		"h":       1.0,
		"j":       0.5,
		"m":       2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeData(t, w)
	assert.Equal(t, "ising", data["model"])
	assert.Contains(t, data, "final_energy")
	assert.Contains(t, data, "cumulative_success")

	success := data["cumulative_success"].(float64)
	assert.Greater(t, success, 0.0)
	assert.LessOrEqual(t, success, 1.0)
}

func TestHandleRunRejectsLargeSystem(t *testing.T) {
	h, _ := setupHandlers(t)

	// 5 state qubits exceeds the sync limit of 4.
	w := postJSON(t, h.HandleRun, map[string]interface{}{
		"model":   "ising",
		"nqubits": 5,
		"h":       1.0,
		"j":       0.5,
		"m":       2,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "submit")
}

func TestHandleRunRejectsLargeDegree(t *testing.T) {
	h, _ := setupHandlers(t)

	w := postJSON(t, h.HandleRun, map[string]interface{}{
		"model":   "ising",
		"nqubits": 2,
		"h":       1.0,
		"j":       0.5,
		"m":       9,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRunInvalidModel(t *testing.T) {
	h, _ := setupHandlers(t)

	w := postJSON(t, h.HandleRun, map[string]interface{}{
		"model": "heisenberg",
		"m":     2,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSubmitCreatesPendingExperiment(t *testing.T) {
	h, repo := setupHandlers(t)

	w := postJSON(t, h.HandleSubmit, map[string]interface{}{
		"model":   "ising",
		"nqubits": 6,
		"h":       1.0,
		"j":       0.5,
		"m":       12,
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	data := decodeData(t, w)
	id := data["experiment_id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, experiments.StatusPending, data["status"])
	assert.Equal(t, work.TypeExperimentProjection, data["work_type"])

	exp, err := repo.Get(id)
	require.NoError(t, err)
	assert.Equal(t, experiments.KindProjection, exp.Kind)
	assert.Equal(t, experiments.StatusPending, exp.Status)
}

func TestHandleSubmitValidatesRequest(t *testing.T) {
	h, repo := setupHandlers(t)

	w := postJSON(t, h.HandleSubmit, map[string]interface{}{
		"model": "ising",
		"m":     2,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	exps, err := repo.List("", "", 0)
	require.NoError(t, err)
	assert.Empty(t, exps)
}

func TestHandlePhases(t *testing.T) {
	h, _ := setupHandlers(t)

	w := postJSON(t, h.HandlePhases, map[string]interface{}{
		"kind":   "chebyshev",
		"degree": 3,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeData(t, w)
	phi := data["phi"].([]interface{})
	assert.Len(t, phi, 4)
}

func TestHandlePhasesRejectsUnknownTarget(t *testing.T) {
	h, _ := setupHandlers(t)

	w := postJSON(t, h.HandlePhases, map[string]interface{}{
		"kind":   "legendre",
		"degree": 3,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleShifts(t *testing.T) {
	h, _ := setupHandlers(t)

	w := postJSON(t, h.HandleShifts, map[string]interface{}{
		"model":   "ising",
		"nqubits": 2,
		"h":       1.0,
		"j":       0.5,
		"m":       3,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeData(t, w)
	shifts := data["shifts"].([]interface{})
	require.Len(t, shifts, 3)

	// Shifts are strictly increasing.
	for i := 1; i < len(shifts); i++ {
		assert.Greater(t, shifts[i].(float64), shifts[i-1].(float64))
	}
}

func TestStateQubits(t *testing.T) {
	assert.Equal(t, 4, stateQubits(projector.Request{Model: projector.ModelHubbard, NSites: 2}))
	assert.Equal(t, 3, stateQubits(projector.Request{Model: projector.ModelIsing, NQubits: 3}))
}
