package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/wallcheb/internal/cache"
	"github.com/aristath/wallcheb/internal/pauli"
)

func setupHandlers(t *testing.T) *Handlers {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, cache.InitSchema(db))

	return NewHandlers(cache.NewRepository(db), zerolog.Nop())
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

func TestHandleHubbard(t *testing.T) {
	h := setupHandlers(t)

	w := postJSON(t, h.HandleHubbard, map[string]interface{}{"u": 1.0, "nsites": 2})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, float64(4), data["nqubits"])
	assert.Equal(t, float64(16), data["dim"])
	assert.Contains(t, data, "ground_energy")
	assert.Contains(t, data, "terms")

	// Full-space ground energy for u=1 at half filling is below zero.
	assert.Less(t, data["ground_energy"].(float64), 0.0)
}

func TestHandleHubbardRejectsLargeChain(t *testing.T) {
	h := setupHandlers(t)
	w := postJSON(t, h.HandleHubbard, map[string]interface{}{"u": 1.0, "nsites": 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleIsing(t *testing.T) {
	h := setupHandlers(t)

	w := postJSON(t, h.HandleIsing, map[string]interface{}{"nqubits": 2, "h": 1.0, "j": 0.5})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, float64(2), data["nqubits"])
	assert.Equal(t, float64(4), data["dim"])

	eigs, ok := data["eigenvalues"].([]interface{})
	require.True(t, ok)
	assert.Len(t, eigs, 4)

	// Eigenvalues come back sorted ascending.
	assert.Equal(t, data["emin"], eigs[0])
	assert.Equal(t, data["emax"], eigs[len(eigs)-1])
}

func TestHandleSpectrumSingleZ(t *testing.T) {
	h := setupHandlers(t)

	w := postJSON(t, h.HandleSpectrum, map[string]interface{}{
		"terms": map[string][2]float64{"Z0": {1, 0}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	eigs := data["eigenvalues"].([]interface{})
	require.Len(t, eigs, 2)
	assert.InDelta(t, -1.0, eigs[0].(float64), 1e-12)
	assert.InDelta(t, 1.0, eigs[1].(float64), 1e-12)
}

func TestHandleSpectrumCaches(t *testing.T) {
	h := setupHandlers(t)
	body := map[string]interface{}{
		"terms": map[string][2]float64{"X0 X1": {0.5, 0}, "Z0": {-1, 0}},
	}

	first := decodeData(t, postJSON(t, h.HandleSpectrum, body))
	assert.Equal(t, false, first["cached"])

	second := decodeData(t, postJSON(t, h.HandleSpectrum, body))
	assert.Equal(t, true, second["cached"])
	assert.Equal(t, first["eigenvalues"], second["eigenvalues"])
}

func TestHandleSpectrumRejectsEmptyTerms(t *testing.T) {
	h := setupHandlers(t)
	w := postJSON(t, h.HandleSpectrum, map[string]interface{}{"terms": map[string][2]float64{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleEncode(t *testing.T) {
	h := setupHandlers(t)

	w := postJSON(t, h.HandleEncode, map[string]interface{}{
		"terms": map[string][2]float64{"Z0": {1, 0}, "X0": {0.5, 0}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.InDelta(t, 1.5, data["l1_norm"].(float64), 1e-12)
	assert.Equal(t, float64(1), data["n_prep_qubits"])
	assert.Equal(t, float64(1), data["n_state_qubits"])
	assert.Equal(t, true, data["is_hermitian"])

	// The encoded block is H/L1: check the Z0 diagonal contribution.
	block := data["block_matrix"].([]interface{})
	require.Len(t, block, 2)
	row0 := block[0].([]interface{})
	entry := row0[0].([]interface{})
	assert.InDelta(t, 1.0/1.5, entry[0].(float64), 1e-9)
}

func TestOperatorKeyIsStable(t *testing.T) {
	op := pauli.NewOperator()
	op.Add(pauli.MustString([]int{0}, []pauli.Pauli{pauli.Z}), complex(1, 0))
	op.Add(pauli.MustString([]int{0, 1}, []pauli.Pauli{pauli.X, pauli.X}), complex(0.5, 0))

	other := pauli.NewOperator()
	other.Add(pauli.MustString([]int{0, 1}, []pauli.Pauli{pauli.X, pauli.X}), complex(0.5, 0))
	other.Add(pauli.MustString([]int{0}, []pauli.Pauli{pauli.Z}), complex(1, 0))

	assert.Equal(t, operatorKey(op), operatorKey(other))
}

func TestSpectrumSummaryStatsConsistent(t *testing.T) {
	h := setupHandlers(t)

	op, err := pauli.UnmarshalMap(map[string][2]float64{"Z0": {2, 0}})
	require.NoError(t, err)

	summary, err := h.spectrumSummary(op, "test:z0")
	require.NoError(t, err)

	emin := summary["emin"].(float64)
	emax := summary["emax"].(float64)
	assert.True(t, emin <= emax)
	assert.False(t, math.IsNaN(emin))
}
