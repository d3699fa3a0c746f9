// Package handlers provides HTTP handlers for Hamiltonian construction,
// dense spectra and LCU block encodings.
package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/wallcheb/internal/cache"
	"github.com/aristath/wallcheb/internal/encode"
	"github.com/aristath/wallcheb/internal/hamiltonian"
	"github.com/aristath/wallcheb/internal/pauli"
)

// Register guards for dense diagonalization. The full Hilbert space is
// 4^nsites for Hubbard and 2^nqubits for Ising.
const (
	maxHubbardSites = 6
	maxQubits       = 12

	// Eigenvalue lists above this dimension are summarized, not returned.
	maxInlineSpectrum = 1024

	// Block matrices above this dimension are cached but not inlined.
	maxInlineBlock = 64
)

// Handlers serves the operator construction endpoints.
type Handlers struct {
	cache *cache.Repository
	log   zerolog.Logger
}

// NewHandlers creates the operators handlers.
func NewHandlers(cacheRepo *cache.Repository, log zerolog.Logger) *Handlers {
	return &Handlers{
		cache: cacheRepo,
		log:   log.With().Str("handler", "operators").Logger(),
	}
}

// HubbardRequest asks for the Fermi-Hubbard chain Hamiltonian. The hopping
// amplitude is fixed at 1.
type HubbardRequest struct {
	U      float64 `json:"u"`
	NSites int     `json:"nsites"`
}

// IsingRequest asks for the transverse-field Ising chain Hamiltonian.
type IsingRequest struct {
	NQubits int     `json:"nqubits"`
	H       float64 `json:"h"`
	J       float64 `json:"j"`
}

// OperatorRequest carries an explicit Pauli operator as a term map, e.g.
// {"X0 X1": [0.5, 0], "Z0": [-1, 0]}.
type OperatorRequest struct {
	Terms map[string][2]float64 `json:"terms"`

	// NState overrides the state register width for encoding. Defaults to
	// the operator's qubit count.
	NState int `json:"nstate,omitempty"`
}

// HandleHubbard handles POST /api/operators/hubbard.
func (h *Handlers) HandleHubbard(w http.ResponseWriter, r *http.Request) {
	var req HubbardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.NSites < 1 || req.NSites > maxHubbardSites {
		http.Error(w, fmt.Sprintf("nsites must be between 1 and %d", maxHubbardSites), http.StatusBadRequest)
		return
	}

	op, err := hamiltonian.Hubbard(req.U, req.NSites)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	key := fmt.Sprintf("hubbard:nsites=%d:u=%g:full", req.NSites, req.U)
	summary, err := h.spectrumSummary(op, key)
	if err != nil {
		h.log.Error().Err(err).Msg("hubbard spectrum failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	summary["model"] = "hubbard"
	summary["u"] = req.U
	summary["nsites"] = req.NSites
	summary["terms"] = op.MarshalMap()

	h.writeJSON(w, http.StatusOK, envelope(summary))
}

// HandleIsing handles POST /api/operators/ising.
func (h *Handlers) HandleIsing(w http.ResponseWriter, r *http.Request) {
	var req IsingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.NQubits < 1 || req.NQubits > maxQubits {
		http.Error(w, fmt.Sprintf("nqubits must be between 1 and %d", maxQubits), http.StatusBadRequest)
		return
	}

	op, err := hamiltonian.Ising(req.NQubits, req.H, req.J)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	key := fmt.Sprintf("ising:nqubits=%d:h=%g:j=%g:full", req.NQubits, req.H, req.J)
	summary, err := h.spectrumSummary(op, key)
	if err != nil {
		h.log.Error().Err(err).Msg("ising spectrum failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	summary["model"] = "ising"
	summary["h"] = req.H
	summary["j"] = req.J
	summary["terms"] = op.MarshalMap()

	h.writeJSON(w, http.StatusOK, envelope(summary))
}

// HandleSpectrum handles POST /api/operators/spectrum: diagonalize an
// explicit Pauli operator.
func (h *Handlers) HandleSpectrum(w http.ResponseWriter, r *http.Request) {
	op, _, ok := h.decodeOperator(w, r)
	if !ok {
		return
	}

	summary, err := h.spectrumSummary(op, "operator:"+operatorKey(op))
	if err != nil {
		h.log.Error().Err(err).Msg("spectrum failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(summary))
}

// HandleEncode handles POST /api/operators/encode: LCU block-encoding
// summary with the block matrix cached for reuse.
func (h *Handlers) HandleEncode(w http.ResponseWriter, r *http.Request) {
	op, req, ok := h.decodeOperator(w, r)
	if !ok {
		return
	}

	nState := req.NState
	if nState == 0 {
		nState = op.NQubits()
	}
	if nState < 1 || nState > maxQubits {
		http.Error(w, fmt.Sprintf("nstate must be between 1 and %d", maxQubits), http.StatusBadRequest)
		return
	}

	box, err := encode.NewLCUBox(op, nState)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	block, err := h.blockMatrix(box, operatorKey(op), nState)
	if err != nil {
		h.log.Error().Err(err).Msg("block matrix failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := map[string]interface{}{
		"l1_norm":        box.L1Norm(),
		"n_prep_qubits":  box.NPrepareQubits(),
		"n_state_qubits": box.NStateQubits(),
		"n_terms":        box.Operator().NumTerms(),
		"is_hermitian":   box.IsHermitian(),
	}
	if block != nil {
		data["block_matrix"] = block
	}

	h.writeJSON(w, http.StatusOK, envelope(data))
}

// decodeOperator parses an OperatorRequest body into a Pauli operator,
// writing the error response on failure.
func (h *Handlers) decodeOperator(w http.ResponseWriter, r *http.Request) (*pauli.Operator, OperatorRequest, bool) {
	var req OperatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, req, false
	}
	if len(req.Terms) == 0 {
		http.Error(w, "terms must not be empty", http.StatusBadRequest)
		return nil, req, false
	}

	op, err := pauli.UnmarshalMap(req.Terms)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, req, false
	}
	if op.NQubits() > maxQubits {
		http.Error(w, fmt.Sprintf("operator acts on more than %d qubits", maxQubits), http.StatusBadRequest)
		return nil, req, false
	}
	return op, req, true
}

// spectrumSummary diagonalizes the operator, consulting the spectra cache
// first, and reports eigenvalue statistics.
func (h *Handlers) spectrumSummary(op *pauli.Operator, key string) (map[string]interface{}, error) {
	var vals []float64
	cached := false

	if h.cache != nil {
		hit, err := h.cache.GetIfFresh(cache.TableSpectra, key, &vals)
		if err != nil {
			h.log.Warn().Err(err).Str("key", key).Msg("spectra cache read failed")
		}
		cached = hit
	}

	if !cached {
		var err error
		vals, _, err = hamiltonian.Spectrum(op)
		if err != nil {
			return nil, err
		}
		if h.cache != nil {
			if err := h.cache.Store(cache.TableSpectra, key, vals, cache.TTLSpectra); err != nil {
				h.log.Warn().Err(err).Str("key", key).Msg("spectra cache write failed")
			}
		}
	}

	if len(vals) == 0 {
		return nil, errors.New("empty spectrum")
	}

	summary := map[string]interface{}{
		"nqubits":       op.NQubits(),
		"num_terms":     op.NumTerms(),
		"dim":           len(vals),
		"ground_energy": vals[0],
		"emin":          vals[0],
		"emax":          vals[len(vals)-1],
		"cached":        cached,
	}
	if len(vals) <= maxInlineSpectrum {
		summary["eigenvalues"] = vals
	}
	return summary, nil
}

// blockMatrix builds (or fetches) the encoded block H/L1 and returns it as
// nested [re, im] pairs when small enough to inline.
func (h *Handlers) blockMatrix(box *encode.LCUBox, opKey string, nState int) ([][][2]float64, error) {
	key := fmt.Sprintf("lcu:%s:nstate=%d", opKey, nState)

	var block [][][2]float64
	if h.cache != nil {
		hit, err := h.cache.GetIfFresh(cache.TableBlockMatrices, key, &block)
		if err != nil {
			h.log.Warn().Err(err).Str("key", key).Msg("block matrix cache read failed")
		}
		if hit {
			if len(block) > maxInlineBlock {
				return nil, nil
			}
			return block, nil
		}
	}

	m, err := box.BlockMatrix()
	if err != nil {
		return nil, err
	}

	rows, cols := m.Dims()
	block = make([][][2]float64, rows)
	for i := 0; i < rows; i++ {
		block[i] = make([][2]float64, cols)
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			block[i][j] = [2]float64{real(v), imag(v)}
		}
	}

	if h.cache != nil {
		if err := h.cache.Store(cache.TableBlockMatrices, key, block, cache.TTLBlockMatrices); err != nil {
			h.log.Warn().Err(err).Str("key", key).Msg("block matrix cache write failed")
		}
	}

	if rows > maxInlineBlock {
		return nil, nil
	}
	return block, nil
}

// operatorKey derives a stable cache key from the operator's term map.
func operatorKey(op *pauli.Operator) string {
	terms := op.MarshalMap()
	keys := make([]string, 0, len(terms))
	for k := range terms {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	hash := sha256.New()
	for _, k := range keys {
		c := terms[k]
		fmt.Fprintf(hash, "%s=%g,%g;", k, c[0], c[1])
	}
	return hex.EncodeToString(hash.Sum(nil))[:32]
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

// writeJSON writes a JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
