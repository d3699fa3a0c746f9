package projector

import (
	"errors"
	"fmt"
	"math"
)

// Model names accepted by Request.Model.
const (
	ModelHubbard = "hubbard"
	ModelIsing   = "ising"
)

// Initial state kinds accepted by InitialState.Kind.
const (
	StateReference  = "reference"
	StateIndex      = "index"
	StateAmplitudes = "amplitudes"
)

// Phase target kinds accepted by PhaseRequest.Kind.
const (
	TargetChebyshev = "chebyshev"
	TargetMonomial  = "monomial"
)

// Guard rails for the dense statevector simulation. The state register is
// doubled by the prepare register, so these keep the full vector under a few
// million amplitudes.
const (
	maxHubbardSites = 6
	maxIsingQubits  = 12
	maxWallDegree   = 64
	maxPhaseDegree  = 32
)

// ErrInvalidRequest marks request validation failures so handlers can map
// them to a 400 without string matching.
var ErrInvalidRequest = errors.New("invalid request")

// InitialState selects the state the wall factors act on. The zero value
// means the model's reference state: the alternating-spin occupation for
// Hubbard, all-zeros for Ising.
type InitialState struct {
	Kind       string       `json:"kind"`
	Index      int          `json:"index,omitempty"`
	Amplitudes [][2]float64 `json:"amplitudes,omitempty"`
}

// Request describes one projection run: the model Hamiltonian, the wall
// parameters and the initial state. S and Emax override the spectrum-derived
// wall interval when set; for Hubbard the defaults come from the half-filled
// symmetry sector, for Ising from the full spectrum.
type Request struct {
	Model string `json:"model"`

	// Hubbard parameters. The hopping amplitude is fixed at 1.
	U      float64 `json:"u,omitempty"`
	NSites int     `json:"nsites,omitempty"`

	// Ising parameters.
	NQubits int     `json:"nqubits,omitempty"`
	H       float64 `json:"h,omitempty"`
	J       float64 `json:"j,omitempty"`

	// Wall parameters: degree m, damped-band fraction alpha in (0, 1]
	// (defaults to 1), optional interval overrides.
	M     int      `json:"m"`
	Alpha float64  `json:"alpha,omitempty"`
	S     *float64 `json:"s,omitempty"`
	Emax  *float64 `json:"emax,omitempty"`

	InitialState *InitialState `json:"initial_state,omitempty"`

	// Fidelity additionally reports the squared overlap with the target
	// ground state. PerFactor attaches a detailed record per wall factor.
	Fidelity  bool `json:"fidelity,omitempty"`
	PerFactor bool `json:"per_factor,omitempty"`
}

// withDefaults returns a copy with Alpha and InitialState filled in.
func (r Request) withDefaults() Request {
	if r.Alpha == 0 {
		r.Alpha = 1
	}
	if r.InitialState == nil {
		r.InitialState = &InitialState{Kind: StateReference}
	} else {
		st := *r.InitialState
		if st.Kind == "" {
			st.Kind = StateReference
		}
		r.InitialState = &st
	}
	return r
}

// Validate checks everything that does not depend on the register width.
// Index range and amplitude length are checked once the model fixes the
// state register.
func (r Request) Validate() error {
	switch r.Model {
	case ModelHubbard:
		if r.NSites < 1 || r.NSites > maxHubbardSites {
			return fmt.Errorf("%w: nsites must be between 1 and %d, got %d", ErrInvalidRequest, maxHubbardSites, r.NSites)
		}
	case ModelIsing:
		if r.NQubits < 1 || r.NQubits > maxIsingQubits {
			return fmt.Errorf("%w: nqubits must be between 1 and %d, got %d", ErrInvalidRequest, maxIsingQubits, r.NQubits)
		}
	default:
		return fmt.Errorf("%w: unknown model %q", ErrInvalidRequest, r.Model)
	}
	if r.M < 0 || r.M > maxWallDegree {
		return fmt.Errorf("%w: m must be between 0 and %d, got %d", ErrInvalidRequest, maxWallDegree, r.M)
	}
	if r.Alpha != 0 && (r.Alpha <= 0 || r.Alpha > 1) {
		return fmt.Errorf("%w: alpha must be in (0, 1], got %v", ErrInvalidRequest, r.Alpha)
	}
	if r.S != nil && r.Emax != nil && *r.Emax <= *r.S {
		return fmt.Errorf("%w: emax %v must exceed s %v", ErrInvalidRequest, *r.Emax, *r.S)
	}
	if st := r.InitialState; st != nil {
		switch st.Kind {
		case "", StateReference:
		case StateIndex:
			if st.Index < 0 {
				return fmt.Errorf("%w: initial state index must be non-negative", ErrInvalidRequest)
			}
		case StateAmplitudes:
			if len(st.Amplitudes) == 0 {
				return fmt.Errorf("%w: initial state amplitudes are empty", ErrInvalidRequest)
			}
		default:
			return fmt.Errorf("%w: unknown initial state kind %q", ErrInvalidRequest, st.Kind)
		}
	}
	return nil
}

// ModelKey is the canonical cache key for the request's Hamiltonian.
func (r Request) ModelKey() string {
	switch r.Model {
	case ModelHubbard:
		return fmt.Sprintf("hubbard:nsites=%d:u=%g", r.NSites, r.U)
	case ModelIsing:
		return fmt.Sprintf("ising:nqubits=%d:h=%g:j=%g", r.NQubits, r.H, r.J)
	}
	return r.Model
}

// spectrumKey distinguishes the sector spectrum used for Hubbard walls from
// the full-space one used for Ising.
func (r Request) spectrumKey() string {
	if r.Model == ModelHubbard {
		return r.ModelKey() + ":sector"
	}
	return r.ModelKey() + ":full"
}

// FactorRecord is the per-factor detail attached when Request.PerFactor is
// set.
type FactorRecord struct {
	Index       int     `json:"index"`
	Shift       float64 `json:"shift"`
	L1Norm      float64 `json:"l1_norm"`
	NPrepQubits int     `json:"n_prep_qubits"`
	SuccessProb float64 `json:"success_prob"`
	Energy      float64 `json:"energy"`
	ElapsedMS   float64 `json:"elapsed_ms"`
}

// Result reports one projection run. Energies[0] is the initial state
// energy, Energies[k] the energy after the k-th factor, all against the
// unshifted Hamiltonian. CumulativeSuccess is the probability that every
// factor's prepare register measured all-zeros.
type Result struct {
	Model        string  `json:"model"`
	NStateQubits int     `json:"n_state_qubits"`
	M            int     `json:"m"`
	Alpha        float64 `json:"alpha"`
	S            float64 `json:"s"`
	Emax         float64 `json:"emax"`

	Shifts       []float64 `json:"shifts"`
	Energies     []float64 `json:"energies"`
	SuccessProbs []float64 `json:"success_probs"`

	InitialEnergy     float64        `json:"initial_energy"`
	FinalEnergy       float64        `json:"final_energy"`
	GroundEnergy      float64        `json:"ground_energy"`
	Fidelity          *float64       `json:"fidelity,omitempty"`
	CumulativeSuccess float64        `json:"cumulative_success"`
	Factors           []FactorRecord `json:"factors,omitempty"`
	ElapsedMS         float64        `json:"elapsed_ms"`
}

// ShiftPreview reports the wall interval and shifts a request would use,
// without running the projection.
type ShiftPreview struct {
	Model        string    `json:"model"`
	M            int       `json:"m"`
	Alpha        float64   `json:"alpha"`
	S            float64   `json:"s"`
	Emax         float64   `json:"emax"`
	GroundEnergy float64   `json:"ground_energy"`
	Shifts       []float64 `json:"shifts"`
	L1Norms      []float64 `json:"l1_norms"`
}

// PhaseRequest asks for QSP phases realizing a named polynomial target.
type PhaseRequest struct {
	Kind   string `json:"kind"`
	Degree int    `json:"degree"`
}

// Validate rejects unknown targets and out-of-range degrees.
func (r PhaseRequest) Validate() error {
	switch r.Kind {
	case TargetChebyshev, TargetMonomial:
	default:
		return fmt.Errorf("%w: unknown phase target %q", ErrInvalidRequest, r.Kind)
	}
	if r.Degree < 1 || r.Degree > maxPhaseDegree {
		return fmt.Errorf("%w: degree must be between 1 and %d, got %d", ErrInvalidRequest, maxPhaseDegree, r.Degree)
	}
	return nil
}

// CacheKey is the canonical qsp_phases key for the target.
func (r PhaseRequest) CacheKey() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.Degree)
}

// Target returns the polynomial the phases should realize on [-1, 1].
func (r PhaseRequest) Target() func(float64) float64 {
	degree := r.Degree
	if r.Kind == TargetMonomial {
		return func(x float64) float64 { return math.Pow(x, float64(degree)) }
	}
	return func(x float64) float64 { return math.Cos(float64(degree) * math.Acos(x)) }
}

// PhaseResult carries compiled QSP phases together with the fit residual.
type PhaseResult struct {
	Kind   string    `json:"kind"`
	Degree int       `json:"degree"`
	Phi    []float64 `json:"phi"`
	Loss   float64   `json:"loss"`
	Cached bool      `json:"cached"`
}
