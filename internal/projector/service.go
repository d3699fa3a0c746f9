// Package projector applies products of shifted Hamiltonian factors to a
// statevector through postselected block encodings, steering the state
// toward the ground state of the model Hamiltonian.
package projector

import (
	"context"
	"fmt"
	"math/cmplx"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/wallcheb/internal/cache"
	"github.com/aristath/wallcheb/internal/chebyshev"
	"github.com/aristath/wallcheb/internal/encode"
	"github.com/aristath/wallcheb/internal/hamiltonian"
	"github.com/aristath/wallcheb/internal/linalg"
	"github.com/aristath/wallcheb/internal/measure"
	"github.com/aristath/wallcheb/internal/pauli"
	"github.com/aristath/wallcheb/internal/utils"
)

// annihilationTol matches the threshold measure uses when renormalizing:
// below it the postselected state carries no usable amplitude.
const annihilationTol = 1e-14

// Service runs wall projections and compiles QSP phases. The cache
// repository is optional; nil disables spectrum and phase caching.
type Service struct {
	log   zerolog.Logger
	cache *cache.Repository
}

// NewService creates a projector service.
func NewService(log zerolog.Logger, repo *cache.Repository) *Service {
	return &Service{
		log:   log.With().Str("service", "projector").Logger(),
		cache: repo,
	}
}

// wallTarget is the spectral data a run needs: the wall interval endpoints
// and the ground state the projection aims at.
type wallTarget struct {
	s, emax      float64
	groundEnergy float64
	ground       []complex128 // full-space ground vector, nil unless requested
}

// resolveTarget derives the wall interval from the spectrum, unless the
// request overrides it. Hubbard walls come from the half-filled symmetry
// sector; the sector ground vector is embedded back into the full space for
// fidelity against the simulated state.
func (s *Service) resolveTarget(req Request, hmat *linalg.Matrix, nState int, needGround bool) (*wallTarget, error) {
	var (
		vals []float64
		vecs *linalg.Matrix
		err  error
	)
	target := &wallTarget{}
	switch req.Model {
	case ModelHubbard:
		sector, serr := hamiltonian.SectorProject(hmat, req.NSites, req.NSites/2)
		if serr != nil {
			return nil, fmt.Errorf("sector projection: %w", serr)
		}
		vals, vecs, err = s.eig(req.spectrumKey(), sector.Matrix, needGround)
		if err != nil {
			return nil, err
		}
		if needGround {
			target.ground = make([]complex128, 1<<nState)
			col := vecs.Col(0)
			for k, idx := range sector.Indices {
				target.ground[idx] = col[k]
			}
		}
	case ModelIsing:
		vals, vecs, err = s.eig(req.spectrumKey(), hmat, needGround)
		if err != nil {
			return nil, err
		}
		if needGround {
			target.ground = vecs.Col(0)
		}
	default:
		return nil, fmt.Errorf("%w: unknown model %q", ErrInvalidRequest, req.Model)
	}
	target.groundEnergy = vals[0]
	target.s = vals[0]
	target.emax = vals[len(vals)-1]
	if req.S != nil {
		target.s = *req.S
	}
	if req.Emax != nil {
		target.emax = *req.Emax
	}
	if target.emax < target.s {
		return nil, fmt.Errorf("%w: emax %g below s %g", ErrInvalidRequest, target.emax, target.s)
	}
	return target, nil
}

// eig diagonalizes m, serving eigenvalues from the spectra cache when the
// eigenvectors are not needed.
func (s *Service) eig(key string, m *linalg.Matrix, needVecs bool) ([]float64, *linalg.Matrix, error) {
	if !needVecs && s.cache != nil {
		var vals []float64
		hit, err := s.cache.GetIfFresh(cache.TableSpectra, key, &vals)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("spectra cache read failed")
		} else if hit && len(vals) > 0 {
			return vals, nil, nil
		}
	}
	vals, vecs, err := linalg.EigHermitian(m)
	if err != nil {
		return nil, nil, fmt.Errorf("eigendecomposition: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Store(cache.TableSpectra, key, vals, cache.TTLSpectra); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("spectra cache write failed")
		}
	}
	return vals, vecs, nil
}

// buildOperator constructs the model Hamiltonian and fixes the state
// register width.
func buildOperator(req Request) (*pauli.Operator, int, error) {
	switch req.Model {
	case ModelHubbard:
		op, err := hamiltonian.Hubbard(req.U, req.NSites)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return op, 2 * req.NSites, nil
	case ModelIsing:
		op, err := hamiltonian.Ising(req.NQubits, req.H, req.J)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return op, req.NQubits, nil
	}
	return nil, 0, fmt.Errorf("%w: unknown model %q", ErrInvalidRequest, req.Model)
}

// initialState builds the normalized statevector the wall factors act on.
func initialState(req Request, nState int) ([]complex128, error) {
	dim := 1 << nState
	st := req.InitialState
	switch st.Kind {
	case StateReference:
		idx := 0
		if req.Model == ModelHubbard {
			idx = hamiltonian.ReferenceState(req.NSites)
		}
		sv := make([]complex128, dim)
		sv[idx] = 1
		return sv, nil
	case StateIndex:
		if st.Index >= dim {
			return nil, fmt.Errorf("%w: initial state index %d out of range for %d qubits", ErrInvalidRequest, st.Index, nState)
		}
		sv := make([]complex128, dim)
		sv[st.Index] = 1
		return sv, nil
	case StateAmplitudes:
		if len(st.Amplitudes) != dim {
			return nil, fmt.Errorf("%w: got %d amplitudes, want %d", ErrInvalidRequest, len(st.Amplitudes), dim)
		}
		sv := make([]complex128, dim)
		for i, a := range st.Amplitudes {
			sv[i] = complex(a[0], a[1])
		}
		if linalg.Norm(sv) < annihilationTol {
			return nil, fmt.Errorf("%w: initial state has zero norm", ErrInvalidRequest)
		}
		linalg.Normalize(sv)
		return sv, nil
	}
	return nil, fmt.Errorf("%w: unknown initial state kind %q", ErrInvalidRequest, st.Kind)
}

// Run applies the m wall factors to the initial state by statevector
// simulation, postselecting each factor's prepare register on all-zeros.
// Every factor gets a fresh prepare register, so the recorded success
// probabilities multiply into CumulativeSuccess. The run fails with
// measure.ErrAnnihilated when a factor leaves no amplitude to postselect.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	req = req.withDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	defer utils.OperationTimer("projection_run", s.log)()
	start := time.Now()

	op, nState, err := buildOperator(req)
	if err != nil {
		return nil, err
	}
	hmat, err := op.Matrix(nState)
	if err != nil {
		return nil, fmt.Errorf("hamiltonian matrix: %w", err)
	}
	target, err := s.resolveTarget(req, hmat, nState, req.Fidelity)
	if err != nil {
		return nil, err
	}
	shifts, err := hamiltonian.WallShifts(target.s, target.emax, req.M, req.Alpha)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	factors := hamiltonian.ShiftedOperators(op, shifts)

	sv, err := initialState(req, nState)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Model:             req.Model,
		NStateQubits:      nState,
		M:                 req.M,
		Alpha:             req.Alpha,
		S:                 target.s,
		Emax:              target.emax,
		Shifts:            shifts,
		Energies:          make([]float64, 0, req.M+1),
		SuccessProbs:      make([]float64, 0, req.M),
		GroundEnergy:      target.groundEnergy,
		CumulativeSuccess: 1,
	}
	res.InitialEnergy = measure.ExpectationReal(hmat, sv)
	res.Energies = append(res.Energies, res.InitialEnergy)

	s.log.Info().
		Str("model", req.Model).
		Int("m", req.M).
		Float64("alpha", req.Alpha).
		Float64("s", target.s).
		Float64("emax", target.emax).
		Float64("initial_energy", res.InitialEnergy).
		Msg("starting wall projection")

	for k, factor := range factors {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("projection cancelled before factor %d: %w", k, err)
		}
		factorStart := time.Now()

		box, err := encode.NewLCUBox(factor, nState)
		if err != nil {
			return nil, fmt.Errorf("factor %d: %w", k, err)
		}
		circ := box.Circuit()
		nPrep := box.NPrepareQubits()
		nTotal := nPrep + nState

		// The prepare register leads, so |0...0>_p (x) |psi> occupies the
		// first 2^nState amplitudes of the combined vector.
		full := make([]complex128, 1<<nTotal)
		copy(full, sv)
		if err := circ.Run(full); err != nil {
			return nil, fmt.Errorf("factor %d: %w", k, err)
		}

		selects := make(map[int]int, nPrep)
		for q, v := range box.Postselect() {
			pos, perr := circ.Position(q)
			if perr != nil {
				return nil, fmt.Errorf("factor %d: %w", k, perr)
			}
			selects[pos] = v
		}
		reduced, err := measure.StatevectorPostselect(nTotal, full, selects, false)
		if err != nil {
			return nil, fmt.Errorf("factor %d: %w", k, err)
		}

		norm := linalg.Norm(reduced)
		if norm < annihilationTol {
			return nil, fmt.Errorf("factor %d (shift %g): %w", k, shifts[k], measure.ErrAnnihilated)
		}
		prob := norm * norm
		linalg.Normalize(reduced)
		sv = reduced

		energy := measure.ExpectationReal(hmat, sv)
		res.Energies = append(res.Energies, energy)
		res.SuccessProbs = append(res.SuccessProbs, prob)
		res.CumulativeSuccess *= prob
		if req.PerFactor {
			res.Factors = append(res.Factors, FactorRecord{
				Index:       k,
				Shift:       shifts[k],
				L1Norm:      box.L1Norm(),
				NPrepQubits: nPrep,
				SuccessProb: prob,
				Energy:      energy,
				ElapsedMS:   msSince(factorStart),
			})
		}
		s.log.Debug().
			Int("factor", k).
			Float64("shift", shifts[k]).
			Float64("success_prob", prob).
			Float64("energy", energy).
			Msg("wall factor applied")
	}

	res.FinalEnergy = res.Energies[len(res.Energies)-1]
	if req.Fidelity {
		f := overlapSquared(target.ground, sv)
		res.Fidelity = &f
	}
	res.ElapsedMS = msSince(start)

	s.log.Info().
		Str("model", req.Model).
		Float64("final_energy", res.FinalEnergy).
		Float64("ground_energy", res.GroundEnergy).
		Float64("cumulative_success", res.CumulativeSuccess).
		Float64("elapsed_ms", res.ElapsedMS).
		Msg("wall projection finished")
	return res, nil
}

// Shifts reports the wall interval and shifts a request would use, together
// with the L1 norm each shifted factor's block encoding would carry.
func (s *Service) Shifts(ctx context.Context, req Request) (*ShiftPreview, error) {
	req = req.withDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	op, nState, err := buildOperator(req)
	if err != nil {
		return nil, err
	}
	hmat, err := op.Matrix(nState)
	if err != nil {
		return nil, fmt.Errorf("hamiltonian matrix: %w", err)
	}
	target, err := s.resolveTarget(req, hmat, nState, false)
	if err != nil {
		return nil, err
	}
	shifts, err := hamiltonian.WallShifts(target.s, target.emax, req.M, req.Alpha)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	l1s := make([]float64, len(shifts))
	for k, factor := range hamiltonian.ShiftedOperators(op, shifts) {
		var l1 float64
		for _, term := range factor.Terms() {
			l1 += cmplx.Abs(term.Coeff)
		}
		l1s[k] = l1
	}
	return &ShiftPreview{
		Model:        req.Model,
		M:            req.M,
		Alpha:        req.Alpha,
		S:            target.s,
		Emax:         target.emax,
		GroundEnergy: target.groundEnergy,
		Shifts:       shifts,
		L1Norms:      l1s,
	}, nil
}

// phaseBlob is the msgpack layout stored in qsp_phases.
type phaseBlob struct {
	Phi  []float64 `msgpack:"phi"`
	Loss float64   `msgpack:"loss"`
}

// CompilePhases returns QSP phases realizing the requested polynomial,
// serving repeats from the qsp_phases cache.
func (s *Service) CompilePhases(ctx context.Context, req PhaseRequest) (*PhaseResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	key := req.CacheKey()
	if s.cache != nil {
		var blob phaseBlob
		hit, err := s.cache.GetIfFresh(cache.TableQSPPhases, key, &blob)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("phase cache read failed")
		} else if hit && len(blob.Phi) == req.Degree+1 {
			return &PhaseResult{Kind: req.Kind, Degree: req.Degree, Phi: blob.Phi, Loss: blob.Loss, Cached: true}, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	phases, err := chebyshev.CompilePhases(req.Target(), req.Degree)
	if err != nil {
		return nil, fmt.Errorf("compile %s phases: %w", key, err)
	}
	s.log.Info().
		Str("target", key).
		Float64("loss", phases.Loss).
		Float64("elapsed_ms", msSince(start)).
		Msg("compiled qsp phases")

	if s.cache != nil {
		if err := s.cache.Store(cache.TableQSPPhases, key, phaseBlob{Phi: phases.Phi, Loss: phases.Loss}, cache.TTLPhases); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("phase cache write failed")
		}
	}
	return &PhaseResult{Kind: req.Kind, Degree: req.Degree, Phi: phases.Phi, Loss: phases.Loss}, nil
}

// overlapSquared is |<a|b>|^2 for normalized vectors.
func overlapSquared(a, b []complex128) float64 {
	d := linalg.Dot(a, b)
	abs := cmplx.Abs(d)
	return abs * abs
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
