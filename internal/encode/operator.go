// Package encode builds linear-combination-of-unitaries (LCU) block
// encodings of Pauli operators. An encoding is prepare; select; prepare†
// on a prepare register p and a state register q: postselecting p to
// |0...0> leaves the state register acted on by operator / L1, where L1 is
// the sum of coefficient magnitudes.
package encode

import (
	"fmt"
	"math"
	"math/bits"
	"math/cmplx"

	"github.com/aristath/wallcheb/internal/linalg"
	"github.com/aristath/wallcheb/internal/pauli"
)

// Register names shared by every block encoding.
const (
	PrepareRegister = "p"
	StateRegister   = "q"
)

// multiplexedTerm is one LCU term: the coefficient magnitude and one 2x2
// factor per state qubit. The coefficient phase is absorbed into the qubit-0
// factor, making it a general SU(2) operation.
type multiplexedTerm struct {
	magnitude float64
	factors   []*linalg.Matrix
	hermitian bool
}

// decompose splits an operator into multiplexed terms in the operator's
// deterministic term order. Every term carries nState factors, identity on
// unmentioned qubits.
func decompose(op *pauli.Operator, nState int) ([]multiplexedTerm, error) {
	if op.NumTerms() == 0 {
		return nil, fmt.Errorf("operator has no terms")
	}
	if nq := op.NQubits(); nq > nState {
		return nil, fmt.Errorf("operator touches %d qubits but state register has %d", nq, nState)
	}
	out := make([]multiplexedTerm, 0, op.NumTerms())
	for _, t := range op.Terms() {
		mag := cmplx.Abs(t.Coeff)
		phase := complex(1, 0)
		if mag > 0 {
			phase = t.Coeff / complex(mag, 0)
		}
		factors := make([]*linalg.Matrix, nState)
		for q := 0; q < nState; q++ {
			factors[q] = t.String.At(q).Matrix()
		}
		factors[0] = factors[0].ScaleC(phase)
		out = append(out, multiplexedTerm{
			magnitude: mag,
			factors:   factors,
			// e^{iφ} = ±1 keeps the term Hermitian.
			hermitian: math.Abs(imag(phase)) < 1e-10,
		})
	}
	return out, nil
}

// NPrepareQubits returns the prepare register width for a term count:
// ceil(log2(nTerms)), at least one qubit.
func NPrepareQubits(nTerms int) int {
	if nTerms < 2 {
		return 1
	}
	return bits.Len(uint(nTerms - 1))
}
