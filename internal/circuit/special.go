package circuit

import (
	"fmt"
	"math/bits"

	"github.com/aristath/wallcheb/internal/linalg"
)

// log2Exact returns k with 2^k == n, or an error when n is not a power of two.
func log2Exact(n int) (int, error) {
	if n < 2 || n&(n-1) != 0 {
		return 0, fmt.Errorf("dimension %d is not a power of two >= 2", n)
	}
	return bits.TrailingZeros(uint(n)), nil
}

// StatePrepBox prepares an arbitrary normalized state on a single register,
// embedded as a unitary whose first column is the target amplitudes.
type StatePrepBox struct {
	*RegisterBox
	amplitudes []complex128
}

// NewStatePrepBox builds a preparation box for the given amplitudes on a
// register named regName. The amplitude vector must be unit length with a
// power-of-two dimension.
func NewStatePrepBox(regName string, amplitudes []complex128) (*StatePrepBox, error) {
	n, err := log2Exact(len(amplitudes))
	if err != nil {
		return nil, fmt.Errorf("state prep: %w", err)
	}
	u, err := linalg.HouseholderColumn(amplitudes)
	if err != nil {
		return nil, fmt.Errorf("state prep: %w", err)
	}
	circ := New(fmt.Sprintf("StatePrep(%s)", regName))
	reg := circ.MustAddRegister(regName, n)
	if err := circ.AddUnitary("StatePrep", u, reg.Qubits()...); err != nil {
		return nil, fmt.Errorf("state prep: %w", err)
	}
	amps := make([]complex128, len(amplitudes))
	copy(amps, amplitudes)
	return &StatePrepBox{
		RegisterBox: NewRegisterBox(circ.Name(), circ, nil),
		amplitudes:  amps,
	}, nil
}

// Amplitudes returns the prepared state.
func (b *StatePrepBox) Amplitudes() []complex128 {
	out := make([]complex128, len(b.amplitudes))
	copy(out, b.amplitudes)
	return out
}

// MultiplexedU2Box applies, for each basis state i of an index register, a
// tensor product of single-qubit unitaries to a target register:
//
//	U = Σ_i |i><i| ⊗ (u_i0 ⊗ u_i1 ⊗ ... )
//
// Index values without an entry act as identity on the target register.
type MultiplexedU2Box struct {
	*RegisterBox
	nIndex  int
	nTarget int
}

// NewMultiplexedU2Box builds the multiplexor. blocks maps an index-register
// basis state to one 2x2 unitary per target qubit, ordered from the target
// register's qubit 0.
func NewMultiplexedU2Box(indexName string, nIndex int, targetName string, nTarget int, blocks map[int][]*linalg.Matrix) (*MultiplexedU2Box, error) {
	if nIndex < 1 || nTarget < 1 {
		return nil, fmt.Errorf("multiplexed u2: registers need at least one qubit (index %d, target %d)", nIndex, nTarget)
	}
	for i := range blocks {
		if i < 0 || i >= 1<<nIndex {
			return nil, fmt.Errorf("multiplexed u2: index %d out of range for %d qubits", i, nIndex)
		}
	}
	dim := 1 << nTarget
	u := linalg.Zeros(1<<(nIndex+nTarget), 1<<(nIndex+nTarget))
	for i := 0; i < 1<<nIndex; i++ {
		block := linalg.Identity(dim)
		if us, ok := blocks[i]; ok {
			if len(us) != nTarget {
				return nil, fmt.Errorf("multiplexed u2: index %d carries %d unitaries, want %d", i, len(us), nTarget)
			}
			for q, g := range us {
				if r, c := g.Dims(); r != 2 || c != 2 {
					return nil, fmt.Errorf("multiplexed u2: index %d qubit %d is %dx%d, want 2x2", i, q, r, c)
				}
			}
			block = linalg.KronList(us)
		}
		offset := i * dim
		for r := 0; r < dim; r++ {
			for c := 0; c < dim; c++ {
				u.Set(offset+r, offset+c, block.At(r, c))
			}
		}
	}

	circ := New("MultiplexedU2")
	idx := circ.MustAddRegister(indexName, nIndex)
	tgt := circ.MustAddRegister(targetName, nTarget)
	if err := circ.AddUnitary("MultiplexedU2", u, append(idx.Qubits(), tgt.Qubits()...)...); err != nil {
		return nil, fmt.Errorf("multiplexed u2: %w", err)
	}
	return &MultiplexedU2Box{
		RegisterBox: NewRegisterBox(circ.Name(), circ, nil),
		nIndex:      nIndex,
		nTarget:     nTarget,
	}, nil
}
