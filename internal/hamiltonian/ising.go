package hamiltonian

import (
	"fmt"

	"github.com/aristath/wallcheb/internal/pauli"
)

// Ising returns the transverse-field Ising Hamiltonian on an open chain:
// j*sum Z_i Z_{i+1} + h*sum X_i.
func Ising(nqubits int, h, j float64) (*pauli.Operator, error) {
	if nqubits < 1 {
		return nil, fmt.Errorf("ising: nqubits must be >= 1, got %d", nqubits)
	}
	op := pauli.NewOperator()
	for i := 0; i+1 < nqubits; i++ {
		op.Add(pauli.MustString([]int{i, i + 1}, []pauli.Pauli{pauli.Z, pauli.Z}), complex(j, 0))
	}
	for i := 0; i < nqubits; i++ {
		op.Add(pauli.MustString([]int{i}, []pauli.Pauli{pauli.X}), complex(h, 0))
	}
	return op.Compress(), nil
}
