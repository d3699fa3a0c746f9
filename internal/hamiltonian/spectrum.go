package hamiltonian

import (
	"github.com/aristath/wallcheb/internal/linalg"
	"github.com/aristath/wallcheb/internal/pauli"
)

// Spectrum returns the dense eigenvalues (ascending) and eigenvectors of an
// operator on its natural qubit count.
func Spectrum(op *pauli.Operator) ([]float64, *linalg.Matrix, error) {
	m, err := op.Matrix(op.NQubits())
	if err != nil {
		return nil, nil, err
	}
	return linalg.EigHermitian(m)
}

// GroundState returns an operator's lowest eigenvalue and the corresponding
// eigenvector.
func GroundState(op *pauli.Operator) (float64, []complex128, error) {
	m, err := op.Matrix(op.NQubits())
	if err != nil {
		return 0, nil, err
	}
	return linalg.GroundState(m)
}
