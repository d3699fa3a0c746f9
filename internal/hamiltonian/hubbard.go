// Package hamiltonian builds lattice-model Hamiltonians as Pauli operators
// and provides the spectral utilities the wall-Chebyshev filter is driven
// by: particle-sector projection, wall shift grids, and dense spectra.
package hamiltonian

import (
	"fmt"

	"github.com/aristath/wallcheb/internal/pauli"
)

// Hubbard returns the one-dimensional open-boundary Fermi-Hubbard
// Hamiltonian on nsites sites under the Jordan-Wigner transform, with the
// hopping amplitude fixed at 1 and on-site repulsion u.
//
// Spin orbitals interleave site by site: the up orbital of site i maps to
// qubit 2i and the down orbital to qubit 2i+1, so the operator acts on
// 2*nsites qubits. Hopping between the same-spin orbitals p < q of adjacent
// sites becomes -1/2*(X_p Z X_q + Y_p Z Y_q) with the Z filling the single
// qubit between them, and the on-site term u*n_up*n_down expands to
// u/4*(I - Z_up)(I - Z_down).
func Hubbard(u float64, nsites int) (*pauli.Operator, error) {
	if nsites < 1 {
		return nil, fmt.Errorf("hubbard: nsites must be >= 1, got %d", nsites)
	}
	op := pauli.NewOperator()
	for site := 0; site+1 < nsites; site++ {
		for spin := 0; spin < 2; spin++ {
			p := 2*site + spin
			q := 2*(site+1) + spin
			qubits := []int{p, p + 1, q}
			op.Add(pauli.MustString(qubits, []pauli.Pauli{pauli.X, pauli.Z, pauli.X}), complex(-0.5, 0))
			op.Add(pauli.MustString(qubits, []pauli.Pauli{pauli.Y, pauli.Z, pauli.Y}), complex(-0.5, 0))
		}
	}
	quarter := complex(u/4, 0)
	for site := 0; site < nsites; site++ {
		up, down := 2*site, 2*site+1
		op.AddScalar(quarter)
		op.Add(pauli.MustString([]int{up}, []pauli.Pauli{pauli.Z}), -quarter)
		op.Add(pauli.MustString([]int{down}, []pauli.Pauli{pauli.Z}), -quarter)
		op.Add(pauli.MustString([]int{up, down}, []pauli.Pauli{pauli.Z, pauli.Z}), quarter)
	}
	return op.Compress(), nil
}
