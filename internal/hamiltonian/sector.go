package hamiltonian

import (
	"fmt"
	"math/bits"

	"github.com/aristath/wallcheb/internal/linalg"
)

// PopCount returns the number of set bits in a basis index, i.e. the number
// of occupied orbitals of the computational state it labels.
func PopCount(index int) int {
	return bits.OnesCount(uint(index))
}

// EvenBitPopCount returns the number of set bits at even bit positions of a
// basis index. With the interleaved spin layout these positions belong to a
// single spin species, so the count is that species' occupation number.
func EvenBitPopCount(index int) int {
	count := 0
	for index != 0 {
		count += index & 1
		index >>= 2
	}
	return count
}

// HasBits reports whether every set bit of mask is also set in index.
func HasBits(index, mask int) bool {
	return index&mask == mask
}

// Sector is the restriction of a Hamiltonian matrix to the computational
// basis states with fixed particle numbers. Particle-number symmetry makes
// the Hamiltonian block diagonal, so the restriction retains the exact
// eigenstates carrying those quantum numbers.
type Sector struct {
	// Matrix is the reduced Hamiltonian on the kept basis states.
	Matrix *linalg.Matrix
	// Indices lists the full-space basis indices of the kept states in
	// ascending order; row k of Matrix corresponds to Indices[k].
	Indices []int
}

// IndexOf returns the sector row of a full-space basis index, or -1 if the
// state lies outside the sector.
func (s *Sector) IndexOf(fullIndex int) int {
	for k, idx := range s.Indices {
		if idx == fullIndex {
			return k
		}
	}
	return -1
}

// Dim returns the number of basis states in the sector.
func (s *Sector) Dim() int {
	return len(s.Indices)
}

// SectorProject restricts a Hamiltonian matrix to the basis states with
// nelec occupied orbitals, nalpha of them counted by EvenBitPopCount.
func SectorProject(m *linalg.Matrix, nelec, nalpha int) (*Sector, error) {
	rows, cols := m.Dims()
	if rows != cols {
		return nil, fmt.Errorf("sector: matrix is %dx%d, want square", rows, cols)
	}
	var indices []int
	for i := 0; i < rows; i++ {
		if PopCount(i) == nelec && EvenBitPopCount(i) == nalpha {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("sector: no basis states with nelec=%d nalpha=%d in dimension %d", nelec, nalpha, rows)
	}
	sub := linalg.Zeros(len(indices), len(indices))
	for a, i := range indices {
		for b, j := range indices {
			sub.Set(a, b, m.At(i, j))
		}
	}
	return &Sector{Matrix: sub, Indices: indices}, nil
}

// ReferenceState returns the basis index of the half-filled alternating
// occupation state on nsites sites (site 0 spin up, site 1 spin down, and
// so on), the default initial state for projection runs.
func ReferenceState(nsites int) int {
	n := 2 * nsites
	index := 0
	for site := 0; site < nsites; site++ {
		q := 2*site + site%2
		index |= 1 << (n - 1 - q)
	}
	return index
}
