// Package pauli implements Pauli strings and operators (linear combinations
// of Pauli strings) on named qubit indices, together with their dense matrix
// representations. Qubit ordering is big-endian: qubit 0 is the most
// significant bit of a computational basis index.
package pauli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aristath/wallcheb/internal/linalg"
)

// Pauli is a single-qubit Pauli operator.
type Pauli byte

const (
	I Pauli = iota
	X
	Y
	Z
)

// String returns the letter name of the Pauli.
func (p Pauli) String() string {
	switch p {
	case I:
		return "I"
	case X:
		return "X"
	case Y:
		return "Y"
	case Z:
		return "Z"
	default:
		return "?"
	}
}

// Matrix returns the 2x2 matrix of the Pauli.
func (p Pauli) Matrix() *linalg.Matrix {
	switch p {
	case X:
		return linalg.FromRows([][]complex128{{0, 1}, {1, 0}})
	case Y:
		return linalg.FromRows([][]complex128{{0, complex(0, -1)}, {complex(0, 1), 0}})
	case Z:
		return linalg.FromRows([][]complex128{{1, 0}, {0, -1}})
	default:
		return linalg.Identity(2)
	}
}

// PauliString is a sparse assignment of non-identity Paulis to qubit indices.
// Identity entries are elided; the zero value is the identity string.
type PauliString struct {
	paulis map[int]Pauli
}

// NewString builds a Pauli string from parallel qubit/Pauli slices.
// Identity entries are dropped; duplicate qubits are an error.
func NewString(qubits []int, paulis []Pauli) (PauliString, error) {
	if len(qubits) != len(paulis) {
		return PauliString{}, fmt.Errorf("qubit/pauli length mismatch: %d vs %d", len(qubits), len(paulis))
	}
	m := make(map[int]Pauli, len(qubits))
	for i, q := range qubits {
		if q < 0 {
			return PauliString{}, fmt.Errorf("negative qubit index %d", q)
		}
		if _, dup := m[q]; dup {
			return PauliString{}, fmt.Errorf("duplicate qubit index %d", q)
		}
		if paulis[i] != I {
			m[q] = paulis[i]
		}
	}
	return PauliString{paulis: m}, nil
}

// MustString is NewString that panics on malformed input. Intended for
// literals in model builders and tests.
func MustString(qubits []int, paulis []Pauli) PauliString {
	s, err := NewString(qubits, paulis)
	if err != nil {
		panic(err)
	}
	return s
}

// At returns the Pauli acting on qubit q (identity if unset).
func (s PauliString) At(q int) Pauli {
	if s.paulis == nil {
		return I
	}
	return s.paulis[q]
}

// Qubits returns the indices carrying non-identity Paulis, ascending.
func (s PauliString) Qubits() []int {
	qs := make([]int, 0, len(s.paulis))
	for q := range s.paulis {
		qs = append(qs, q)
	}
	sort.Ints(qs)
	return qs
}

// IsIdentity reports whether the string acts trivially everywhere.
func (s PauliString) IsIdentity() bool {
	return len(s.paulis) == 0
}

// MaxQubit returns the highest qubit index touched, or -1 for identity.
func (s PauliString) MaxQubit() int {
	max := -1
	for q := range s.paulis {
		if q > max {
			max = q
		}
	}
	return max
}

// Key returns the canonical text form, e.g. "X0 Z2 Y5". The identity string
// has the empty key. Keys are used as deterministic map keys and sort order.
func (s PauliString) Key() string {
	qs := s.Qubits()
	parts := make([]string, 0, len(qs))
	for _, q := range qs {
		parts = append(parts, fmt.Sprintf("%s%d", s.paulis[q], q))
	}
	return strings.Join(parts, " ")
}

// Matrix returns the dense 2^n x 2^n matrix of the string on n qubits.
// Qubit 0 is the leftmost Kronecker factor (most significant bit).
func (s PauliString) Matrix(n int) (*linalg.Matrix, error) {
	if s.MaxQubit() >= n {
		return nil, fmt.Errorf("string touches qubit %d but operator has %d qubits", s.MaxQubit(), n)
	}
	factors := make([]*linalg.Matrix, n)
	for q := 0; q < n; q++ {
		factors[q] = s.At(q).Matrix()
	}
	return linalg.KronList(factors), nil
}

// parseKey rebuilds a PauliString from its Key form. Inverse of Key.
func parseKey(key string) (PauliString, error) {
	if key == "" {
		return PauliString{}, nil
	}
	m := make(map[int]Pauli)
	for _, part := range strings.Fields(key) {
		var p Pauli
		switch part[0] {
		case 'X':
			p = X
		case 'Y':
			p = Y
		case 'Z':
			p = Z
		case 'I':
			p = I
		default:
			return PauliString{}, fmt.Errorf("bad pauli letter in %q", part)
		}
		var q int
		if _, err := fmt.Sscanf(part[1:], "%d", &q); err != nil {
			return PauliString{}, fmt.Errorf("bad qubit index in %q: %w", part, err)
		}
		if p != I {
			m[q] = p
		}
	}
	return PauliString{paulis: m}, nil
}
