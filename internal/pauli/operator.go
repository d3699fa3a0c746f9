package pauli

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"github.com/aristath/wallcheb/internal/linalg"
)

// compressTol is the magnitude below which a coefficient is treated as zero.
const compressTol = 1e-12

// Term is a Pauli string with a complex coefficient.
type Term struct {
	String PauliString
	Coeff  complex128
}

// Operator is a linear combination of Pauli strings. The zero value is the
// zero operator. Operators are not safe for concurrent mutation.
type Operator struct {
	terms map[string]Term
}

// NewOperator creates an empty operator.
func NewOperator() *Operator {
	return &Operator{terms: make(map[string]Term)}
}

// FromTerms creates an operator from a term list, accumulating duplicates.
func FromTerms(terms []Term) *Operator {
	op := NewOperator()
	for _, t := range terms {
		op.Add(t.String, t.Coeff)
	}
	return op
}

// Add accumulates coeff onto the given string.
func (op *Operator) Add(s PauliString, coeff complex128) {
	if op.terms == nil {
		op.terms = make(map[string]Term)
	}
	key := s.Key()
	t := op.terms[key]
	t.String = s
	t.Coeff += coeff
	op.terms[key] = t
}

// AddScalar adds c times the identity.
func (op *Operator) AddScalar(c complex128) {
	op.Add(PauliString{}, c)
}

// Scale multiplies every coefficient by c in place and returns op.
func (op *Operator) Scale(c complex128) *Operator {
	for key, t := range op.terms {
		t.Coeff *= c
		op.terms[key] = t
	}
	return op
}

// Plus returns a new operator op + other.
func (op *Operator) Plus(other *Operator) *Operator {
	out := NewOperator()
	for _, t := range op.Terms() {
		out.Add(t.String, t.Coeff)
	}
	for _, t := range other.Terms() {
		out.Add(t.String, t.Coeff)
	}
	return out
}

// Compress drops terms with near-zero coefficients and returns op.
func (op *Operator) Compress() *Operator {
	for key, t := range op.terms {
		if cmplx.Abs(t.Coeff) < compressTol {
			delete(op.terms, key)
		}
	}
	return op
}

// Copy returns a deep copy.
func (op *Operator) Copy() *Operator {
	out := NewOperator()
	for key, t := range op.terms {
		out.terms[key] = t
	}
	return out
}

// NumTerms returns the number of stored terms (including near-zero ones).
func (op *Operator) NumTerms() int {
	return len(op.terms)
}

// Coeff returns the coefficient of the given string (zero if absent).
func (op *Operator) Coeff(s PauliString) complex128 {
	return op.terms[s.Key()].Coeff
}

// Terms returns the terms in deterministic (key-sorted) order.
// The ordering ties prepare amplitudes to select multiplexor rows, so it
// must be stable across calls.
func (op *Operator) Terms() []Term {
	keys := make([]string, 0, len(op.terms))
	for key := range op.terms {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]Term, 0, len(keys))
	for _, key := range keys {
		out = append(out, op.terms[key])
	}
	return out
}

// NQubits returns the minimal qubit count covering every term.
func (op *Operator) NQubits() int {
	max := -1
	for _, t := range op.terms {
		if m := t.String.MaxQubit(); m > max {
			max = m
		}
	}
	return max + 1
}

// IsHermitian reports whether all coefficients are real (after ignoring
// near-zero imaginary parts). Pauli strings are Hermitian, so reality of the
// coefficients is equivalent to hermiticity of the operator.
func (op *Operator) IsHermitian() bool {
	for _, t := range op.terms {
		if math.Abs(imag(t.Coeff)) > compressTol {
			return false
		}
	}
	return true
}

// Matrix returns the dense matrix of the operator on n qubits.
// n must cover every term; n == 0 uses NQubits() (minimum 1).
func (op *Operator) Matrix(n int) (*linalg.Matrix, error) {
	if n == 0 {
		n = op.NQubits()
		if n == 0 {
			n = 1
		}
	}
	if nq := op.NQubits(); nq > n {
		return nil, fmt.Errorf("operator touches %d qubits, matrix requested on %d", nq, n)
	}
	dim := 1 << n
	out := linalg.Zeros(dim, dim)
	for _, t := range op.Terms() {
		m, err := t.String.Matrix(n)
		if err != nil {
			return nil, err
		}
		out = out.Plus(m.ScaleC(t.Coeff))
	}
	return out, nil
}

// MarshalMap returns a plain map form (key -> [re, im]) used for JSON
// persistence of experiment inputs.
func (op *Operator) MarshalMap() map[string][2]float64 {
	out := make(map[string][2]float64, len(op.terms))
	for key, t := range op.terms {
		out[key] = [2]float64{real(t.Coeff), imag(t.Coeff)}
	}
	return out
}

// UnmarshalMap rebuilds an operator from its MarshalMap form.
func UnmarshalMap(m map[string][2]float64) (*Operator, error) {
	op := NewOperator()
	for key, c := range m {
		s, err := parseKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse term %q: %w", key, err)
		}
		op.Add(s, complex(c[0], c[1]))
	}
	return op, nil
}
