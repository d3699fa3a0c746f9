// Package linalg provides dense complex matrices and the Hermitian
// eigendecomposition / singular value decomposition the circuit simulator
// and spectral analysis are built on. Real symmetric kernels are delegated
// to gonum; complex problems are reduced to real ones by embedding.
package linalg

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Matrix is a dense row-major complex matrix.
type Matrix struct {
	rows, cols int
	data       []complex128
}

// Zeros returns an r x c zero matrix.
func Zeros(r, c int) *Matrix {
	return &Matrix{rows: r, cols: c, data: make([]complex128, r*c)}
}

// Identity returns the n x n identity.
func Identity(n int) *Matrix {
	m := Zeros(n, n)
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}
	return m
}

// FromRows builds a matrix from row slices. Rows must be equal length.
func FromRows(rows [][]complex128) *Matrix {
	r := len(rows)
	if r == 0 {
		return Zeros(0, 0)
	}
	c := len(rows[0])
	m := Zeros(r, c)
	for i, row := range rows {
		if len(row) != c {
			panic(fmt.Sprintf("linalg: ragged rows: row %d has %d entries, want %d", i, len(row), c))
		}
		copy(m.data[i*c:(i+1)*c], row)
	}
	return m
}

// Dims returns (rows, cols).
func (m *Matrix) Dims() (int, int) { return m.rows, m.cols }

// Rows returns the row count.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the column count.
func (m *Matrix) Cols() int { return m.cols }

// At returns the (i, j) entry.
func (m *Matrix) At(i, j int) complex128 { return m.data[i*m.cols+j] }

// Set assigns the (i, j) entry.
func (m *Matrix) Set(i, j int, v complex128) { m.data[i*m.cols+j] = v }

// Copy returns a deep copy.
func (m *Matrix) Copy() *Matrix {
	out := Zeros(m.rows, m.cols)
	copy(out.data, m.data)
	return out
}

// Plus returns m + other.
func (m *Matrix) Plus(other *Matrix) *Matrix {
	m.mustSameShape(other)
	out := Zeros(m.rows, m.cols)
	for i := range m.data {
		out.data[i] = m.data[i] + other.data[i]
	}
	return out
}

// Minus returns m - other.
func (m *Matrix) Minus(other *Matrix) *Matrix {
	m.mustSameShape(other)
	out := Zeros(m.rows, m.cols)
	for i := range m.data {
		out.data[i] = m.data[i] - other.data[i]
	}
	return out
}

// ScaleC returns c * m.
func (m *Matrix) ScaleC(c complex128) *Matrix {
	out := Zeros(m.rows, m.cols)
	for i := range m.data {
		out.data[i] = c * m.data[i]
	}
	return out
}

// Mul returns the matrix product m * other.
func (m *Matrix) Mul(other *Matrix) *Matrix {
	if m.cols != other.rows {
		panic(fmt.Sprintf("linalg: dimension mismatch in Mul: %dx%d * %dx%d", m.rows, m.cols, other.rows, other.cols))
	}
	out := Zeros(m.rows, other.cols)
	for i := 0; i < m.rows; i++ {
		for k := 0; k < m.cols; k++ {
			a := m.data[i*m.cols+k]
			if a == 0 {
				continue
			}
			rowK := other.data[k*other.cols : (k+1)*other.cols]
			outRow := out.data[i*out.cols : (i+1)*out.cols]
			for j, b := range rowK {
				outRow[j] += a * b
			}
		}
	}
	return out
}

// MulVec returns m * v.
func (m *Matrix) MulVec(v []complex128) []complex128 {
	if m.cols != len(v) {
		panic(fmt.Sprintf("linalg: dimension mismatch in MulVec: %dx%d * %d", m.rows, m.cols, len(v)))
	}
	out := make([]complex128, m.rows)
	for i := 0; i < m.rows; i++ {
		var sum complex128
		row := m.data[i*m.cols : (i+1)*m.cols]
		for j, a := range row {
			sum += a * v[j]
		}
		out[i] = sum
	}
	return out
}

// Dagger returns the conjugate transpose.
func (m *Matrix) Dagger() *Matrix {
	out := Zeros(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.data[j*out.cols+i] = cmplx.Conj(m.data[i*m.cols+j])
		}
	}
	return out
}

// Kron returns the Kronecker product m ⊗ other.
func (m *Matrix) Kron(other *Matrix) *Matrix {
	out := Zeros(m.rows*other.rows, m.cols*other.cols)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			a := m.data[i*m.cols+j]
			if a == 0 {
				continue
			}
			for k := 0; k < other.rows; k++ {
				for l := 0; l < other.cols; l++ {
					out.data[(i*other.rows+k)*out.cols+(j*other.cols+l)] = a * other.data[k*other.cols+l]
				}
			}
		}
	}
	return out
}

// KronList folds Kron over the factors left to right.
func KronList(factors []*Matrix) *Matrix {
	if len(factors) == 0 {
		return Identity(1)
	}
	out := factors[0]
	for _, f := range factors[1:] {
		out = out.Kron(f)
	}
	return out
}

// Trace returns the trace of a square matrix.
func (m *Matrix) Trace() complex128 {
	if m.rows != m.cols {
		panic("linalg: trace of non-square matrix")
	}
	var tr complex128
	for i := 0; i < m.rows; i++ {
		tr += m.data[i*m.cols+i]
	}
	return tr
}

// EqualWithin reports whether every entry differs by at most tol in modulus.
func (m *Matrix) EqualWithin(other *Matrix, tol float64) bool {
	if m.rows != other.rows || m.cols != other.cols {
		return false
	}
	for i := range m.data {
		if cmplx.Abs(m.data[i]-other.data[i]) > tol {
			return false
		}
	}
	return true
}

// MaxAbs returns the largest entry modulus.
func (m *Matrix) MaxAbs() float64 {
	var max float64
	for _, v := range m.data {
		if a := cmplx.Abs(v); a > max {
			max = a
		}
	}
	return max
}

// IsHermitian reports whether m equals its conjugate transpose within tol.
func (m *Matrix) IsHermitian(tol float64) bool {
	if m.rows != m.cols {
		return false
	}
	for i := 0; i < m.rows; i++ {
		for j := i; j < m.cols; j++ {
			if cmplx.Abs(m.At(i, j)-cmplx.Conj(m.At(j, i))) > tol {
				return false
			}
		}
	}
	return true
}

// IsUnitary reports whether m†m is the identity within tol.
func (m *Matrix) IsUnitary(tol float64) bool {
	if m.rows != m.cols {
		return false
	}
	return m.Dagger().Mul(m).EqualWithin(Identity(m.rows), tol)
}

func (m *Matrix) mustSameShape(other *Matrix) {
	if m.rows != other.rows || m.cols != other.cols {
		panic(fmt.Sprintf("linalg: shape mismatch: %dx%d vs %dx%d", m.rows, m.cols, other.rows, other.cols))
	}
}

// Col returns a copy of column j.
func (m *Matrix) Col(j int) []complex128 {
	out := make([]complex128, m.rows)
	for i := 0; i < m.rows; i++ {
		out[i] = m.data[i*m.cols+j]
	}
	return out
}

// SetCol assigns column j from v.
func (m *Matrix) SetCol(j int, v []complex128) {
	if len(v) != m.rows {
		panic("linalg: SetCol length mismatch")
	}
	for i := 0; i < m.rows; i++ {
		m.data[i*m.cols+j] = v[i]
	}
}

// Vector helpers used across the simulator.

// Dot returns the Hermitian inner product <a, b> = Σ conj(a_i) b_i.
func Dot(a, b []complex128) complex128 {
	if len(a) != len(b) {
		panic("linalg: Dot length mismatch")
	}
	var sum complex128
	for i := range a {
		sum += cmplx.Conj(a[i]) * b[i]
	}
	return sum
}

// Norm returns the Euclidean norm of v.
func Norm(v []complex128) float64 {
	var sum float64
	for _, x := range v {
		sum += real(x)*real(x) + imag(x)*imag(x)
	}
	return math.Sqrt(sum)
}

// Normalize scales v to unit norm in place and returns the original norm.
func Normalize(v []complex128) float64 {
	n := Norm(v)
	if n == 0 {
		return 0
	}
	inv := complex(1/n, 0)
	for i := range v {
		v[i] *= inv
	}
	return n
}

// AxpyInPlace computes y += a*x.
func AxpyInPlace(a complex128, x, y []complex128) {
	for i := range x {
		y[i] += a * x[i]
	}
}
