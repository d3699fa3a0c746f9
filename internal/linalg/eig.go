package linalg

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// hermTol is the tolerance used to reject non-Hermitian inputs.
const hermTol = 1e-10

// EigHermitian computes the eigendecomposition of a Hermitian complex
// matrix. It returns the eigenvalues in ascending order and a matrix whose
// columns are the corresponding orthonormal eigenvectors.
//
// gonum's eigensolvers are real-valued, so M = A + iB is embedded in the
// real symmetric matrix [[A, -B], [B, A]]: every eigenvalue of M appears
// twice in the embedding and each real eigenvector (x; y) maps back to the
// complex eigenvector x + iy. Degenerate eigenspaces are handled by a
// complex Gram-Schmidt sweep over the doubled basis.
func EigHermitian(m *Matrix) ([]float64, *Matrix, error) {
	n, c := m.Dims()
	if n != c {
		return nil, nil, fmt.Errorf("eig: matrix is %dx%d, want square", n, c)
	}
	if n == 0 {
		return nil, Zeros(0, 0), nil
	}
	scale := m.MaxAbs()
	if scale == 0 {
		scale = 1
	}
	if !m.IsHermitian(hermTol * scale * float64(n)) {
		return nil, nil, fmt.Errorf("eig: matrix is not Hermitian within tolerance")
	}

	emb := mat.NewSymDense(2*n, nil)
	for i := 0; i < 2*n; i++ {
		for j := i; j < 2*n; j++ {
			// Average the two block formulas to wash out numerical asymmetry.
			emb.SetSym(i, j, (embeddingEntry(m, n, i, j)+embeddingEntry(m, n, j, i))/2)
		}
	}

	var es mat.EigenSym
	if !es.Factorize(emb, true) {
		return nil, nil, fmt.Errorf("eig: symmetric eigendecomposition failed")
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	eigvals := make([]float64, 0, n)
	eigvecs := Zeros(n, n)
	kept := make([][]complex128, 0, n)
	keptVals := make([]float64, 0, n)

	groupTol := 1e-8 * (1 + math.Abs(vals[2*n-1]-vals[0]))
	for k := 0; k < 2*n && len(kept) < n; k++ {
		v := make([]complex128, n)
		for i := 0; i < n; i++ {
			v[i] = complex(vecs.At(i, k), vecs.At(n+i, k))
		}
		// Remove components along previously kept vectors of the same
		// eigenvalue; what remains is a new direction or numerical dust.
		for j := range kept {
			if math.Abs(keptVals[j]-vals[k]) > groupTol {
				continue
			}
			overlap := Dot(kept[j], v)
			AxpyInPlace(-overlap, kept[j], v)
		}
		if Norm(v) < 1e-6 {
			continue
		}
		Normalize(v)
		kept = append(kept, v)
		keptVals = append(keptVals, vals[k])
	}
	if len(kept) != n {
		return nil, nil, fmt.Errorf("eig: recovered %d of %d eigenvectors from embedding", len(kept), n)
	}
	for j, v := range kept {
		eigvals = append(eigvals, keptVals[j])
		eigvecs.SetCol(j, v)
	}
	return eigvals, eigvecs, nil
}

// embeddingEntry returns entry (i, j) of [[A, -B], [B, A]] for m = A + iB.
func embeddingEntry(m *Matrix, n, i, j int) float64 {
	switch {
	case i < n && j < n:
		return real(m.At(i, j))
	case i < n && j >= n:
		return -imag(m.At(i, j-n))
	case i >= n && j < n:
		return imag(m.At(i-n, j))
	default:
		return real(m.At(i-n, j-n))
	}
}

// SpectralBounds returns the smallest and largest eigenvalue of a Hermitian
// matrix.
func SpectralBounds(m *Matrix) (min, max float64, err error) {
	vals, _, err := EigHermitian(m)
	if err != nil {
		return 0, 0, err
	}
	return vals[0], vals[len(vals)-1], nil
}

// GroundState returns the lowest eigenvalue and its eigenvector.
func GroundState(m *Matrix) (float64, []complex128, error) {
	vals, vecs, err := EigHermitian(m)
	if err != nil {
		return 0, nil, err
	}
	return vals[0], vecs.Col(0), nil
}

// FuncHermitian applies a scalar function to a Hermitian matrix through its
// eigendecomposition: f(M) = V diag(f(λ)) V†.
func FuncHermitian(m *Matrix, f func(float64) float64) (*Matrix, error) {
	vals, vecs, err := EigHermitian(m)
	if err != nil {
		return nil, err
	}
	n := len(vals)
	out := Zeros(n, n)
	for k := 0; k < n; k++ {
		fv := complex(f(vals[k]), 0)
		col := vecs.Col(k)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				out.Set(i, j, out.At(i, j)+fv*col[i]*cmplx.Conj(col[j]))
			}
		}
	}
	return out, nil
}
