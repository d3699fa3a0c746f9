package linalg

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"
)

// svdNullTol is the singular value below which a column of U cannot be
// recovered as Mv/σ and is completed orthonormally instead.
const svdNullTol = 1e-10

// SVDComplex computes M = U diag(σ) V† for a square complex matrix.
// Singular values are returned in descending order; U and V have the
// corresponding singular vectors as columns.
//
// It reduces to the Hermitian eigenproblem of M†M: eigenvectors give V,
// σ = sqrt(λ), and U columns are Mv/σ with Gram-Schmidt completion for the
// (near-)null space.
func SVDComplex(m *Matrix) (u *Matrix, sigma []float64, v *Matrix, err error) {
	n, c := m.Dims()
	if n != c {
		return nil, nil, nil, fmt.Errorf("svd: matrix is %dx%d, want square", n, c)
	}
	gram := m.Dagger().Mul(m)
	vals, vecs, err := EigHermitian(gram)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("svd: gram eigendecomposition: %w", err)
	}

	// Ascending eigenvalues -> descending singular values.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return vals[order[a]] > vals[order[b]] })

	sigma = make([]float64, n)
	v = Zeros(n, n)
	u = Zeros(n, n)
	uCols := make([][]complex128, 0, n)
	for pos, idx := range order {
		lam := vals[idx]
		if lam < 0 {
			lam = 0
		}
		s := math.Sqrt(lam)
		sigma[pos] = s
		vc := vecs.Col(idx)
		v.SetCol(pos, vc)
		if s > svdNullTol {
			uc := m.MulVec(vc)
			for i := range uc {
				uc[i] /= complex(s, 0)
			}
			u.SetCol(pos, uc)
			uCols = append(uCols, uc)
		} else {
			u.SetCol(pos, make([]complex128, n))
		}
	}

	// Complete null-space columns of U to an orthonormal basis.
	for pos := range sigma {
		if sigma[pos] > svdNullTol {
			continue
		}
		uc, cerr := completeOrthonormal(uCols, n)
		if cerr != nil {
			return nil, nil, nil, fmt.Errorf("svd: %w", cerr)
		}
		u.SetCol(pos, uc)
		uCols = append(uCols, uc)
	}
	return u, sigma, v, nil
}

// completeOrthonormal finds a unit vector orthogonal to all given columns by
// sweeping the standard basis.
func completeOrthonormal(cols [][]complex128, n int) ([]complex128, error) {
	for k := 0; k < n; k++ {
		cand := make([]complex128, n)
		cand[k] = 1
		for _, c := range cols {
			AxpyInPlace(-Dot(c, cand), c, cand)
		}
		if Norm(cand) > 1e-6 {
			Normalize(cand)
			return cand, nil
		}
	}
	return nil, fmt.Errorf("orthonormal completion exhausted the standard basis")
}

// HouseholderColumn returns an n x n unitary whose first column equals the
// given unit vector. Used to embed state preparations as unitaries.
func HouseholderColumn(target []complex128) (*Matrix, error) {
	n := len(target)
	if n == 0 {
		return nil, fmt.Errorf("householder: empty target")
	}
	norm := Norm(target)
	if math.Abs(norm-1) > 1e-8 {
		return nil, fmt.Errorf("householder: target norm %.3e, want 1", norm)
	}
	// w = e0 - conj(phase) * target, reflection U = phase*(I - 2ww†/|w|²)
	// sends e0 to target. The phase keeps the reflection well-conditioned
	// when target ≈ -e0.
	phase := complex(1, 0)
	if target[0] != 0 {
		phase = target[0] / complex(cmplx.Abs(target[0]), 0)
	}
	w := make([]complex128, n)
	for i := range w {
		w[i] = -target[i] / phase
	}
	w[0] += 1
	wn := Norm(w)
	u := Identity(n)
	if wn > 1e-12 {
		inv := complex(2/(wn*wn), 0)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				u.Set(i, j, u.At(i, j)-inv*w[i]*cmplx.Conj(w[j]))
			}
		}
	}
	return u.ScaleC(phase), nil
}
