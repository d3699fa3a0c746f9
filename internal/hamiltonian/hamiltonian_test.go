package hamiltonian

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/wallcheb/internal/linalg"
	"github.com/aristath/wallcheb/internal/pauli"
)

func identityString() pauli.PauliString {
	return pauli.MustString(nil, nil)
}

func TestHubbardTwoSiteTerms(t *testing.T) {
	op, err := Hubbard(4.0, 2)
	require.NoError(t, err)

	assert.Equal(t, 4, op.NQubits())
	assert.True(t, op.IsHermitian())
	// 4 hopping strings, identity, 4 single-Z, 2 ZZ.
	assert.Equal(t, 11, op.NumTerms())

	hop := complex(-0.5, 0)
	assert.Equal(t, hop, op.Coeff(pauli.MustString([]int{0, 1, 2}, []pauli.Pauli{pauli.X, pauli.Z, pauli.X})))
	assert.Equal(t, hop, op.Coeff(pauli.MustString([]int{0, 1, 2}, []pauli.Pauli{pauli.Y, pauli.Z, pauli.Y})))
	assert.Equal(t, hop, op.Coeff(pauli.MustString([]int{1, 2, 3}, []pauli.Pauli{pauli.X, pauli.Z, pauli.X})))
	assert.Equal(t, hop, op.Coeff(pauli.MustString([]int{1, 2, 3}, []pauli.Pauli{pauli.Y, pauli.Z, pauli.Y})))

	// u/4 = 1 per site.
	assert.Equal(t, complex(2, 0), op.Coeff(identityString()))
	for q := 0; q < 4; q++ {
		assert.Equal(t, complex(-1, 0), op.Coeff(pauli.MustString([]int{q}, []pauli.Pauli{pauli.Z})))
	}
	assert.Equal(t, complex(1, 0), op.Coeff(pauli.MustString([]int{0, 1}, []pauli.Pauli{pauli.Z, pauli.Z})))
	assert.Equal(t, complex(1, 0), op.Coeff(pauli.MustString([]int{2, 3}, []pauli.Pauli{pauli.Z, pauli.Z})))
}

func TestHubbardEdgeCases(t *testing.T) {
	// Free fermions: interaction terms vanish entirely.
	free, err := Hubbard(0, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, free.NumTerms())
	assert.Equal(t, complex(0, 0), free.Coeff(identityString()))

	// A single site has no neighbours to hop to.
	single, err := Hubbard(4.0, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, single.NumTerms())
	assert.Equal(t, complex(1, 0), single.Coeff(identityString()))
	assert.Equal(t, complex(1, 0), single.Coeff(pauli.MustString([]int{0, 1}, []pauli.Pauli{pauli.Z, pauli.Z})))

	_, err = Hubbard(1.0, 0)
	assert.Error(t, err)
}

func TestHubbardSectorSpectrum(t *testing.T) {
	op, err := Hubbard(4.0, 2)
	require.NoError(t, err)
	hmat, err := op.Matrix(4)
	require.NoError(t, err)

	// Hopping matrix elements pin the Jordan-Wigner sign conventions:
	// (0,1,1,0) <-> (1,1,0,0) hops through an occupied orbital.
	assert.InDelta(t, 1.0, real(hmat.At(6, 12)), 1e-12)
	assert.InDelta(t, -1.0, real(hmat.At(9, 12)), 1e-12)
	assert.InDelta(t, 4.0, real(hmat.At(3, 3)), 1e-12)
	assert.InDelta(t, 0.0, real(hmat.At(6, 6)), 1e-12)

	sector, err := SectorProject(hmat, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 6, 9, 12}, sector.Indices)
	assert.Equal(t, 4, sector.Dim())
	assert.Equal(t, 2, sector.IndexOf(ReferenceState(2)))

	vals, _, err := linalg.EigHermitian(sector.Matrix)
	require.NoError(t, err)
	require.Len(t, vals, 4)
	// Exact half-filled spectrum for u=4, t=1: u/2 ± sqrt((u/2)² + 4t²)
	// plus the triplet at 0 and the antibonding doublon at u.
	want := []float64{2 - 2*math.Sqrt2, 0, 4, 2 + 2*math.Sqrt2}
	for k, w := range want {
		assert.InDelta(t, w, vals[k], 1e-8)
	}
}

func TestIsingMatrix(t *testing.T) {
	op, err := Ising(2, 0.5, 2.0)
	require.NoError(t, err)
	got, err := op.Matrix(2)
	require.NoError(t, err)

	want := linalg.FromRows([][]complex128{
		{2, 0.5, 0.5, 0},
		{0.5, -2, 0, 0.5},
		{0.5, 0, -2, 0.5},
		{0, 0.5, 0.5, 2},
	})
	assert.True(t, got.EqualWithin(want, 1e-12))
}

func TestIsingValidation(t *testing.T) {
	_, err := Ising(0, 1, 1)
	assert.Error(t, err)

	// Coupling-free chain keeps only the transverse field.
	op, err := Ising(1, 0.75, 3.0)
	require.NoError(t, err)
	assert.Equal(t, 1, op.NumTerms())
	assert.Equal(t, complex(0.75, 0), op.Coeff(pauli.MustString([]int{0}, []pauli.Pauli{pauli.X})))
}

func TestSectorHelpers(t *testing.T) {
	assert.Equal(t, 2, PopCount(0b0101))
	assert.Equal(t, 0, PopCount(0))

	assert.Equal(t, 2, EvenBitPopCount(0b0101))
	assert.Equal(t, 0, EvenBitPopCount(0b1010))
	assert.Equal(t, 1, EvenBitPopCount(0b1001))

	assert.True(t, HasBits(0b1001, 0b1000))
	assert.True(t, HasBits(0b1001, 0b1001))
	assert.False(t, HasBits(0b1001, 0b0110))

	s := &Sector{Indices: []int{3, 6, 9, 12}}
	assert.Equal(t, 0, s.IndexOf(3))
	assert.Equal(t, 3, s.IndexOf(12))
	assert.Equal(t, -1, s.IndexOf(5))
}

func TestSectorProjectValidation(t *testing.T) {
	_, err := SectorProject(linalg.Zeros(2, 3), 1, 0)
	assert.Error(t, err)

	// No 4-bit state holds five electrons.
	_, err = SectorProject(linalg.Zeros(16, 16), 5, 2)
	assert.Error(t, err)
}

func TestReferenceState(t *testing.T) {
	assert.Equal(t, 0b10, ReferenceState(1))
	assert.Equal(t, 9, ReferenceState(2))
	assert.Equal(t, 38, ReferenceState(3))

	// The reference always sits inside the default projection sector.
	for nsites := 1; nsites <= 4; nsites++ {
		ref := ReferenceState(nsites)
		assert.Equal(t, nsites, PopCount(ref))
		assert.Equal(t, nsites/2, EvenBitPopCount(ref))
	}
}

func TestWallShifts(t *testing.T) {
	shifts, err := WallShifts(0, 1, 3, 1)
	require.NoError(t, err)
	require.Len(t, shifts, 3)
	assert.InDelta(t, 0.18825509907063320, shifts[0], 1e-12)
	assert.InDelta(t, 0.61126046697815720, shifts[1], 1e-12)
	assert.InDelta(t, 0.95048443395120957, shifts[2], 1e-12)

	// Shifts climb the damped band without leaving it.
	shifts, err = WallShifts(-1.5, 3, 7, 0.8)
	require.NoError(t, err)
	require.Len(t, shifts, 7)
	band := 0.8 * 4.5
	for k, a := range shifts {
		assert.Greater(t, a, -1.5)
		assert.LessOrEqual(t, a, -1.5+band)
		if k > 0 {
			assert.Greater(t, a, shifts[k-1])
		}
	}

	empty, err := WallShifts(-1, 1, 0, 1)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = WallShifts(0, 1, -1, 1)
	assert.Error(t, err)
	_, err = WallShifts(0, 1, 3, 0)
	assert.Error(t, err)
	_, err = WallShifts(0, 1, 3, 1.2)
	assert.Error(t, err)
	_, err = WallShifts(1, 0, 3, 1)
	assert.Error(t, err)
}

func TestShiftedOperators(t *testing.T) {
	op, err := Ising(2, 0.5, 2.0)
	require.NoError(t, err)

	shifted := ShiftedOperators(op, []float64{0.25, -1.0})
	require.Len(t, shifted, 2)
	assert.Equal(t, complex(-0.25, 0), shifted[0].Coeff(identityString()))
	assert.Equal(t, complex(1.0, 0), shifted[1].Coeff(identityString()))

	zz := pauli.MustString([]int{0, 1}, []pauli.Pauli{pauli.Z, pauli.Z})
	assert.Equal(t, complex(2, 0), shifted[0].Coeff(zz))
	assert.Equal(t, complex(2, 0), shifted[1].Coeff(zz))

	// The source operator is left untouched.
	assert.Equal(t, complex(0, 0), op.Coeff(identityString()))

	assert.Empty(t, ShiftedOperators(op, nil))
}

func TestSpectrumAndGroundState(t *testing.T) {
	// Pure transverse field on one qubit: H = X with eigenvalues ±1.
	op, err := Ising(1, 1, 0)
	require.NoError(t, err)

	vals, vecs, err := Spectrum(op)
	require.NoError(t, err)
	require.Len(t, vals, 2)
	assert.InDelta(t, -1, vals[0], 1e-10)
	assert.InDelta(t, 1, vals[1], 1e-10)

	e0, psi0, err := GroundState(op)
	require.NoError(t, err)
	assert.InDelta(t, -1, e0, 1e-10)
	minus := []complex128{complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0)}
	overlap := linalg.Dot(minus, psi0)
	assert.InDelta(t, 1, real(overlap)*real(overlap)+imag(overlap)*imag(overlap), 1e-10)

	// Spectrum's eigenvector columns agree with GroundState's vector.
	col := vecs.Col(0)
	colOverlap := linalg.Dot(col, psi0)
	assert.InDelta(t, 1, real(colOverlap)*real(colOverlap)+imag(colOverlap)*imag(colOverlap), 1e-10)
}
