package measure

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/wallcheb/internal/linalg"
)

func TestStatevectorPostselectBellState(t *testing.T) {
	s := complex(1/math.Sqrt2, 0)
	bell := []complex128{s, 0, 0, s}

	// Selecting qubit 0 (the most significant bit) to 0 leaves |0> on the
	// remaining qubit.
	got, err := StatevectorPostselect(2, bell, map[int]int{0: 0}, true)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 1, real(got[0]), 1e-12)
	assert.InDelta(t, 0, real(got[1]), 1e-12)

	raw, err := StatevectorPostselect(2, bell, map[int]int{0: 0}, false)
	require.NoError(t, err)
	assert.InDelta(t, 1/math.Sqrt2, real(raw[0]), 1e-12)
}

func TestStatevectorPostselectAllQubits(t *testing.T) {
	s := complex(1/math.Sqrt2, 0)
	bell := []complex128{s, 0, 0, s}

	got, err := StatevectorPostselect(2, bell, map[int]int{0: 1, 1: 1}, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 1/math.Sqrt2, real(got[0]), 1e-12)
}

func TestStatevectorPostselectAnnihilated(t *testing.T) {
	state := []complex128{0, 0, 1, 0} // |10>

	_, err := StatevectorPostselect(2, state, map[int]int{0: 0}, true)
	require.ErrorIs(t, err, ErrAnnihilated)
}

func TestStatevectorPostselectValidation(t *testing.T) {
	state := []complex128{1, 0}

	_, err := StatevectorPostselect(1, state, map[int]int{3: 0}, false)
	require.Error(t, err)

	_, err = StatevectorPostselect(1, state, map[int]int{0: 2}, false)
	require.Error(t, err)

	_, err = StatevectorPostselect(2, state, map[int]int{0: 0}, false)
	require.Error(t, err)
}

func TestUnitaryPostselectDefaultsPreparationToZeros(t *testing.T) {
	h := linalg.FromRows([][]complex128{
		{complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0)},
		{complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0)},
	})

	got, err := UnitaryPostselect(1, h, map[int]int{0: 0}, nil)
	require.NoError(t, err)
	rows, cols := got.Dims()
	require.Equal(t, 1, rows)
	require.Equal(t, 1, cols)
	assert.InDelta(t, 1/math.Sqrt2, real(got.At(0, 0)), 1e-12)

	flipped, err := UnitaryPostselect(1, h, map[int]int{0: 1}, map[int]int{0: 1})
	require.NoError(t, err)
	assert.InDelta(t, -1/math.Sqrt2, real(flipped.At(0, 0)), 1e-12)
}

func TestUnitaryPostselectRequiresMatchingQubitSets(t *testing.T) {
	u := linalg.Identity(4)

	_, err := UnitaryPostselect(2, u, map[int]int{0: 0}, map[int]int{1: 0})
	require.Error(t, err)

	_, err = UnitaryPostselect(2, u, map[int]int{0: 0}, map[int]int{0: 0, 1: 0})
	require.Error(t, err)
}

func TestExpectation(t *testing.T) {
	z := linalg.FromRows([][]complex128{{1, 0}, {0, -1}})

	assert.InDelta(t, -1, ExpectationReal(z, []complex128{0, 1}), 1e-12)

	s := complex(1/math.Sqrt2, 0)
	assert.InDelta(t, 0, ExpectationReal(z, []complex128{s, s}), 1e-12)
}

func TestBitFixedPoint(t *testing.T) {
	assert.InDelta(t, 0.625, BitFixedPoint([]int{1, 0, 1}), 1e-15)
	assert.InDelta(t, 0, BitFixedPoint([]int{0, 0}), 1e-15)
	assert.InDelta(t, 0.5, BitFixedPoint([]int{1}), 1e-15)
}

func TestDistributionFromStatevector(t *testing.T) {
	s := complex(1/math.Sqrt2, 0)
	d := FromStatevector([]complex128{s, 0, 0, s})

	require.Len(t, d, 2)
	assert.InDelta(t, 0.5, d[0], 1e-12)
	assert.InDelta(t, 0.5, d[3], 1e-12)

	fp := d.ToFixedPoint(2)
	assert.InDelta(t, 0.5, fp[0.0], 1e-12)
	assert.InDelta(t, 0.5, fp[0.75], 1e-12)
}
