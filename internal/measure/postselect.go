// Package measure provides postselection and expectation utilities for
// statevectors and unitaries produced by the circuit simulator. Qubits are
// addressed by global position with big-endian index convention: position 0
// is the most significant bit of a computational basis index.
package measure

import (
	"errors"
	"fmt"

	"github.com/aristath/wallcheb/internal/linalg"
)

// ErrAnnihilated is returned when a postselected state has vanishing norm.
var ErrAnnihilated = errors.New("postselected state is vanishingly small")

// bitOf returns the value of the qubit at position pos in basis index idx
// for an n-qubit system.
func bitOf(idx, pos, n int) int {
	return (idx >> (n - 1 - pos)) & 1
}

// matches reports whether basis index idx agrees with every selected qubit.
func matches(idx, n int, selects map[int]int) bool {
	for pos, want := range selects {
		if bitOf(idx, pos, n) != want {
			return false
		}
	}
	return true
}

// reducedIndex drops the selected qubit positions from basis index idx,
// compacting the remaining bits while preserving their order.
func reducedIndex(idx, n int, selects map[int]int) int {
	out := 0
	for pos := 0; pos < n; pos++ {
		if _, sel := selects[pos]; sel {
			continue
		}
		out = out<<1 | bitOf(idx, pos, n)
	}
	return out
}

// validateSelects rejects positions outside [0, n) and values outside {0,1}.
func validateSelects(n int, selects map[int]int) error {
	for pos, v := range selects {
		if pos < 0 || pos >= n {
			return fmt.Errorf("postselect position %d out of range for %d qubits", pos, n)
		}
		if v != 0 && v != 1 {
			return fmt.Errorf("postselect value for position %d must be 0 or 1, got %d", pos, v)
		}
	}
	return nil
}

// StatevectorPostselect projects a 2^n statevector onto the subspace where
// each selected qubit position carries the required bit, returning the
// 2^(n-k) reduced vector. With renorm set, the result is normalized and
// ErrAnnihilated is returned when the projected norm is ~0.
func StatevectorPostselect(n int, sv []complex128, selects map[int]int, renorm bool) ([]complex128, error) {
	if len(sv) != 1<<n {
		return nil, fmt.Errorf("statevector length %d does not match %d qubits", len(sv), n)
	}
	if err := validateSelects(n, selects); err != nil {
		return nil, err
	}
	out := make([]complex128, 1<<(n-len(selects)))
	for idx, amp := range sv {
		if matches(idx, n, selects) {
			out[reducedIndex(idx, n, selects)] = amp
		}
	}
	if renorm {
		if linalg.Norm(out) < 1e-14 {
			return nil, ErrAnnihilated
		}
		linalg.Normalize(out)
	}
	return out, nil
}

// UnitaryPostselect slices a 2^n x 2^n unitary down to the block addressed
// by post-selected rows and pre-selected columns. A nil pre map selects the
// all-zeros preparation on the same qubits, matching a register that starts
// in |0...0>.
func UnitaryPostselect(n int, u *linalg.Matrix, post map[int]int, pre map[int]int) (*linalg.Matrix, error) {
	r, c := u.Dims()
	if r != 1<<n || c != 1<<n {
		return nil, fmt.Errorf("unitary is %dx%d, want %d qubits", r, c, n)
	}
	if err := validateSelects(n, post); err != nil {
		return nil, err
	}
	if pre == nil {
		pre = make(map[int]int, len(post))
		for pos := range post {
			pre[pos] = 0
		}
	}
	if len(pre) != len(post) {
		return nil, fmt.Errorf("pre and post selections must cover the same qubits: %d vs %d", len(pre), len(post))
	}
	for pos := range post {
		if _, ok := pre[pos]; !ok {
			return nil, fmt.Errorf("pre selection missing qubit position %d", pos)
		}
	}
	if err := validateSelects(n, pre); err != nil {
		return nil, err
	}

	dim := 1 << (n - len(post))
	out := linalg.Zeros(dim, dim)
	for i := 0; i < 1<<n; i++ {
		if !matches(i, n, post) {
			continue
		}
		ri := reducedIndex(i, n, post)
		for j := 0; j < 1<<n; j++ {
			if !matches(j, n, pre) {
				continue
			}
			out.Set(ri, reducedIndex(j, n, pre), u.At(i, j))
		}
	}
	return out, nil
}

// Expectation returns <psi|M|psi>.
func Expectation(m *linalg.Matrix, sv []complex128) complex128 {
	return linalg.Dot(sv, m.MulVec(sv))
}

// ExpectationReal returns the real part of <psi|M|psi>, the physically
// meaningful value for Hermitian observables.
func ExpectationReal(m *linalg.Matrix, sv []complex128) float64 {
	return real(Expectation(m, sv))
}
