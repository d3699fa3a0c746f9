package encode

import "github.com/aristath/wallcheb/internal/pauli"

// DiagonalOperator returns the Pauli operator whose matrix is diagonal with
// entries uniformly discretising [-1, 1] into 2^n points: basis index k holds
// (2k - (2^n - 1)) / (2^n - 1). Its L1 norm is exactly 1, so the block of its
// LCU encoding is the operator itself. n must be at least 1.
func DiagonalOperator(n int) *pauli.Operator {
	op := pauli.NewOperator()
	denom := float64(int64(1)<<n - 1)
	for j := n - 1; j >= 0; j-- {
		coeff := -float64(int64(1)<<j) / denom
		op.Add(pauli.MustString([]int{n - 1 - j}, []pauli.Pauli{pauli.Z}), complex(coeff, 0))
	}
	return op
}
