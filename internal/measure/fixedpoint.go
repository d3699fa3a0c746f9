package measure

// Distribution is a probability distribution over measurement outcomes of a
// fixed-width bit register, keyed by basis index (big-endian).
type Distribution map[int]float64

// BitFixedPoint converts a bit slice to the fixed point decimal it encodes:
// bit strings increment from 0 toward 1 in steps of 1/2^len(bits).
func BitFixedPoint(bits []int) float64 {
	v := 0
	for _, b := range bits {
		v = v<<1 | (b & 1)
	}
	return float64(v) / float64(int(1)<<len(bits))
}

// ToFixedPoint converts an outcome distribution on width bits into a
// distribution over fixed point decimals in [0, 1).
func (d Distribution) ToFixedPoint(width int) map[float64]float64 {
	out := make(map[float64]float64, len(d))
	denom := float64(int(1) << width)
	for idx, p := range d {
		out[float64(idx)/denom] += p
	}
	return out
}

// FromStatevector computes the exact outcome distribution of a statevector
// on n qubits, dropping outcomes below a small floor to keep maps compact.
func FromStatevector(sv []complex128) Distribution {
	d := make(Distribution)
	for idx, amp := range sv {
		p := real(amp)*real(amp) + imag(amp)*imag(amp)
		if p > 1e-14 {
			d[idx] = p
		}
	}
	return d
}
