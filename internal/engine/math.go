package engine

import "math"

// The accounting invariants (amountDebited <= amountAuthorized,
// amountDebitedLastCycle <= amountDebitedTotal) are what make the
// subtractions below provably non-negative; these helpers keep that proof
// obligation explicit instead of relying on wraparound.

func checkedAdd(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrArithmeticOverflow
	}
	return a + b, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrArithmeticOverflow
	}
	return a - b, nil
}

func checkedMul(a, b uint64) (uint64, error) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, ErrArithmeticOverflow
	}
	return a * b, nil
}
