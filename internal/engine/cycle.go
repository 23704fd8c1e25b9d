package engine

import "math"

// CurrentCycle maps a current timestamp onto a 1-based cycle index for a
// recurring pre-authorization. Cycle 1 spans
// [activation, activation+repeatFrequencySeconds).
func CurrentCycle(nowUnix, activationUnixTimestamp int64, repeatFrequencySeconds uint64) (uint64, error) {
	if repeatFrequencySeconds == 0 {
		return 0, ErrInvalidTimestamp
	}
	if nowUnix < activationUnixTimestamp {
		// Elapsed time would be negative; callers gate on activation before
		// reaching here, so this only fires on a clock anomaly.
		return 0, ErrInvalidTimestamp
	}

	// Two's-complement subtraction yields the exact non-negative difference
	// for any pair of int64s with nowUnix >= activationUnixTimestamp, even
	// where the signed subtraction would overflow.
	secondsSinceActivation := uint64(nowUnix) - uint64(activationUnixTimestamp)
	elapsedCycles := secondsSinceActivation / repeatFrequencySeconds
	if elapsedCycles == math.MaxUint64 {
		return 0, ErrArithmeticOverflow
	}
	return 1 + elapsedCycles, nil
}
