package engine

import "errors"

var (
	// ErrPreAuthorizationPaused is returned when a debit is attempted against
	// a paused pre-authorization.
	ErrPreAuthorizationPaused = errors.New("pre-authorization paused")

	// ErrPreAuthorizationNotActive is returned when the pre-authorization is
	// not yet activated, has expired, or is past its bounded cycle count.
	ErrPreAuthorizationNotActive = errors.New("pre-authorization not active")

	// ErrCannotDebitMoreThanAvailable is returned when the requested amount
	// exceeds the computed available amount.
	ErrCannotDebitMoreThanAvailable = errors.New("cannot debit more than available")

	// ErrLastDebitedCycleBeforeCurrentCycle is returned when the computed
	// current cycle is behind the last debited cycle. This means the external
	// time source went backward since the last successful debit; the budget
	// ledger must never be allowed to run backward, so the attempt is
	// rejected rather than clamped.
	ErrLastDebitedCycleBeforeCurrentCycle = errors.New("current cycle is before last debited cycle")

	// ErrInvalidTimestamp is returned when a timestamp cannot be represented
	// in the cycle computation (e.g. now precedes activation).
	ErrInvalidTimestamp = errors.New("invalid timestamp value")

	// ErrArithmeticOverflow is returned when an amount or cycle computation
	// would exceed the 64-bit width, or when the accounting counters are in a
	// state the engine's invariants rule out.
	ErrArithmeticOverflow = errors.New("amount arithmetic overflow")
)
