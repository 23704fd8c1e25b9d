// Package engine implements the debit validation and accounting rules for
// pre-authorizations. It is pure sequential logic over an in-memory snapshot
// of one record: no fund movement happens here, only the decision of whether
// a debit is admissible and the mutation of the accounting counters. Callers
// must serialize concurrent debits against the same record and commit the
// counter mutation and the ledger transfer as one atomic unit.
package engine

import (
	"github.com/pkg/errors"

	"github.com/cyphera/preauth-api/internal/types"
)

// Clock supplies the current unix timestamp. It is trusted but not assumed
// monotonic; every cycle computation re-validates against the recorded
// accounting state instead of trusting stored progress.
type Clock interface {
	Now() int64
}

// ValidateDebit checks whether debiting amount from the pre-authorization is
// admissible at nowUnix. Checks short-circuit in a fixed order: paused,
// activation, variant-specific admissibility, then amount versus available.
func ValidateDebit(pa *types.PreAuthorization, amount uint64, nowUnix int64) error {
	if pa.Paused {
		return ErrPreAuthorizationPaused
	}
	if nowUnix < pa.ActivationUnixTimestamp {
		return ErrPreAuthorizationNotActive
	}

	available, err := AvailableAmount(pa, nowUnix)
	if err != nil {
		return err
	}
	if amount > available {
		return ErrCannotDebitMoreThanAvailable
	}
	return nil
}

// AvailableAmount computes how much the debit authority could debit from the
// pre-authorization at nowUnix, assuming it is unpaused and activated. It
// returns ErrPreAuthorizationNotActive for an expired one-time record or a
// recurring record past its bounded cycle count.
func AvailableAmount(pa *types.PreAuthorization, nowUnix int64) (uint64, error) {
	switch v := pa.Variant.(type) {
	case types.OneTime:
		if nowUnix >= v.ExpiryUnixTimestamp {
			return 0, ErrPreAuthorizationNotActive
		}
		// amountDebited <= amountAuthorized is maintained by ApplyDebit, so
		// this subtraction only fails on a corrupted record.
		return checkedSub(v.AmountAuthorized, v.AmountDebited)

	case types.Recurring:
		currentCycle, err := CurrentCycle(nowUnix, pa.ActivationUnixTimestamp, v.RepeatFrequencySeconds)
		if err != nil {
			return 0, err
		}
		if v.NumCycles != nil && currentCycle > *v.NumCycles {
			return 0, ErrPreAuthorizationNotActive
		}
		if currentCycle < v.LastDebitedCycle {
			return 0, ErrLastDebitedCycleBeforeCurrentCycle
		}
		return AvailableRecurringAmount(
			currentCycle,
			v.LastDebitedCycle,
			v.ResetEveryCycle,
			v.RecurringAmountAuthorized,
			v.AmountDebitedLastCycle,
			v.AmountDebitedTotal,
		)

	default:
		return 0, errors.Errorf("unknown pre-authorization variant %T", pa.Variant)
	}
}

// AvailableRecurringAmount is the pure budget function for recurring
// pre-authorizations.
//
// Preconditions: currentCycle >= lastDebitedCycle >= 1 and
// amountDebitedLastCycle <= amountDebitedTotal; violations return
// ErrArithmeticOverflow since they can only arise from corrupted accounting
// state.
//
// Cumulative mode (resetEveryCycle == false) treats the budget as one
// recurringAmountAuthorized increment accrued per elapsed cycle minus
// everything ever debited, so unused entitlement carries forward. Reset mode
// grants exactly recurringAmountAuthorized per cycle; crossing a cycle
// boundary forfeits whatever was left.
func AvailableRecurringAmount(
	currentCycle uint64,
	lastDebitedCycle uint64,
	resetEveryCycle bool,
	recurringAmountAuthorized uint64,
	amountDebitedLastCycle uint64,
	amountDebitedTotal uint64,
) (uint64, error) {
	if currentCycle == 0 || lastDebitedCycle == 0 || currentCycle < lastDebitedCycle {
		return 0, ErrArithmeticOverflow
	}
	if amountDebitedLastCycle > amountDebitedTotal {
		return 0, ErrArithmeticOverflow
	}

	switch {
	case !resetEveryCycle:
		entitlement, err := checkedMul(recurringAmountAuthorized, currentCycle)
		if err != nil {
			return 0, err
		}
		return checkedSub(entitlement, amountDebitedTotal)
	case currentCycle != lastDebitedCycle:
		return recurringAmountAuthorized, nil
	default:
		return checkedSub(recurringAmountAuthorized, amountDebitedLastCycle)
	}
}

// ApplyDebit validates the debit and, if admissible, advances the
// pre-authorization's accounting counters. The caller owns committing the
// mutated record together with the corresponding ledger transfer; on error
// the record is untouched.
func ApplyDebit(pa *types.PreAuthorization, amount uint64, nowUnix int64) error {
	if err := ValidateDebit(pa, amount, nowUnix); err != nil {
		return err
	}

	switch v := pa.Variant.(type) {
	case types.OneTime:
		debited, err := checkedAdd(v.AmountDebited, amount)
		if err != nil {
			return err
		}
		v.AmountDebited = debited
		pa.Variant = v

	case types.Recurring:
		currentCycle, err := CurrentCycle(nowUnix, pa.ActivationUnixTimestamp, v.RepeatFrequencySeconds)
		if err != nil {
			return err
		}

		if currentCycle == v.LastDebitedCycle {
			lastCycleAmount, err := checkedAdd(v.AmountDebitedLastCycle, amount)
			if err != nil {
				return err
			}
			v.AmountDebitedLastCycle = lastCycleAmount
		} else {
			// The counter restarts for the new cycle.
			v.AmountDebitedLastCycle = amount
		}

		total, err := checkedAdd(v.AmountDebitedTotal, amount)
		if err != nil {
			return err
		}
		v.AmountDebitedTotal = total
		v.LastDebitedCycle = currentCycle
		pa.Variant = v

	default:
		return errors.Errorf("unknown pre-authorization variant %T", pa.Variant)
	}

	return nil
}
