package engine_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphera/preauth-api/internal/engine"
	"github.com/cyphera/preauth-api/internal/types"
)

func uint64Ptr(v uint64) *uint64 { return &v }

func TestAvailableRecurringAmount_Cumulative(t *testing.T) {
	tests := []struct {
		name              string
		currentCycle      uint64
		lastDebitedCycle  uint64
		authorized        uint64
		debitedLastCycle  uint64
		debitedTotal      uint64
		expectedAvailable uint64
	}{
		{"zero authorized", 1, 1, 0, 0, 0, 0},
		{"fresh first cycle", 1, 1, 100, 0, 0, 100},
		{"first cycle exhausted", 1, 1, 100, 100, 100, 0},
		{"entitlement accrues untouched", 5, 1, 100, 0, 0, 500},
		{"accrued minus early spend", 5, 1, 100, 100, 100, 400},
		{"spend spread over cycles", 5, 4, 100, 100, 100, 400},
		{"mostly spent", 5, 4, 100, 100, 400, 100},
		{"last cycle heavy", 5, 4, 100, 400, 400, 100},
		{"same cycle light spend", 5, 5, 100, 100, 100, 400},
		{"same cycle most spent", 5, 5, 100, 100, 400, 100},
		{"same cycle heavy spend", 5, 5, 100, 400, 400, 100},
		{"fully drawn down", 5, 5, 100, 0, 500, 0},
		{"fully drawn down mixed", 5, 5, 100, 400, 500, 0},
		{"fully drawn down last cycle", 5, 5, 100, 500, 500, 0},
		{"carry-forward remains", 5, 5, 100, 0, 100, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			available, err := engine.AvailableRecurringAmount(
				tt.currentCycle, tt.lastDebitedCycle, false,
				tt.authorized, tt.debitedLastCycle, tt.debitedTotal,
			)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedAvailable, available)
		})
	}
}

func TestAvailableRecurringAmount_ResetEveryCycle(t *testing.T) {
	tests := []struct {
		name              string
		currentCycle      uint64
		lastDebitedCycle  uint64
		authorized        uint64
		debitedLastCycle  uint64
		debitedTotal      uint64
		expectedAvailable uint64
	}{
		{"zero authorized", 1, 1, 0, 0, 0, 0},
		{"fresh first cycle", 1, 1, 100, 0, 0, 100},
		{"first cycle exhausted", 1, 1, 100, 100, 100, 0},
		{"new cycle resets", 5, 1, 100, 0, 0, 100},
		{"new cycle resets after spend", 5, 1, 100, 100, 100, 100},
		{"no carry-forward", 5, 4, 100, 100, 100, 100},
		{"no carry-forward heavy total", 5, 4, 100, 100, 400, 100},
		{"prior cycle exhausted", 5, 4, 100, 400, 400, 100},
		{"same cycle partially spent", 5, 5, 100, 100, 100, 0},
		{"same cycle spent heavy total", 5, 5, 100, 100, 400, 0},
		{"same cycle untouched", 5, 5, 100, 0, 500, 100},
		{"same cycle untouched light", 5, 5, 100, 0, 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			available, err := engine.AvailableRecurringAmount(
				tt.currentCycle, tt.lastDebitedCycle, true,
				tt.authorized, tt.debitedLastCycle, tt.debitedTotal,
			)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedAvailable, available)
		})
	}
}

func TestAvailableRecurringAmount_InvalidState(t *testing.T) {
	tests := []struct {
		name             string
		currentCycle     uint64
		lastDebitedCycle uint64
		resetEveryCycle  bool
		authorized       uint64
		debitedLastCycle uint64
		debitedTotal     uint64
	}{
		{"zero current cycle", 0, 1, false, 0, 0, 0},
		{"zero last debited cycle", 1, 0, false, 0, 0, 0},
		{"current behind last", 1, 2, false, 0, 0, 0},
		{"last cycle exceeds total", 1, 1, false, 10, 10, 5},
		{"cumulative over-debited", 1, 1, false, 100, 100, 200},
		{"cumulative total past entitlement", 5, 1, false, 100, 100, 600},
		{"reset last cycle over-debited", 5, 5, true, 100, 400, 400},
		{"reset last cycle over-debited heavy", 5, 5, true, 100, 500, 500},
		{"cumulative entitlement overflows", math.MaxUint64, 1, false, 2, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.AvailableRecurringAmount(
				tt.currentCycle, tt.lastDebitedCycle, tt.resetEveryCycle,
				tt.authorized, tt.debitedLastCycle, tt.debitedTotal,
			)
			assert.ErrorIs(t, err, engine.ErrArithmeticOverflow)
		})
	}
}

func oneTimePreAuth(authorized, debited uint64, activation, expiry int64) *types.PreAuthorization {
	return &types.PreAuthorization{
		ActivationUnixTimestamp: activation,
		Variant: types.OneTime{
			AmountAuthorized:    authorized,
			ExpiryUnixTimestamp: expiry,
			AmountDebited:       debited,
		},
	}
}

func recurringPreAuth(frequency, authorized uint64, activation int64, reset bool, numCycles *uint64) *types.PreAuthorization {
	return &types.PreAuthorization{
		ActivationUnixTimestamp: activation,
		Variant: types.Recurring{
			RepeatFrequencySeconds:    frequency,
			RecurringAmountAuthorized: authorized,
			NumCycles:                 numCycles,
			ResetEveryCycle:           reset,
			LastDebitedCycle:          1,
		},
	}
}

func TestValidateDebit_OneTime(t *testing.T) {
	tests := []struct {
		name        string
		preAuth     *types.PreAuthorization
		amount      uint64
		nowUnix     int64
		expectedErr error
	}{
		{"exact available succeeds", oneTimePreAuth(100, 0, 0, 1000), 100, 10, nil},
		{"partial succeeds", oneTimePreAuth(100, 40, 0, 1000), 60, 10, nil},
		{"one over available", oneTimePreAuth(100, 40, 0, 1000), 61, 10, engine.ErrCannotDebitMoreThanAvailable},
		{"expired", oneTimePreAuth(100, 0, 0, 1000), 1, 1000, engine.ErrPreAuthorizationNotActive},
		{"before activation", oneTimePreAuth(100, 0, 500, 1000), 1, 499, engine.ErrPreAuthorizationNotActive},
		{"at activation succeeds", oneTimePreAuth(100, 0, 500, 1000), 1, 500, nil},
		{"last second before expiry", oneTimePreAuth(100, 0, 0, 1000), 1, 999, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.ValidateDebit(tt.preAuth, tt.amount, tt.nowUnix)
			if tt.expectedErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expectedErr)
			}
		})
	}
}

func TestValidateDebit_Paused(t *testing.T) {
	preAuth := oneTimePreAuth(100, 0, 0, 1000)
	preAuth.Paused = true

	// Paused wins even when budget is available and the record is live.
	err := engine.ValidateDebit(preAuth, 1, 10)
	assert.ErrorIs(t, err, engine.ErrPreAuthorizationPaused)
}

func TestValidateDebit_RecurringBoundedCycles(t *testing.T) {
	// numCycles = 3, period = 1s from t=0: any attempt at cycle 4 or later is
	// rejected regardless of amount.
	preAuth := recurringPreAuth(1, 100, 0, true, uint64Ptr(3))

	err := engine.ValidateDebit(preAuth, 1, 3)
	assert.ErrorIs(t, err, engine.ErrPreAuthorizationNotActive)

	assert.NoError(t, engine.ValidateDebit(preAuth, 1, 2))
}

func TestValidateDebit_ClockRegression(t *testing.T) {
	preAuth := recurringPreAuth(10, 100, 0, true, nil)
	require.NoError(t, engine.ApplyDebit(preAuth, 50, 35)) // cycle 4

	// The clock going backward must surface as an explicit error, never a
	// silently clamped cycle.
	err := engine.ValidateDebit(preAuth, 1, 25) // cycle 3
	assert.ErrorIs(t, err, engine.ErrLastDebitedCycleBeforeCurrentCycle)
}

func TestApplyDebit_OneTimeAccounting(t *testing.T) {
	preAuth := oneTimePreAuth(100, 0, 0, 1000)

	require.NoError(t, engine.ApplyDebit(preAuth, 40, 10))
	variant := preAuth.Variant.(types.OneTime)
	assert.Equal(t, uint64(40), variant.AmountDebited)

	err := engine.ApplyDebit(preAuth, 61, 11)
	assert.ErrorIs(t, err, engine.ErrCannotDebitMoreThanAvailable)

	// Failed attempt leaves the counters untouched.
	variant = preAuth.Variant.(types.OneTime)
	assert.Equal(t, uint64(40), variant.AmountDebited)

	require.NoError(t, engine.ApplyDebit(preAuth, 60, 12))
	variant = preAuth.Variant.(types.OneTime)
	assert.Equal(t, uint64(100), variant.AmountDebited)
}

func TestApplyDebit_RecurringCumulativeAccrues(t *testing.T) {
	// R=100, period 1s from t0: at cycle 5 with nothing spent the available
	// amount is the full accrued 500.
	preAuth := recurringPreAuth(1, 100, 0, false, nil)

	available, err := engine.AvailableAmount(preAuth, 4) // cycle 5
	require.NoError(t, err)
	assert.Equal(t, uint64(500), available)

	require.NoError(t, engine.ApplyDebit(preAuth, 500, 4))
	variant := preAuth.Variant.(types.Recurring)
	assert.Equal(t, uint64(5), variant.LastDebitedCycle)
	assert.Equal(t, uint64(500), variant.AmountDebitedLastCycle)
	assert.Equal(t, uint64(500), variant.AmountDebitedTotal)
}

func TestApplyDebit_RecurringResetForfeitsUnused(t *testing.T) {
	preAuth := recurringPreAuth(10, 100, 0, true, nil)

	// Cycle 5: exhaust the cycle budget.
	require.NoError(t, engine.ApplyDebit(preAuth, 100, 45))
	available, err := engine.AvailableAmount(preAuth, 46)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), available)

	// Cycle 6: budget refreshes to exactly R.
	available, err = engine.AvailableAmount(preAuth, 51)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), available)

	require.NoError(t, engine.ApplyDebit(preAuth, 30, 51))
	variant := preAuth.Variant.(types.Recurring)
	assert.Equal(t, uint64(6), variant.LastDebitedCycle)
	assert.Equal(t, uint64(30), variant.AmountDebitedLastCycle)
	assert.Equal(t, uint64(130), variant.AmountDebitedTotal)
}

func TestApplyDebit_SameCycleAccumulates(t *testing.T) {
	preAuth := recurringPreAuth(10, 100, 0, true, nil)

	require.NoError(t, engine.ApplyDebit(preAuth, 30, 3))
	require.NoError(t, engine.ApplyDebit(preAuth, 30, 7))

	variant := preAuth.Variant.(types.Recurring)
	assert.Equal(t, uint64(1), variant.LastDebitedCycle)
	assert.Equal(t, uint64(60), variant.AmountDebitedLastCycle)
	assert.Equal(t, uint64(60), variant.AmountDebitedTotal)

	err := engine.ApplyDebit(preAuth, 41, 9)
	assert.ErrorIs(t, err, engine.ErrCannotDebitMoreThanAvailable)
}

func TestApplyDebit_InvariantsAcrossRandomizedDebits(t *testing.T) {
	preAuth := recurringPreAuth(10, 100, 0, false, nil)
	nowUnix := int64(0)

	var lastCycle uint64 = 1
	var lastTotal uint64
	for i := 0; i < 200; i++ {
		nowUnix += int64(i % 7)
		available, err := engine.AvailableAmount(preAuth, nowUnix)
		require.NoError(t, err)
		amount := available/3 + 1
		if amount > available {
			continue
		}

		require.NoError(t, engine.ApplyDebit(preAuth, amount, nowUnix))
		variant := preAuth.Variant.(types.Recurring)

		assert.GreaterOrEqual(t, variant.LastDebitedCycle, lastCycle)
		assert.GreaterOrEqual(t, variant.AmountDebitedTotal, lastTotal)
		assert.LessOrEqual(t, variant.AmountDebitedLastCycle, variant.AmountDebitedTotal)
		lastCycle = variant.LastDebitedCycle
		lastTotal = variant.AmountDebitedTotal
	}
}

func TestAvailableAmount_UnknownVariantRejected(t *testing.T) {
	preAuth := &types.PreAuthorization{}
	_, err := engine.AvailableAmount(preAuth, 0)
	assert.Error(t, err)
}
