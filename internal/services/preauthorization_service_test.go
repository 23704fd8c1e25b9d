package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphera/preauth-api/internal/services"
	"github.com/cyphera/preauth-api/internal/store"
	"github.com/cyphera/preauth-api/internal/types"
)

func newPreAuthService(t *testing.T) (*services.PreAuthorizationService, *store.MemoryStore) {
	t.Helper()
	recordStore := store.NewMemoryStore()
	return services.NewPreAuthorizationService(recordStore, newFundedLedger(t)), recordStore
}

func oneTimeInitParams() services.InitPreAuthorizationParams {
	return services.InitPreAuthorizationParams{
		TokenAccount:            fundingAccount,
		Owner:                   ownerAddress,
		DebitAuthority:          debitAuthority,
		ActivationUnixTimestamp: 100,
		OneTime: &services.InitOneTimeParams{
			AmountAuthorized:    1000,
			ExpiryUnixTimestamp: 10_000,
		},
	}
}

func TestPreAuthorizationService_InitOneTime(t *testing.T) {
	ctx := context.Background()
	service, _ := newPreAuthService(t)

	record, err := service.InitPreAuthorization(ctx, oneTimeInitParams())
	require.NoError(t, err)

	assert.False(t, record.Paused)
	variant, ok := record.Variant.(types.OneTime)
	require.True(t, ok)
	assert.Equal(t, uint64(1000), variant.AmountAuthorized)
	assert.Zero(t, variant.AmountDebited)
}

func TestPreAuthorizationService_InitRecurring(t *testing.T) {
	ctx := context.Background()
	service, _ := newPreAuthService(t)

	record, err := service.InitPreAuthorization(ctx, services.InitPreAuthorizationParams{
		TokenAccount:            fundingAccount,
		Owner:                   ownerAddress,
		DebitAuthority:          debitAuthority,
		ActivationUnixTimestamp: 100,
		Recurring: &services.InitRecurringParams{
			RepeatFrequencySeconds:    86400,
			RecurringAmountAuthorized: 500,
			NumCycles:                 uint64Ptr(12),
			ResetEveryCycle:           true,
		},
	})
	require.NoError(t, err)

	variant, ok := record.Variant.(types.Recurring)
	require.True(t, ok)
	assert.Equal(t, uint64(1), variant.LastDebitedCycle)
	assert.Zero(t, variant.AmountDebitedTotal)
	assert.Zero(t, variant.AmountDebitedLastCycle)
}

func TestPreAuthorizationService_InitRejectsBadParams(t *testing.T) {
	ctx := context.Background()
	service, _ := newPreAuthService(t)

	tests := []struct {
		name   string
		mutate func(*services.InitPreAuthorizationParams)
	}{
		{"no variant", func(p *services.InitPreAuthorizationParams) { p.OneTime = nil }},
		{"both variants", func(p *services.InitPreAuthorizationParams) {
			p.Recurring = &services.InitRecurringParams{RepeatFrequencySeconds: 1}
		}},
		{"zero frequency", func(p *services.InitPreAuthorizationParams) {
			p.OneTime = nil
			p.Recurring = &services.InitRecurringParams{RepeatFrequencySeconds: 0}
		}},
		{"zero num cycles", func(p *services.InitPreAuthorizationParams) {
			p.OneTime = nil
			p.Recurring = &services.InitRecurringParams{RepeatFrequencySeconds: 1, NumCycles: uint64Ptr(0)}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := oneTimeInitParams()
			tt.mutate(&params)
			_, err := service.InitPreAuthorization(ctx, params)
			assert.ErrorIs(t, err, services.ErrInvalidVariant)
		})
	}
}

func TestPreAuthorizationService_InitDuplicateAndUnauthorized(t *testing.T) {
	ctx := context.Background()
	service, _ := newPreAuthService(t)

	_, err := service.InitPreAuthorization(ctx, oneTimeInitParams())
	require.NoError(t, err)

	_, err = service.InitPreAuthorization(ctx, oneTimeInitParams())
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	params := oneTimeInitParams()
	params.Owner = strangerAddr
	_, err = service.InitPreAuthorization(ctx, params)
	assert.ErrorIs(t, err, services.ErrUnauthorized)
}

func TestPreAuthorizationService_SetPaused(t *testing.T) {
	ctx := context.Background()
	service, _ := newPreAuthService(t)
	_, err := service.InitPreAuthorization(ctx, oneTimeInitParams())
	require.NoError(t, err)

	assert.ErrorIs(t,
		service.SetPaused(ctx, fundingAccount, debitAuthority, strangerAddr, true),
		services.ErrUnauthorized)
	assert.ErrorIs(t,
		service.SetPaused(ctx, fundingAccount, debitAuthority, debitAuthority, true),
		services.ErrUnauthorized)

	require.NoError(t, service.SetPaused(ctx, fundingAccount, debitAuthority, ownerAddress, true))
	// Setting the same value again is a no-op, not an error.
	require.NoError(t, service.SetPaused(ctx, fundingAccount, debitAuthority, ownerAddress, true))

	record, err := service.GetPreAuthorization(ctx, fundingAccount, debitAuthority)
	require.NoError(t, err)
	assert.True(t, record.Paused)

	require.NoError(t, service.SetPaused(ctx, fundingAccount, debitAuthority, ownerAddress, false))
	record, err = service.GetPreAuthorization(ctx, fundingAccount, debitAuthority)
	require.NoError(t, err)
	assert.False(t, record.Paused)
}

func TestPreAuthorizationService_Close(t *testing.T) {
	ctx := context.Background()

	t.Run("owner closes to any receiver", func(t *testing.T) {
		service, _ := newPreAuthService(t)
		_, err := service.InitPreAuthorization(ctx, oneTimeInitParams())
		require.NoError(t, err)

		result, err := service.ClosePreAuthorization(ctx, fundingAccount, debitAuthority, ownerAddress, strangerAddr)
		require.NoError(t, err)
		assert.Equal(t, strangerAddr, result.Receiver)
	})

	t.Run("debit authority closes, deposit goes to owner", func(t *testing.T) {
		service, _ := newPreAuthService(t)
		_, err := service.InitPreAuthorization(ctx, oneTimeInitParams())
		require.NoError(t, err)

		result, err := service.ClosePreAuthorization(ctx, fundingAccount, debitAuthority, debitAuthority, ownerAddress)
		require.NoError(t, err)
		assert.Equal(t, ownerAddress, result.Receiver)
	})

	t.Run("debit authority cannot redirect the deposit", func(t *testing.T) {
		service, _ := newPreAuthService(t)
		_, err := service.InitPreAuthorization(ctx, oneTimeInitParams())
		require.NoError(t, err)

		_, err = service.ClosePreAuthorization(ctx, fundingAccount, debitAuthority, debitAuthority, debitAuthority)
		assert.ErrorIs(t, err, services.ErrReceiverMismatch)
	})

	t.Run("stranger cannot close", func(t *testing.T) {
		service, _ := newPreAuthService(t)
		_, err := service.InitPreAuthorization(ctx, oneTimeInitParams())
		require.NoError(t, err)

		_, err = service.ClosePreAuthorization(ctx, fundingAccount, debitAuthority, strangerAddr, ownerAddress)
		assert.ErrorIs(t, err, services.ErrUnauthorized)
	})
}
