package services_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphera/preauth-api/internal/services"
	"github.com/cyphera/preauth-api/internal/store"
)

func TestDelegationService_InitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	tokenLedger := newFundedLedger(t)
	recordStore := store.NewMemoryStore()
	service := services.NewDelegationService(recordStore, tokenLedger)

	first, err := service.InitSmartDelegate(ctx, fundingAccount, ownerAddress)
	require.NoError(t, err)
	assert.Equal(t, store.SmartDelegateAddress(fundingAccount), first.Delegate)

	// Re-creating re-issues the approval and returns the existing record
	// without error.
	second, err := service.InitSmartDelegate(ctx, fundingAccount, ownerAddress)
	require.NoError(t, err)
	assert.Equal(t, first.Delegate, second.Delegate)

	account, err := tokenLedger.GetTokenAccount(ctx, fundingAccount)
	require.NoError(t, err)
	require.NotNil(t, account.Delegate)
	assert.Equal(t, first.Delegate, *account.Delegate)
	assert.Equal(t, uint64(math.MaxUint64), account.DelegatedAmount)
}

func TestDelegationService_InitRequiresOwner(t *testing.T) {
	ctx := context.Background()
	service := services.NewDelegationService(store.NewMemoryStore(), newFundedLedger(t))

	_, err := service.InitSmartDelegate(ctx, fundingAccount, strangerAddr)
	assert.ErrorIs(t, err, services.ErrUnauthorized)
}

func TestDelegationService_RevokeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	tokenLedger := newFundedLedger(t)
	service := services.NewDelegationService(store.NewMemoryStore(), tokenLedger)

	_, err := service.InitSmartDelegate(ctx, fundingAccount, ownerAddress)
	require.NoError(t, err)

	require.NoError(t, service.RevokeSmartDelegate(ctx, fundingAccount, ownerAddress))
	// Revoking again, with the trust already absent, still succeeds.
	require.NoError(t, service.RevokeSmartDelegate(ctx, fundingAccount, ownerAddress))

	account, err := tokenLedger.GetTokenAccount(ctx, fundingAccount)
	require.NoError(t, err)
	assert.Nil(t, account.Delegate)
}

func TestDelegationService_Close(t *testing.T) {
	ctx := context.Background()
	tokenLedger := newFundedLedger(t)
	recordStore := store.NewMemoryStore()
	service := services.NewDelegationService(recordStore, tokenLedger)

	created, err := service.InitSmartDelegate(ctx, fundingAccount, ownerAddress)
	require.NoError(t, err)

	_, err = service.CloseSmartDelegate(ctx, fundingAccount, strangerAddr, strangerAddr)
	assert.ErrorIs(t, err, services.ErrUnauthorized)

	result, err := service.CloseSmartDelegate(ctx, fundingAccount, ownerAddress, ownerAddress)
	require.NoError(t, err)
	assert.Equal(t, ownerAddress, result.Receiver)
	assert.Equal(t, created.RentDeposit, result.RefundedDeposit)

	// Record gone, ledger trust gone.
	_, err = service.GetSmartDelegate(ctx, fundingAccount)
	assert.ErrorIs(t, err, store.ErrNotFound)
	account, err := tokenLedger.GetTokenAccount(ctx, fundingAccount)
	require.NoError(t, err)
	assert.Nil(t, account.Delegate)
}
