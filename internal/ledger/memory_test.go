package ledger_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphera/preauth-api/internal/ledger"
)

var (
	testMint        = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	otherMint       = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	sourceAccount   = common.HexToAddress("0x0000000000000000000000000000000000000b01")
	destAccount     = common.HexToAddress("0x0000000000000000000000000000000000000b02")
	ownerAddress    = common.HexToAddress("0x0000000000000000000000000000000000000c01")
	delegateAddress = common.HexToAddress("0x0000000000000000000000000000000000000c02")
	strangerAddress = common.HexToAddress("0x0000000000000000000000000000000000000c03")
)

func newTestLedger(t *testing.T) *ledger.MemoryLedger {
	t.Helper()
	l := ledger.NewMemoryLedger()
	l.CreateMint(testMint, 6)
	require.NoError(t, l.CreateTokenAccount(sourceAccount, ownerAddress, testMint, 1000))
	require.NoError(t, l.CreateTokenAccount(destAccount, strangerAddress, testMint, 0))
	return l
}

func TestMemoryLedger_ApproveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	require.NoError(t, l.Approve(ctx, sourceAccount, delegateAddress, 500))
	require.NoError(t, l.Approve(ctx, sourceAccount, delegateAddress, 500))

	account, err := l.GetTokenAccount(ctx, sourceAccount)
	require.NoError(t, err)
	require.NotNil(t, account.Delegate)
	assert.Equal(t, delegateAddress, *account.Delegate)
	assert.Equal(t, uint64(500), account.DelegatedAmount)
}

func TestMemoryLedger_RevokeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	require.NoError(t, l.Approve(ctx, sourceAccount, delegateAddress, 500))
	require.NoError(t, l.Revoke(ctx, sourceAccount, delegateAddress))
	require.NoError(t, l.Revoke(ctx, sourceAccount, delegateAddress))

	account, err := l.GetTokenAccount(ctx, sourceAccount)
	require.NoError(t, err)
	assert.Nil(t, account.Delegate)
	assert.Zero(t, account.DelegatedAmount)
}

func TestMemoryLedger_TransferCheckedByDelegate(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	require.NoError(t, l.Approve(ctx, sourceAccount, delegateAddress, 300))
	require.NoError(t, l.TransferChecked(ctx, sourceAccount, destAccount, testMint, 200, 6, delegateAddress))

	source, err := l.GetTokenAccount(ctx, sourceAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(800), source.Balance)
	assert.Equal(t, uint64(100), source.DelegatedAmount)

	dest, err := l.GetTokenAccount(ctx, destAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), dest.Balance)

	// Delegated amount is exhausted after one more transfer of 100.
	require.NoError(t, l.TransferChecked(ctx, sourceAccount, destAccount, testMint, 100, 6, delegateAddress))
	err = l.TransferChecked(ctx, sourceAccount, destAccount, testMint, 1, 6, delegateAddress)
	assert.ErrorIs(t, err, ledger.ErrTransferUnauthorized)
}

func TestMemoryLedger_TransferCheckedErrors(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	require.NoError(t, l.Approve(ctx, sourceAccount, delegateAddress, 10_000))

	tests := []struct {
		name        string
		mint        common.Address
		amount      uint64
		decimals    uint8
		authority   common.Address
		expectedErr error
	}{
		{"unknown authority", testMint, 10, 6, strangerAddress, ledger.ErrTransferUnauthorized},
		{"wrong mint", otherMint, 10, 6, delegateAddress, ledger.ErrMintMismatch},
		{"wrong decimals", testMint, 10, 9, delegateAddress, ledger.ErrMintMismatch},
		{"insufficient balance", testMint, 2000, 6, delegateAddress, ledger.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.TransferChecked(ctx, sourceAccount, destAccount, tt.mint, tt.amount, tt.decimals, tt.authority)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestMemoryLedger_OwnerCanAlwaysTransfer(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	require.NoError(t, l.TransferChecked(ctx, sourceAccount, destAccount, testMint, 50, 6, ownerAddress))

	source, err := l.GetTokenAccount(ctx, sourceAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(950), source.Balance)
}
