package ledger_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphera/preauth-api/internal/ledger"
)

const seedDocument = `{
	"mints": [
		{"address": "0x00000000000000000000000000000000000000a1", "decimals": 6}
	],
	"token_accounts": [
		{
			"address": "0x0000000000000000000000000000000000000b01",
			"owner": "0x0000000000000000000000000000000000000c01",
			"mint": "0x00000000000000000000000000000000000000a1",
			"balance": 1000
		},
		{
			"address": "0x0000000000000000000000000000000000000b02",
			"owner": "0x0000000000000000000000000000000000000c03",
			"mint": "0x00000000000000000000000000000000000000a1",
			"balance": 0
		}
	]
}`

func TestParseSeed(t *testing.T) {
	seed, err := ledger.ParseSeed(strings.NewReader(seedDocument))
	require.NoError(t, err)

	require.Len(t, seed.Mints, 1)
	assert.Equal(t, uint8(6), seed.Mints[0].Decimals)
	require.Len(t, seed.TokenAccounts, 2)
	assert.Equal(t, uint64(1000), seed.TokenAccounts[0].Balance)

	addresses := seed.AccountAddresses()
	require.Len(t, addresses, 2)
	assert.Equal(t, sourceAccount, addresses[0])
	assert.Equal(t, destAccount, addresses[1])
}

func TestParseSeed_RejectsInvalidAddress(t *testing.T) {
	_, err := ledger.ParseSeed(strings.NewReader(`{
		"mints": [{"address": "not-an-address", "decimals": 6}]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid address")
}

func TestApplySeed(t *testing.T) {
	ctx := context.Background()
	seed, err := ledger.ParseSeed(strings.NewReader(seedDocument))
	require.NoError(t, err)

	l := ledger.NewMemoryLedger()
	require.NoError(t, l.ApplySeed(seed))

	account, err := l.GetTokenAccount(ctx, sourceAccount)
	require.NoError(t, err)
	assert.Equal(t, ownerAddress, account.Owner)
	assert.Equal(t, testMint, account.Mint)
	assert.Equal(t, uint64(1000), account.Balance)

	require.NoError(t, l.TransferChecked(ctx, sourceAccount, destAccount, testMint, 250, 6, ownerAddress))
}

func TestApplySeed_UnknownMint(t *testing.T) {
	seed, err := ledger.ParseSeed(strings.NewReader(`{
		"token_accounts": [{
			"address": "0x0000000000000000000000000000000000000b01",
			"owner": "0x0000000000000000000000000000000000000c01",
			"mint": "0x00000000000000000000000000000000000000a9",
			"balance": 10
		}]
	}`))
	require.NoError(t, err)

	err = ledger.NewMemoryLedger().ApplySeed(seed)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}
