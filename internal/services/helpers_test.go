package services_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/cyphera/preauth-api/internal/ledger"
	"github.com/cyphera/preauth-api/internal/logger"
)

func init() {
	logger.InitLogger()
}

var (
	testMint       = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	fundingAccount = common.HexToAddress("0x0000000000000000000000000000000000000b01")
	merchantWallet = common.HexToAddress("0x0000000000000000000000000000000000000b02")
	ownerAddress   = common.HexToAddress("0x0000000000000000000000000000000000000c01")
	debitAuthority = common.HexToAddress("0x0000000000000000000000000000000000000c02")
	strangerAddr   = common.HexToAddress("0x0000000000000000000000000000000000000c03")
)

// stubClock is a settable time source; tests move it to cross cycle
// boundaries.
type stubClock struct {
	now int64
}

func (c *stubClock) Now() int64 { return c.now }

func newFundedLedger(t *testing.T) *ledger.MemoryLedger {
	t.Helper()
	l := ledger.NewMemoryLedger()
	l.CreateMint(testMint, 6)
	require.NoError(t, l.CreateTokenAccount(fundingAccount, ownerAddress, testMint, 10_000))
	require.NoError(t, l.CreateTokenAccount(merchantWallet, debitAuthority, testMint, 0))
	return l
}

func uint64Ptr(v uint64) *uint64 { return &v }
