package ledger

import (
	"context"
	"math"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/cyphera/preauth-api/internal/types"
)

// MemoryLedger is an in-process token ledger. All operations execute under a
// single lock, so a transfer observes and mutates a consistent snapshot.
type MemoryLedger struct {
	mu       sync.Mutex
	mints    map[common.Address]types.Mint
	accounts map[common.Address]*types.TokenAccount
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		mints:    make(map[common.Address]types.Mint),
		accounts: make(map[common.Address]*types.TokenAccount),
	}
}

// CreateMint registers an asset with its decimal precision.
func (l *MemoryLedger) CreateMint(mint common.Address, decimals uint8) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mints[mint] = types.Mint{Address: mint, Decimals: decimals}
}

// CreateTokenAccount registers a token account holding mint for owner with an
// initial balance.
func (l *MemoryLedger) CreateTokenAccount(address, owner, mint common.Address, balance uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.mints[mint]; !ok {
		return errors.Wrapf(ErrAccountNotFound, "mint %s", mint.Hex())
	}
	l.accounts[address] = &types.TokenAccount{
		Address: address,
		Owner:   owner,
		Mint:    mint,
		Balance: balance,
	}
	return nil
}

// Approve sets the delegate and delegated amount on the token account.
// Calling it again with the same arguments leaves the same end state.
func (l *MemoryLedger) Approve(ctx context.Context, tokenAccount, delegate common.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, ok := l.accounts[tokenAccount]
	if !ok {
		return errors.Wrapf(ErrAccountNotFound, "token account %s", tokenAccount.Hex())
	}
	account.Delegate = &delegate
	account.DelegatedAmount = amount
	return nil
}

// Revoke clears the delegation if it points at delegate. Revoking an absent
// delegation is a no-op, not an error.
func (l *MemoryLedger) Revoke(ctx context.Context, tokenAccount, delegate common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, ok := l.accounts[tokenAccount]
	if !ok {
		return errors.Wrapf(ErrAccountNotFound, "token account %s", tokenAccount.Hex())
	}
	if account.Delegate != nil && *account.Delegate == delegate {
		account.Delegate = nil
		account.DelegatedAmount = 0
	}
	return nil
}

// TransferChecked moves amount between two accounts of the same mint. The
// authority must be the source owner or its approved delegate with enough
// delegated amount; a delegate transfer draws the delegated amount down.
func (l *MemoryLedger) TransferChecked(ctx context.Context, source, destination, mint common.Address, amount uint64, decimals uint8, authority common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	sourceAccount, ok := l.accounts[source]
	if !ok {
		return errors.Wrapf(ErrAccountNotFound, "source token account %s", source.Hex())
	}
	destinationAccount, ok := l.accounts[destination]
	if !ok {
		return errors.Wrapf(ErrAccountNotFound, "destination token account %s", destination.Hex())
	}

	if sourceAccount.Mint != mint || destinationAccount.Mint != mint {
		return ErrMintMismatch
	}
	declaredMint, ok := l.mints[mint]
	if !ok || declaredMint.Decimals != decimals {
		return ErrMintMismatch
	}

	viaDelegate := false
	switch {
	case authority == sourceAccount.Owner:
	case sourceAccount.Delegate != nil && *sourceAccount.Delegate == authority:
		if sourceAccount.DelegatedAmount < amount {
			return ErrTransferUnauthorized
		}
		viaDelegate = true
	default:
		return ErrTransferUnauthorized
	}

	if sourceAccount.Balance < amount {
		return ErrInsufficientFunds
	}
	if destinationAccount.Balance > math.MaxUint64-amount {
		return errors.New("destination balance overflow")
	}

	sourceAccount.Balance -= amount
	destinationAccount.Balance += amount
	if viaDelegate {
		sourceAccount.DelegatedAmount -= amount
	}
	return nil
}

// GetTokenAccount returns a copy of the token account.
func (l *MemoryLedger) GetTokenAccount(ctx context.Context, address common.Address) (*types.TokenAccount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, ok := l.accounts[address]
	if !ok {
		return nil, errors.Wrapf(ErrAccountNotFound, "token account %s", address.Hex())
	}
	snapshot := *account
	if account.Delegate != nil {
		delegate := *account.Delegate
		snapshot.Delegate = &delegate
	}
	return &snapshot, nil
}
