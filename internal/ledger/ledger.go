// Package ledger defines the token-ledger collaborator the debit service
// instructs to actually move funds, plus an in-memory implementation used by
// tests and the default server mode.
package ledger

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cyphera/preauth-api/internal/types"
)

var (
	// ErrAccountNotFound is returned when a referenced mint or token account
	// does not exist on the ledger.
	ErrAccountNotFound = errors.New("token account not found")

	// ErrInsufficientFunds is returned when a transfer exceeds the source
	// account balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrTransferUnauthorized is returned when the transfer authority is
	// neither the account owner nor an approved delegate with enough
	// delegated amount.
	ErrTransferUnauthorized = errors.New("transfer authority not approved")

	// ErrMintMismatch is returned when the mints of the source account,
	// destination account, and declared mint disagree, or the declared
	// decimals do not match the mint.
	ErrMintMismatch = errors.New("mint mismatch")
)

// Ledger is the transfer primitive the engine authorizes against. Approve and
// Revoke are idempotent: their postcondition is a target delegation state, so
// issuing either twice leaves the same end state without error.
type Ledger interface {
	// Approve sets delegate as the token account's delegate for up to amount.
	Approve(ctx context.Context, tokenAccount, delegate common.Address, amount uint64) error

	// Revoke clears the token account's delegate if it equals delegate. A
	// no-op when no matching delegation exists.
	Revoke(ctx context.Context, tokenAccount, delegate common.Address) error

	// TransferChecked moves amount from source to destination under
	// authority, verifying that both accounts hold mint and that decimals
	// matches the mint's declared precision.
	TransferChecked(ctx context.Context, source, destination, mint common.Address, amount uint64, decimals uint8, authority common.Address) error

	// GetTokenAccount returns a snapshot of the token account.
	GetTokenAccount(ctx context.Context, address common.Address) (*types.TokenAccount, error)
}
