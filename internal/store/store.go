// Package store persists smart delegates and pre-authorizations. Records are
// addressed deterministically from their key tuple, so the one-record-per-key
// invariants are enforced by the addressing scheme itself rather than a
// separate uniqueness index.
package store

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cyphera/preauth-api/internal/types"
)

var (
	// ErrNotFound is returned when no record exists at the derived slot.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when creating a record whose slot is
	// already occupied.
	ErrAlreadyExists = errors.New("record already exists")
)

// Store is the persistence boundary for delegation and pre-authorization
// records. UpdatePreAuthorization serializes read-modify-write against one
// record: implementations must guarantee no two mutations of the same record
// interleave, and must discard the mutation when either fn or the commit
// fails.
type Store interface {
	CreateSmartDelegate(ctx context.Context, delegate *types.SmartDelegate) error
	GetSmartDelegate(ctx context.Context, tokenAccount common.Address) (*types.SmartDelegate, error)
	DeleteSmartDelegate(ctx context.Context, tokenAccount common.Address) error

	CreatePreAuthorization(ctx context.Context, preAuth *types.PreAuthorization) error
	GetPreAuthorization(ctx context.Context, tokenAccount, debitAuthority common.Address) (*types.PreAuthorization, error)
	ListPreAuthorizationsByTokenAccount(ctx context.Context, tokenAccount common.Address) ([]types.PreAuthorization, error)
	ListPreAuthorizationsByDebitAuthority(ctx context.Context, debitAuthority common.Address) ([]types.PreAuthorization, error)
	DeletePreAuthorization(ctx context.Context, tokenAccount, debitAuthority common.Address) error

	// UpdatePreAuthorization loads the record, applies fn to a working copy
	// under the record's exclusive lock, and commits the copy only if fn
	// returns nil. fn may carry out side effects (the ledger transfer) that
	// must commit or fail together with the record mutation.
	UpdatePreAuthorization(ctx context.Context, tokenAccount, debitAuthority common.Address, fn func(*types.PreAuthorization) error) error
}
