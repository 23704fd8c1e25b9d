package store

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cyphera/preauth-api/internal/types"
)

// MemoryStore keeps records in slot-addressed maps. A single mutex guards
// every operation, which trivially satisfies the exclusive-access requirement
// for UpdatePreAuthorization (distinct records could be processed
// concurrently, but serializing them is also correct).
type MemoryStore struct {
	mu        sync.Mutex
	delegates map[common.Address]types.SmartDelegate
	preAuths  map[common.Address]types.PreAuthorization
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		delegates: make(map[common.Address]types.SmartDelegate),
		preAuths:  make(map[common.Address]types.PreAuthorization),
	}
}

// CreateSmartDelegate stores the record at its derived slot.
func (s *MemoryStore) CreateSmartDelegate(ctx context.Context, delegate *types.SmartDelegate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := SmartDelegateAddress(delegate.TokenAccount)
	if _, ok := s.delegates[slot]; ok {
		return ErrAlreadyExists
	}
	s.delegates[slot] = *delegate
	return nil
}

// GetSmartDelegate returns the smart delegate for the token account.
func (s *MemoryStore) GetSmartDelegate(ctx context.Context, tokenAccount common.Address) (*types.SmartDelegate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delegate, ok := s.delegates[SmartDelegateAddress(tokenAccount)]
	if !ok {
		return nil, ErrNotFound
	}
	return &delegate, nil
}

// DeleteSmartDelegate removes the record.
func (s *MemoryStore) DeleteSmartDelegate(ctx context.Context, tokenAccount common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := SmartDelegateAddress(tokenAccount)
	if _, ok := s.delegates[slot]; !ok {
		return ErrNotFound
	}
	delete(s.delegates, slot)
	return nil
}

// CreatePreAuthorization stores the record at its derived slot.
func (s *MemoryStore) CreatePreAuthorization(ctx context.Context, preAuth *types.PreAuthorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := PreAuthorizationAddress(preAuth.TokenAccount, preAuth.DebitAuthority)
	if _, ok := s.preAuths[slot]; ok {
		return ErrAlreadyExists
	}
	s.preAuths[slot] = *preAuth
	return nil
}

// GetPreAuthorization returns the pre-authorization for the key pair.
func (s *MemoryStore) GetPreAuthorization(ctx context.Context, tokenAccount, debitAuthority common.Address) (*types.PreAuthorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	preAuth, ok := s.preAuths[PreAuthorizationAddress(tokenAccount, debitAuthority)]
	if !ok {
		return nil, ErrNotFound
	}
	return &preAuth, nil
}

// ListPreAuthorizationsByTokenAccount returns every pre-authorization funded
// by the token account.
func (s *MemoryStore) ListPreAuthorizationsByTokenAccount(ctx context.Context, tokenAccount common.Address) ([]types.PreAuthorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []types.PreAuthorization
	for _, preAuth := range s.preAuths {
		if preAuth.TokenAccount == tokenAccount {
			result = append(result, preAuth)
		}
	}
	return result, nil
}

// ListPreAuthorizationsByDebitAuthority returns every pre-authorization the
// debit authority may draw on.
func (s *MemoryStore) ListPreAuthorizationsByDebitAuthority(ctx context.Context, debitAuthority common.Address) ([]types.PreAuthorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []types.PreAuthorization
	for _, preAuth := range s.preAuths {
		if preAuth.DebitAuthority == debitAuthority {
			result = append(result, preAuth)
		}
	}
	return result, nil
}

// DeletePreAuthorization removes the record.
func (s *MemoryStore) DeletePreAuthorization(ctx context.Context, tokenAccount, debitAuthority common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := PreAuthorizationAddress(tokenAccount, debitAuthority)
	if _, ok := s.preAuths[slot]; !ok {
		return ErrNotFound
	}
	delete(s.preAuths, slot)
	return nil
}

// UpdatePreAuthorization applies fn to a working copy under the store lock
// and commits only on success. Holding the lock for the duration of fn is
// what makes the accounting read-modify-write safe against concurrent debit
// attempts on the same record.
func (s *MemoryStore) UpdatePreAuthorization(ctx context.Context, tokenAccount, debitAuthority common.Address, fn func(*types.PreAuthorization) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := PreAuthorizationAddress(tokenAccount, debitAuthority)
	preAuth, ok := s.preAuths[slot]
	if !ok {
		return ErrNotFound
	}

	working := preAuth
	if err := fn(&working); err != nil {
		return err
	}
	s.preAuths[slot] = working
	return nil
}
