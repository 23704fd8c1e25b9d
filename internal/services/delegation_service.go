package services

import (
	"context"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cyphera/preauth-api/internal/ledger"
	"github.com/cyphera/preauth-api/internal/logger"
	"github.com/cyphera/preauth-api/internal/store"
	"github.com/cyphera/preauth-api/internal/types"
)

// Storage deposits refunded when a record is closed, in base units.
const (
	smartDelegateRentDeposit    uint64 = 1_002_240
	preAuthorizationRentDeposit uint64 = 2_227_200
)

// DelegationService manages smart delegates: the standing, unlimited-amount
// trust relationship that lets the service's derived signing handle move
// funds out of a funding token account.
type DelegationService struct {
	store  store.Store
	ledger ledger.Ledger
	logger *zap.Logger
}

// NewDelegationService creates a new delegation service.
func NewDelegationService(recordStore store.Store, tokenLedger ledger.Ledger) *DelegationService {
	return &DelegationService{
		store:  recordStore,
		ledger: tokenLedger,
		logger: logger.Log,
	}
}

// CloseResult reports where a closed record's storage deposit went.
type CloseResult struct {
	Receiver        common.Address `json:"receiver"`
	RefundedDeposit uint64         `json:"refunded_deposit"`
}

// InitSmartDelegate establishes (or idempotently re-establishes) the smart
// delegate for a funding token account. The ledger approval is an operation
// whose postcondition is a target state, so re-issuing it for an existing
// delegate leaves the same end state without error.
func (s *DelegationService) InitSmartDelegate(ctx context.Context, tokenAccount, owner common.Address) (*types.SmartDelegate, error) {
	account, err := s.ledger.GetTokenAccount(ctx, tokenAccount)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch token account")
	}
	if account.Owner != owner {
		return nil, ErrUnauthorized
	}

	delegate := store.SmartDelegateAddress(tokenAccount)
	if err := s.ledger.Approve(ctx, tokenAccount, delegate, math.MaxUint64); err != nil {
		return nil, errors.Wrap(err, "failed to approve smart delegate")
	}

	record := &types.SmartDelegate{
		TokenAccount: tokenAccount,
		Delegate:     delegate,
		RentDeposit:  smartDelegateRentDeposit,
	}
	err = s.store.CreateSmartDelegate(ctx, record)
	if errors.Is(err, store.ErrAlreadyExists) {
		existing, getErr := s.store.GetSmartDelegate(ctx, tokenAccount)
		if getErr != nil {
			return nil, errors.Wrap(getErr, "failed to fetch existing smart delegate")
		}
		return existing, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to store smart delegate")
	}

	s.logger.Info("smart delegate initialized",
		zap.String("token_account", tokenAccount.Hex()),
		zap.String("delegate", delegate.Hex()),
		zap.String("owner", owner.Hex()),
	)
	return record, nil
}

// RevokeSmartDelegate removes the ledger-side trust in the delegate without
// destroying the record. Revoking absent trust is a no-op, not an error.
func (s *DelegationService) RevokeSmartDelegate(ctx context.Context, tokenAccount, owner common.Address) error {
	account, err := s.ledger.GetTokenAccount(ctx, tokenAccount)
	if err != nil {
		return errors.Wrap(err, "failed to fetch token account")
	}
	if account.Owner != owner {
		return ErrUnauthorized
	}

	delegate := store.SmartDelegateAddress(tokenAccount)
	if err := s.ledger.Revoke(ctx, tokenAccount, delegate); err != nil {
		return errors.Wrap(err, "failed to revoke smart delegate")
	}

	s.logger.Info("smart delegate revoked",
		zap.String("token_account", tokenAccount.Hex()),
		zap.String("delegate", delegate.Hex()),
	)
	return nil
}

// CloseSmartDelegate revokes the ledger-side trust, destroys the record, and
// refunds its storage deposit. Only the token account owner may close; the
// owner's authorization of the call attests the receiver.
func (s *DelegationService) CloseSmartDelegate(ctx context.Context, tokenAccount, owner, receiver common.Address) (*CloseResult, error) {
	account, err := s.ledger.GetTokenAccount(ctx, tokenAccount)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch token account")
	}
	if account.Owner != owner {
		return nil, ErrUnauthorized
	}

	record, err := s.store.GetSmartDelegate(ctx, tokenAccount)
	if err != nil {
		return nil, err
	}

	if (receiver == common.Address{}) {
		receiver = owner
	}

	if err := s.ledger.Revoke(ctx, tokenAccount, record.Delegate); err != nil {
		return nil, errors.Wrap(err, "failed to revoke smart delegate")
	}
	if err := s.store.DeleteSmartDelegate(ctx, tokenAccount); err != nil {
		return nil, errors.Wrap(err, "failed to delete smart delegate")
	}

	s.logger.Info("smart delegate closed",
		zap.String("token_account", tokenAccount.Hex()),
		zap.String("receiver", receiver.Hex()),
	)
	return &CloseResult{Receiver: receiver, RefundedDeposit: record.RentDeposit}, nil
}

// GetSmartDelegate returns the smart delegate record for a token account.
func (s *DelegationService) GetSmartDelegate(ctx context.Context, tokenAccount common.Address) (*types.SmartDelegate, error) {
	return s.store.GetSmartDelegate(ctx, tokenAccount)
}
