package services

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cyphera/preauth-api/internal/engine"
	"github.com/cyphera/preauth-api/internal/ledger"
	"github.com/cyphera/preauth-api/internal/logger"
	"github.com/cyphera/preauth-api/internal/store"
	"github.com/cyphera/preauth-api/internal/types"
)

// DebitService executes debits: it validates a pre-authorization against the
// engine's rules, advances the accounting counters, and instructs the token
// ledger to move funds under the smart delegate's authority. The counter
// mutation and the transfer commit or fail as one unit.
type DebitService struct {
	store  store.Store
	ledger ledger.Ledger
	clock  engine.Clock
	logger *zap.Logger
}

// NewDebitService creates a new debit service.
func NewDebitService(recordStore store.Store, tokenLedger ledger.Ledger, clock engine.Clock) *DebitService {
	return &DebitService{
		store:  recordStore,
		ledger: tokenLedger,
		clock:  clock,
		logger: logger.Log,
	}
}

// DebitParams describes one debit attempt. Mint and Decimals declare the
// asset the caller believes it is moving; the ledger rejects the transfer if
// any account disagrees.
type DebitParams struct {
	TokenAccount   common.Address
	DebitAuthority common.Address
	Destination    common.Address
	Mint           common.Address
	Decimals       uint8
	Amount         uint64
}

// DebitResult reports a committed debit.
type DebitResult struct {
	Amount uint64 `json:"amount"`

	// Cycle is the cycle the debit landed in; zero for one-time
	// pre-authorizations.
	Cycle uint64 `json:"cycle,omitempty"`
}

// Debit attempts to move params.Amount from the funding token account to the
// destination under the pre-authorization for
// (params.TokenAccount, params.DebitAuthority).
func (s *DebitService) Debit(ctx context.Context, params DebitParams) (*DebitResult, error) {
	delegate, err := s.store.GetSmartDelegate(ctx, params.TokenAccount)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSmartDelegateMissing
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch smart delegate")
	}
	if delegate.TokenAccount != params.TokenAccount {
		return nil, ErrTokenAccountMismatch
	}

	nowUnix := s.clock.Now()

	result := &DebitResult{Amount: params.Amount}
	err = s.store.UpdatePreAuthorization(ctx, params.TokenAccount, params.DebitAuthority, func(preAuth *types.PreAuthorization) error {
		if preAuth.DebitAuthority != params.DebitAuthority {
			return ErrUnauthorized
		}
		if preAuth.TokenAccount != params.TokenAccount {
			return ErrTokenAccountMismatch
		}

		if err := engine.ApplyDebit(preAuth, params.Amount, nowUnix); err != nil {
			return err
		}
		if recurring, ok := preAuth.Variant.(types.Recurring); ok {
			result.Cycle = recurring.LastDebitedCycle
		}

		// The transfer runs inside the record mutation: if it fails, the
		// advanced counters are discarded with it.
		return s.ledger.TransferChecked(ctx,
			params.TokenAccount, params.Destination, params.Mint,
			params.Amount, params.Decimals, delegate.Delegate)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("debit executed",
		zap.String("token_account", params.TokenAccount.Hex()),
		zap.String("debit_authority", params.DebitAuthority.Hex()),
		zap.String("destination", params.Destination.Hex()),
		zap.String("mint", params.Mint.Hex()),
		zap.Uint64("amount", params.Amount),
		zap.Uint64("cycle", result.Cycle),
	)
	return result, nil
}

// AvailableAmount reports how much the debit authority could debit right
// now. Used by callers deciding how much to request.
func (s *DebitService) AvailableAmount(ctx context.Context, tokenAccount, debitAuthority common.Address) (uint64, error) {
	preAuth, err := s.store.GetPreAuthorization(ctx, tokenAccount, debitAuthority)
	if err != nil {
		return 0, err
	}
	if preAuth.Paused {
		return 0, engine.ErrPreAuthorizationPaused
	}
	nowUnix := s.clock.Now()
	if nowUnix < preAuth.ActivationUnixTimestamp {
		return 0, engine.ErrPreAuthorizationNotActive
	}
	return engine.AvailableAmount(preAuth, nowUnix)
}
