package services

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cyphera/preauth-api/internal/ledger"
	"github.com/cyphera/preauth-api/internal/logger"
	"github.com/cyphera/preauth-api/internal/store"
	"github.com/cyphera/preauth-api/internal/types"
)

// PreAuthorizationService manages the lifecycle of pre-authorizations:
// creation, pause/unpause, and close. Debits live in DebitService.
type PreAuthorizationService struct {
	store  store.Store
	ledger ledger.Ledger
	logger *zap.Logger
}

// NewPreAuthorizationService creates a new pre-authorization service.
func NewPreAuthorizationService(recordStore store.Store, tokenLedger ledger.Ledger) *PreAuthorizationService {
	return &PreAuthorizationService{
		store:  recordStore,
		ledger: tokenLedger,
		logger: logger.Log,
	}
}

// InitOneTimeParams describes a one-time pre-authorization to create.
type InitOneTimeParams struct {
	AmountAuthorized    uint64
	ExpiryUnixTimestamp int64
}

// InitRecurringParams describes a recurring pre-authorization to create.
type InitRecurringParams struct {
	RepeatFrequencySeconds    uint64
	RecurringAmountAuthorized uint64
	NumCycles                 *uint64
	ResetEveryCycle           bool
}

// InitPreAuthorizationParams carries the common creation parameters. Exactly
// one of OneTime / Recurring must be set.
type InitPreAuthorizationParams struct {
	TokenAccount            common.Address
	Owner                   common.Address
	DebitAuthority          common.Address
	ActivationUnixTimestamp int64
	OneTime                 *InitOneTimeParams
	Recurring               *InitRecurringParams
}

func (p *InitPreAuthorizationParams) variant() (types.Variant, error) {
	switch {
	case p.OneTime != nil && p.Recurring == nil:
		return types.OneTime{
			AmountAuthorized:    p.OneTime.AmountAuthorized,
			ExpiryUnixTimestamp: p.OneTime.ExpiryUnixTimestamp,
			AmountDebited:       0,
		}, nil
	case p.Recurring != nil && p.OneTime == nil:
		if p.Recurring.RepeatFrequencySeconds == 0 {
			return nil, errors.Wrap(ErrInvalidVariant, "repeat frequency must be positive")
		}
		if p.Recurring.NumCycles != nil && *p.Recurring.NumCycles == 0 {
			return nil, errors.Wrap(ErrInvalidVariant, "num cycles must be positive when set")
		}
		return types.Recurring{
			RepeatFrequencySeconds:    p.Recurring.RepeatFrequencySeconds,
			RecurringAmountAuthorized: p.Recurring.RecurringAmountAuthorized,
			NumCycles:                 p.Recurring.NumCycles,
			ResetEveryCycle:           p.Recurring.ResetEveryCycle,
			AmountDebitedLastCycle:    0,
			AmountDebitedTotal:        0,
			LastDebitedCycle:          1, // first cycle
		}, nil
	default:
		return nil, errors.Wrap(ErrInvalidVariant, "exactly one of one_time or recurring must be provided")
	}
}

// InitPreAuthorization creates the pre-authorization for the
// (token account, debit authority) pair. Fails with store.ErrAlreadyExists
// when one exists.
func (s *PreAuthorizationService) InitPreAuthorization(ctx context.Context, params InitPreAuthorizationParams) (*types.PreAuthorization, error) {
	account, err := s.ledger.GetTokenAccount(ctx, params.TokenAccount)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch token account")
	}
	if account.Owner != params.Owner {
		return nil, ErrUnauthorized
	}

	variant, err := params.variant()
	if err != nil {
		return nil, err
	}

	record := &types.PreAuthorization{
		TokenAccount:            params.TokenAccount,
		DebitAuthority:          params.DebitAuthority,
		Paused:                  false,
		ActivationUnixTimestamp: params.ActivationUnixTimestamp,
		Variant:                 variant,
		RentDeposit:             preAuthorizationRentDeposit,
	}
	if err := s.store.CreatePreAuthorization(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("pre-authorization initialized",
		zap.String("token_account", params.TokenAccount.Hex()),
		zap.String("debit_authority", params.DebitAuthority.Hex()),
		zap.String("owner", params.Owner.Hex()),
		zap.Int64("activation_unix_timestamp", params.ActivationUnixTimestamp),
		zap.Bool("recurring", params.Recurring != nil),
	)
	return record, nil
}

// SetPaused pauses or unpauses the pre-authorization. Only the token account
// owner may call it; setting the current value again is a no-op.
func (s *PreAuthorizationService) SetPaused(ctx context.Context, tokenAccount, debitAuthority, owner common.Address, pause bool) error {
	account, err := s.ledger.GetTokenAccount(ctx, tokenAccount)
	if err != nil {
		return errors.Wrap(err, "failed to fetch token account")
	}
	if account.Owner != owner {
		return ErrUnauthorized
	}

	err = s.store.UpdatePreAuthorization(ctx, tokenAccount, debitAuthority, func(preAuth *types.PreAuthorization) error {
		preAuth.Paused = pause
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("pre-authorization pause updated",
		zap.String("token_account", tokenAccount.Hex()),
		zap.String("debit_authority", debitAuthority.Hex()),
		zap.Bool("paused", pause),
	)
	return nil
}

// ClosePreAuthorization destroys the record and refunds its storage deposit.
// The debit authority may close (walking away from the grant), but the
// deposit can only go to the token account owner unless the owner authorized
// the call.
func (s *PreAuthorizationService) ClosePreAuthorization(ctx context.Context, tokenAccount, debitAuthority, authority, receiver common.Address) (*CloseResult, error) {
	account, err := s.ledger.GetTokenAccount(ctx, tokenAccount)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch token account")
	}

	record, err := s.store.GetPreAuthorization(ctx, tokenAccount, debitAuthority)
	if err != nil {
		return nil, err
	}

	if authority != account.Owner && authority != record.DebitAuthority {
		return nil, ErrUnauthorized
	}

	if (receiver == common.Address{}) {
		receiver = account.Owner
	}
	if authority != account.Owner && receiver != account.Owner {
		return nil, ErrReceiverMismatch
	}

	if err := s.store.DeletePreAuthorization(ctx, tokenAccount, debitAuthority); err != nil {
		return nil, errors.Wrap(err, "failed to delete pre-authorization")
	}

	s.logger.Info("pre-authorization closed",
		zap.String("token_account", tokenAccount.Hex()),
		zap.String("debit_authority", debitAuthority.Hex()),
		zap.String("closing_authority", authority.Hex()),
		zap.String("receiver", receiver.Hex()),
	)
	return &CloseResult{Receiver: receiver, RefundedDeposit: record.RentDeposit}, nil
}

// GetPreAuthorization returns the record for the key pair.
func (s *PreAuthorizationService) GetPreAuthorization(ctx context.Context, tokenAccount, debitAuthority common.Address) (*types.PreAuthorization, error) {
	return s.store.GetPreAuthorization(ctx, tokenAccount, debitAuthority)
}

// ListPreAuthorizations returns every pre-authorization funded by the token
// account.
func (s *PreAuthorizationService) ListPreAuthorizations(ctx context.Context, tokenAccount common.Address) ([]types.PreAuthorization, error) {
	return s.store.ListPreAuthorizationsByTokenAccount(ctx, tokenAccount)
}
