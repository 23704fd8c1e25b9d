// Package processor automates recurring collections: it acts as a configured
// debit authority, finds its pre-authorizations, and debits whatever each one
// makes available in the current cycle.
package processor

import (
	"context"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cyphera/preauth-api/internal/client/queue"
	"github.com/cyphera/preauth-api/internal/engine"
	"github.com/cyphera/preauth-api/internal/ledger"
	"github.com/cyphera/preauth-api/internal/logger"
	"github.com/cyphera/preauth-api/internal/services"
	"github.com/cyphera/preauth-api/internal/store"
	"github.com/cyphera/preauth-api/internal/types"
)

// FailedAttemptPublisher receives attempts the processor gave up on.
type FailedAttemptPublisher interface {
	Publish(ctx context.Context, attempt queue.FailedDebitAttempt) error
}

// Config fixes the identity and destination of automated debits.
type Config struct {
	DebitAuthority common.Address
	Destination    common.Address
	Mint           common.Address
	Decimals       uint8

	// MaxRetries bounds the backoff retries per debit attempt.
	MaxRetries uint64
}

// DebitProcessor drives one collection run over every pre-authorization held
// by the configured debit authority.
type DebitProcessor struct {
	store     store.Store
	debits    *services.DebitService
	publisher FailedAttemptPublisher
	config    Config
	logger    *zap.Logger
}

// NewDebitProcessor creates a processor. publisher may be nil, in which case
// failed attempts are only logged.
func NewDebitProcessor(recordStore store.Store, debits *services.DebitService, publisher FailedAttemptPublisher, config Config) *DebitProcessor {
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	return &DebitProcessor{
		store:     recordStore,
		debits:    debits,
		publisher: publisher,
		config:    config,
		logger:    logger.Log,
	}
}

// RunResults summarizes one processor run.
type RunResults struct {
	Total         int    `json:"total"`
	Succeeded     int    `json:"succeeded"`
	Failed        int    `json:"failed"`
	Skipped       int    `json:"skipped"`
	AmountDebited uint64 `json:"amount_debited"`
}

// ProcessDuePreAuthorizations lists the authority's pre-authorizations and
// debits the available amount from every recurring one. One-time grants,
// paused grants and grants with nothing available are skipped, not failed.
func (p *DebitProcessor) ProcessDuePreAuthorizations(ctx context.Context) (*RunResults, error) {
	preAuths, err := p.store.ListPreAuthorizationsByDebitAuthority(ctx, p.config.DebitAuthority)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pre-authorizations")
	}

	results := &RunResults{Total: len(preAuths)}
	for i := range preAuths {
		preAuth := &preAuths[i]

		if _, ok := preAuth.Variant.(types.Recurring); !ok {
			results.Skipped++
			continue
		}

		amount, err := p.debits.AvailableAmount(ctx, preAuth.TokenAccount, p.config.DebitAuthority)
		if err != nil {
			if isRuleError(err) {
				results.Skipped++
				continue
			}
			results.Failed++
			p.reportFailure(ctx, preAuth, 0, err)
			continue
		}
		if amount == 0 {
			results.Skipped++
			continue
		}

		if err := p.debitWithRetry(ctx, preAuth, amount); err != nil {
			results.Failed++
			p.reportFailure(ctx, preAuth, amount, err)
			continue
		}

		results.Succeeded++
		results.AmountDebited += amount
	}

	p.logger.Debug("processor run results", zap.String("dump", spew.Sdump(results)))
	return results, nil
}

// debitWithRetry executes one debit under exponential backoff. Rule failures
// will not change on retry, so they abort the backoff immediately.
func (p *DebitProcessor) debitWithRetry(ctx context.Context, preAuth *types.PreAuthorization, amount uint64) error {
	operation := func() error {
		_, err := p.debits.Debit(ctx, services.DebitParams{
			TokenAccount:   preAuth.TokenAccount,
			DebitAuthority: p.config.DebitAuthority,
			Destination:    p.config.Destination,
			Mint:           p.config.Mint,
			Decimals:       p.config.Decimals,
			Amount:         amount,
		})
		if err != nil && isRuleError(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 500 * time.Millisecond
	expBackoff.MaxInterval = 10 * time.Second

	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(expBackoff, p.config.MaxRetries), ctx))
}

// isRuleError reports whether err is a deterministic rejection rather than a
// transient infrastructure failure.
func isRuleError(err error) bool {
	switch {
	case errors.Is(err, engine.ErrPreAuthorizationPaused),
		errors.Is(err, engine.ErrPreAuthorizationNotActive),
		errors.Is(err, engine.ErrCannotDebitMoreThanAvailable),
		errors.Is(err, engine.ErrLastDebitedCycleBeforeCurrentCycle),
		errors.Is(err, engine.ErrInvalidTimestamp),
		errors.Is(err, engine.ErrArithmeticOverflow),
		errors.Is(err, services.ErrSmartDelegateMissing),
		errors.Is(err, services.ErrUnauthorized),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, ledger.ErrTransferUnauthorized),
		errors.Is(err, ledger.ErrMintMismatch),
		errors.Is(err, ledger.ErrAccountNotFound):
		return true
	}
	return false
}

// RestoreDelegateApprovals re-issues the ledger approvals implied by the
// smart delegate records of the given accounts. A fresh in-process ledger
// starts without them, and approving is idempotent, so this runs safely at
// process start. Accounts with no smart delegate are skipped.
func RestoreDelegateApprovals(ctx context.Context, recordStore store.Store, tokenLedger ledger.Ledger, accounts []common.Address) error {
	for _, account := range accounts {
		delegate, err := recordStore.GetSmartDelegate(ctx, account)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return errors.Wrapf(err, "failed to load smart delegate for %s", account.Hex())
		}
		if err := tokenLedger.Approve(ctx, account, delegate.Delegate, math.MaxUint64); err != nil {
			return errors.Wrapf(err, "failed to approve delegate for %s", account.Hex())
		}
	}
	return nil
}

func (p *DebitProcessor) reportFailure(ctx context.Context, preAuth *types.PreAuthorization, amount uint64, cause error) {
	p.logger.Error("automated debit failed",
		zap.String("token_account", preAuth.TokenAccount.Hex()),
		zap.String("debit_authority", p.config.DebitAuthority.Hex()),
		zap.Uint64("amount", amount),
		zap.Error(cause),
	)

	if p.publisher == nil {
		return
	}

	attempt := queue.FailedDebitAttempt{
		TokenAccount:   preAuth.TokenAccount.Hex(),
		DebitAuthority: p.config.DebitAuthority.Hex(),
		Destination:    p.config.Destination.Hex(),
		Amount:         amount,
		ErrorMessage:   cause.Error(),
		AttemptedAt:    time.Now().UTC(),
	}
	if err := p.publisher.Publish(ctx, attempt); err != nil {
		p.logger.Error("failed to publish debit attempt to queue", zap.Error(err))
	}
}
