package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// PreAuthorization is the rule record that lets a debit authority pull funds
// from a token account. There is at most one per (token account, debit
// authority) pair; the store derives the record's slot from that pair, so
// creation naturally collides instead of duplicating.
type PreAuthorization struct {
	// TokenAccount is the funding account the debit authority may debit from.
	// Never updated after initialization.
	TokenAccount common.Address `json:"token_account"`

	// DebitAuthority is the identity permitted to request debits under this
	// pre-authorization. Never updated after initialization.
	DebitAuthority common.Address `json:"debit_authority"`

	// Paused blocks all debits while true. Only the token account owner may
	// flip it.
	Paused bool `json:"paused"`

	// ActivationUnixTimestamp is the earliest moment a debit may succeed.
	ActivationUnixTimestamp int64 `json:"activation_unix_timestamp"`

	// Variant holds the one-time or recurring budget rules plus the
	// accounting counters. The rules are immutable after initialization; the
	// counters are updated only by the debit engine.
	Variant Variant `json:"variant"`

	// RentDeposit is the storage deposit (in lamport-equivalent base units)
	// refunded to the receiver when the record is closed.
	RentDeposit uint64 `json:"rent_deposit"`
}

// Variant is the closed set of pre-authorization shapes. Adding a new shape
// means adding a type here and extending every type switch over it; the
// engine treats an unknown variant as a hard error.
type Variant interface {
	isVariant()
}

// OneTime authorizes a fixed total amount up to an expiry.
type OneTime struct {
	AmountAuthorized    uint64 `json:"amount_authorized"`
	ExpiryUnixTimestamp int64  `json:"expiry_unix_timestamp"`

	// AmountDebited starts at zero and only grows, never past
	// AmountAuthorized. Updated only by the debit engine.
	AmountDebited uint64 `json:"amount_debited"`
}

// Recurring authorizes an amount per fixed-length cycle, counted 1-based from
// the activation timestamp.
type Recurring struct {
	RepeatFrequencySeconds    uint64 `json:"repeat_frequency_seconds"`
	RecurringAmountAuthorized uint64 `json:"recurring_amount_authorized"`

	// NumCycles bounds the cycle index when set; nil means the
	// pre-authorization recurs until closed.
	NumCycles *uint64 `json:"num_cycles,omitempty"`

	// ResetEveryCycle selects the budget policy: true grants exactly
	// RecurringAmountAuthorized per cycle with no carry-over, false accrues
	// one increment per elapsed cycle minus everything ever debited.
	ResetEveryCycle bool `json:"reset_every_cycle"`

	// Accounting state, updated only by the debit engine.
	AmountDebitedLastCycle uint64 `json:"amount_debited_last_cycle"`
	AmountDebitedTotal     uint64 `json:"amount_debited_total"`
	LastDebitedCycle       uint64 `json:"last_debited_cycle"`
}

func (OneTime) isVariant()   {}
func (Recurring) isVariant() {}

// SmartDelegate is the standing capability record for one funding token
// account. Its existence implies the token ledger has been told to trust the
// derived delegate address for an unlimited amount on the token account; that
// instruction is idempotent and safe to re-issue.
type SmartDelegate struct {
	// TokenAccount is the funding account this delegate is scoped to.
	TokenAccount common.Address `json:"token_account"`

	// Delegate is the signing handle the token ledger recognizes as
	// authorized to move funds out of TokenAccount. Derived
	// deterministically from TokenAccount.
	Delegate common.Address `json:"delegate"`

	RentDeposit uint64 `json:"rent_deposit"`
}
