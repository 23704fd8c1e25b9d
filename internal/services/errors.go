package services

import "errors"

var (
	// ErrUnauthorized is returned when the signer of a privileged operation
	// is not the party the operation requires.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrReceiverMismatch is returned when a close operation names a receiver
	// other than the token account owner without the owner authorizing it.
	ErrReceiverMismatch = errors.New("only the token account owner can receive close funds")

	// ErrTokenAccountMismatch is returned when the smart delegate and
	// pre-authorization disagree about the funding token account.
	ErrTokenAccountMismatch = errors.New("pre-authorization and token account mismatch")

	// ErrSmartDelegateMissing is returned when a debit is attempted for a
	// funding account that has no smart delegate; rule validation does not
	// need the delegate, but moving funds does.
	ErrSmartDelegateMissing = errors.New("no smart delegate exists for token account")

	// ErrInvalidVariant is returned when initialization parameters describe
	// an unusable variant (e.g. a zero repeat frequency).
	ErrInvalidVariant = errors.New("invalid pre-authorization variant parameters")
)
