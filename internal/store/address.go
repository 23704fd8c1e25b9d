package store

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Record slots are content-addressed: the slot is the keccak256 of a domain
// prefix plus the record's key tuple. Creating a record whose key already
// exists therefore collides on the slot instead of duplicating.
const (
	smartDelegateSeed    = "smart-delegate"
	preAuthorizationSeed = "pre-authorization"
)

// SmartDelegateAddress derives the slot of the smart delegate scoped to a
// funding token account. The derived address doubles as the signing handle
// the token ledger is told to trust.
func SmartDelegateAddress(tokenAccount common.Address) common.Address {
	hash := crypto.Keccak256([]byte(smartDelegateSeed), tokenAccount.Bytes())
	return common.BytesToAddress(hash[12:])
}

// PreAuthorizationAddress derives the slot of the pre-authorization for a
// (token account, debit authority) pair.
func PreAuthorizationAddress(tokenAccount, debitAuthority common.Address) common.Address {
	hash := crypto.Keccak256([]byte(preAuthorizationSeed), tokenAccount.Bytes(), debitAuthority.Bytes())
	return common.BytesToAddress(hash[12:])
}
