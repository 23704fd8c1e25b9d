package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// Mint describes an asset on the token ledger.
type Mint struct {
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
}

// TokenAccount is the ledger's view of an asset-holding account. At most one
// delegate may be approved at a time; approving a new one replaces the old.
type TokenAccount struct {
	Address common.Address `json:"address"`
	Owner   common.Address `json:"owner"`
	Mint    common.Address `json:"mint"`
	Balance uint64         `json:"balance"`

	// Delegate, when non-nil, may move up to DelegatedAmount out of this
	// account.
	Delegate        *common.Address `json:"delegate,omitempty"`
	DelegatedAmount uint64          `json:"delegated_amount"`
}
