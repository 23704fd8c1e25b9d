package ledger

import (
	"encoding/json"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// SeedMint declares an asset to register before any accounts are created.
type SeedMint struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
}

// SeedTokenAccount declares a token account and its opening balance.
type SeedTokenAccount struct {
	Address string `json:"address"`
	Owner   string `json:"owner"`
	Mint    string `json:"mint"`
	Balance uint64 `json:"balance"`
}

// Seed is the JSON document an in-memory ledger is populated from at process
// start. Long-running deployments back the ledger with real mint and account
// state; the seed file stands in for that state when the ledger lives in
// process memory.
type Seed struct {
	Mints         []SeedMint         `json:"mints"`
	TokenAccounts []SeedTokenAccount `json:"token_accounts"`
}

// ParseSeed decodes and validates a seed document.
func ParseSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return nil, errors.Wrap(err, "failed to decode ledger seed")
	}

	for i, mint := range seed.Mints {
		if !common.IsHexAddress(mint.Address) {
			return nil, errors.Errorf("mint %d: invalid address %q", i, mint.Address)
		}
	}
	for i, account := range seed.TokenAccounts {
		if !common.IsHexAddress(account.Address) {
			return nil, errors.Errorf("token account %d: invalid address %q", i, account.Address)
		}
		if !common.IsHexAddress(account.Owner) {
			return nil, errors.Errorf("token account %d: invalid owner %q", i, account.Owner)
		}
		if !common.IsHexAddress(account.Mint) {
			return nil, errors.Errorf("token account %d: invalid mint %q", i, account.Mint)
		}
	}
	return &seed, nil
}

// AccountAddresses returns the addresses of every seeded token account.
func (s *Seed) AccountAddresses() []common.Address {
	addresses := make([]common.Address, 0, len(s.TokenAccounts))
	for _, account := range s.TokenAccounts {
		addresses = append(addresses, common.HexToAddress(account.Address))
	}
	return addresses
}

// ApplySeed registers the seed's mints and token accounts on the ledger.
func (l *MemoryLedger) ApplySeed(seed *Seed) error {
	for _, mint := range seed.Mints {
		l.CreateMint(common.HexToAddress(mint.Address), mint.Decimals)
	}
	for _, account := range seed.TokenAccounts {
		err := l.CreateTokenAccount(
			common.HexToAddress(account.Address),
			common.HexToAddress(account.Owner),
			common.HexToAddress(account.Mint),
			account.Balance,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to seed token account %s", account.Address)
		}
	}
	return nil
}
