// Package identity verifies that a claimed signer actually authorized a
// request. It is the signature collaborator: the engine and services never
// inspect signatures themselves.
package identity

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// ErrSignatureMismatch is returned when the recovered signer does not match
// the claimed address.
var ErrSignatureMismatch = errors.New("signature does not match claimed signer")

// Verifier checks that signature over message was produced by claimed.
type Verifier interface {
	VerifySigner(message []byte, signature []byte, claimed common.Address) error
}

// PersonalSignVerifier verifies EIP-191 personal-sign signatures by
// recovering the secp256k1 public key.
type PersonalSignVerifier struct{}

// NewPersonalSignVerifier creates a PersonalSignVerifier.
func NewPersonalSignVerifier() *PersonalSignVerifier {
	return &PersonalSignVerifier{}
}

// VerifySigner recovers the signer from a 65-byte [R || S || V] signature
// over the personal-sign digest of message and compares it to claimed.
func (v *PersonalSignVerifier) VerifySigner(message []byte, signature []byte, claimed common.Address) error {
	if len(signature) != crypto.SignatureLength {
		return errors.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(signature))
	}

	// Wallets emit V as 27/28; crypto.SigToPub expects 0/1.
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	digest := personalSignDigest(message)
	publicKey, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return errors.Wrap(err, "failed to recover signer")
	}

	if crypto.PubkeyToAddress(*publicKey) != claimed {
		return ErrSignatureMismatch
	}
	return nil
}

func personalSignDigest(message []byte) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}

// InsecureVerifier accepts every signature. Local development only.
type InsecureVerifier struct{}

// NewInsecureVerifier creates an InsecureVerifier.
func NewInsecureVerifier() *InsecureVerifier {
	return &InsecureVerifier{}
}

// VerifySigner always succeeds.
func (v *InsecureVerifier) VerifySigner(message []byte, signature []byte, claimed common.Address) error {
	return nil
}
