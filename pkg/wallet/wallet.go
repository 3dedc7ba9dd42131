// Package wallet provides the caller-side signing identity: an ed25519 key
// derived from a bip39 mnemonic, with the 20-byte address derived from the
// public key. The wallet signs request digests and decryption
// authorizations; it never sees ciphertext.
package wallet

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/tyler-smith/go-bip39"
	"github.com/velsand/tokengate/pkg/model"
)

// ErrRejected is returned by a Signer when the holder declines to sign.
// The interactive wallet never declines on its own; UIs wrap it.
var ErrRejected = errors.New("signature rejected by wallet")

// Signer is the narrow signing surface consumed by the session and the API
// client. Implementations must be safe for concurrent use.
type Signer interface {
	Address() model.Address
	PublicKeyHex() string
	SignDigest(digest [32]byte) ([]byte, error)
}

// Wallet holds a deterministic ed25519 keypair recovered from a mnemonic.
type Wallet struct {
	priv     ed25519.PrivateKey
	mnemonic string
}

// Generate creates a wallet with a fresh 12-word mnemonic.
func Generate() (*Wallet, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return nil, err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, err
	}
	return FromMnemonic(mnemonic)
}

// FromMnemonic deterministically derives the wallet key from a bip39
// mnemonic, so the same phrase always recovers the same address.
func FromMnemonic(mnemonic string) (*Wallet, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid mnemonic phrase")
	}
	seed := bip39.NewSeed(mnemonic, "")
	return &Wallet{
		priv:     ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize]),
		mnemonic: mnemonic,
	}, nil
}

// Mnemonic returns the recovery phrase. Callers should show it once and
// never log it.
func (w *Wallet) Mnemonic() string { return w.mnemonic }

func (w *Wallet) PublicKey() ed25519.PublicKey {
	return w.priv.Public().(ed25519.PublicKey)
}

func (w *Wallet) PublicKeyHex() string {
	return hex.EncodeToString(w.PublicKey())
}

// Address derives the wallet's address from its public key.
func (w *Wallet) Address() model.Address {
	return AddressOf(w.PublicKey())
}

// SignDigest signs a 32-byte digest. The digest is expected to already be
// domain-separated by the caller.
func (w *Wallet) SignDigest(digest [32]byte) ([]byte, error) {
	return ed25519.Sign(w.priv, digest[:]), nil
}

var _ Signer = (*Wallet)(nil)

// AddressOf maps a public key to its address: the last 20 bytes of the
// key's SHA-256 hash.
func AddressOf(pub ed25519.PublicKey) model.Address {
	sum := sha256.Sum256(pub)
	var addr model.Address
	copy(addr[:], sum[len(sum)-len(addr):])
	return addr
}

// VerifyDigest checks that sig is a valid signature over digest by the hex
// public key, and that the key derives the claimed address. Both checks are
// needed: the signature alone proves key possession, the derivation ties the
// key to the identity the caller asserted.
func VerifyDigest(pubHex string, claimed model.Address, digest [32]byte, sig []byte) error {
	raw, err := hex.DecodeString(pubHex)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid public key")
	}
	pub := ed25519.PublicKey(raw)
	if AddressOf(pub) != claimed {
		return fmt.Errorf("public key does not derive address %s", claimed)
	}
	if !ed25519.Verify(pub, digest[:], sig) {
		return fmt.Errorf("signature verification failed")
	}
	return nil
}
