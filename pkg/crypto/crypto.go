// Package crypto wraps NaCl box encryption behind the keypair types used by
// the relayer handshake: 32-byte curve25519 keys, a fresh nonce per message
// and a self-describing wire form so ciphertexts survive text transports.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// Keypair is a curve25519 keypair. Ephemeral keypairs are generated per
// encrypted input and per decryption session; the relayer's keypair is
// long-lived.
type Keypair struct {
	Public  [32]byte
	Private [32]byte
}

// Generate fills the keypair with fresh random keys.
func (k *Keypair) Generate() error {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	k.Public = *pub
	k.Private = *priv
	return nil
}

func (k *Keypair) PublicString() string  { return hex.EncodeToString(k.Public[:]) }
func (k *Keypair) PrivateString() string { return hex.EncodeToString(k.Private[:]) }

// ParseKey parses a 64-character hex key into its 32-byte form.
func ParseKey(s string) ([32]byte, error) {
	var key [32]byte
	if len(s) != 64 {
		return key, errors.New("key is not 64 characters long")
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return key, err
	}
	copy(key[:], raw)
	return key, nil
}

// Encrypter seals messages from this keypair to a peer's public key.
type Encrypter struct {
	keypair    *Keypair
	peerPublic [32]byte
}

// Encrypter returns an encrypter targeting peerPublic.
func (k *Keypair) Encrypter(peerPublic [32]byte) *Encrypter {
	return &Encrypter{keypair: k, peerPublic: peerPublic}
}

// Encrypt seals message to the peer. A message that is already in boxed wire
// form is returned unchanged, so encrypting twice is harmless.
func (e *Encrypter) Encrypt(message []byte) ([]byte, error) {
	if IsBoxedMessage(message) {
		return message, nil
	}
	nonce, err := genNonce()
	if err != nil {
		return nil, err
	}
	sealed := box.Seal(nil, message, &nonce, &e.peerPublic, &e.keypair.Private)
	bm := boxedMessage{
		SchemaVersion:   1,
		EncrypterPublic: e.keypair.Public,
		Nonce:           nonce,
		Box:             sealed,
	}
	return bm.Dump(), nil
}

// Decrypter opens messages sealed to this keypair's public key.
type Decrypter struct {
	keypair *Keypair
}

func (k *Keypair) Decrypter() *Decrypter {
	return &Decrypter{keypair: k}
}

// Decrypt opens a boxed wire message. The encrypter's public key rides along
// in the message itself, so only the recipient's private key is needed.
func (d *Decrypter) Decrypt(message []byte) ([]byte, error) {
	var bm boxedMessage
	if err := bm.Load(message); err != nil {
		return nil, err
	}
	plain, ok := box.Open(nil, bm.Box, &bm.Nonce, &bm.EncrypterPublic, &d.keypair.Private)
	if !ok {
		return nil, fmt.Errorf("could not decrypt message")
	}
	return plain, nil
}

func genNonce() ([24]byte, error) {
	var nonce [24]byte
	_, err := rand.Read(nonce[:])
	return nonce, err
}
