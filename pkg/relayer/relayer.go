// Package relayer implements the confidential-value service: it holds the
// only key that can open registered ciphertexts, vouches for input bundles
// with HMAC proofs, tracks per-handle access lists, and re-seals values to
// session keys presented with a signed authorization.
package relayer

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/velsand/tokengate/pkg/crypto"
	"github.com/velsand/tokengate/pkg/model"
	"github.com/velsand/tokengate/pkg/wallet"
)

// Decryptor releases re-sealed plaintexts against a signed authorization.
// Implemented by Relayer directly and by the HTTP client.
type Decryptor interface {
	UserDecrypt(ctx context.Context, req UserDecryptRequest) (map[model.Handle][]byte, error)
}

// HandleContractPair names one ciphertext and the registry it belongs to.
type HandleContractPair struct {
	Handle   model.Handle  `json:"handle"`
	Contract model.Address `json:"contract"`
}

// UserDecryptRequest carries everything the relayer needs to verify a
// decryption: the handles wanted, who is asking, the signed authorization
// and the wallet key that signed it. Released values are sealed to the
// authorization's ephemeral public key, never returned in the clear.
type UserDecryptRequest struct {
	Pairs         []HandleContractPair `json:"pairs"`
	UserAddress   model.Address        `json:"userAddress"`
	UserPublicKey string               `json:"userPublicKey"`
	Auth          DecryptionAuth       `json:"auth"`
	Signature     []byte               `json:"signature"`
}

type storedInput struct {
	contract   model.Address
	signer     model.Address
	ciphertext []byte
}

// Relayer is the in-process service. All state is held in memory: handles
// are single-use capabilities minted at registration time, and losing them
// on restart is equivalent to the original service rotating its key.
type Relayer struct {
	keypair crypto.Keypair
	secret  []byte // HMAC key for input proofs
	logger  *slog.Logger
	clock   func() time.Time

	mu     sync.RWMutex
	inputs map[model.Handle]storedInput
	acl    map[model.Handle]map[model.Address]bool
}

func New(logger *slog.Logger) (*Relayer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Relayer{
		secret: make([]byte, 32),
		logger: logger,
		clock:  time.Now,
		inputs: make(map[model.Handle]storedInput),
		acl:    make(map[model.Handle]map[model.Address]bool),
	}
	if err := r.keypair.Generate(); err != nil {
		return nil, err
	}
	if _, err := rand.Read(r.secret); err != nil {
		return nil, err
	}
	return r, nil
}

// PublicKey is the key input builders seal to.
func (r *Relayer) PublicKey() [32]byte {
	return r.keypair.Public
}

func (r *Relayer) ServiceKey(ctx context.Context) ([32]byte, error) {
	return r.keypair.Public, nil
}

// RegisterInput stores a bundle of sealed ciphertexts and returns one handle
// per ciphertext plus a proof binding the bundle to contract and signer.
// Ciphertexts the relayer cannot open are rejected up front so a bad bundle
// never mints handles.
func (r *Relayer) RegisterInput(ctx context.Context, contract, signer model.Address, ciphertexts [][]byte) ([]model.Handle, []byte, error) {
	if len(ciphertexts) == 0 {
		return nil, nil, fmt.Errorf("%w: empty input bundle", model.ErrInvalidCiphertext)
	}
	dec := r.keypair.Decrypter()
	for _, ct := range ciphertexts {
		if _, err := dec.Decrypt(ct); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", model.ErrInvalidCiphertext, err)
		}
	}

	handles := make([]model.Handle, len(ciphertexts))
	r.mu.Lock()
	for i, ct := range ciphertexts {
		var h model.Handle
		if _, err := rand.Read(h[:]); err != nil {
			r.mu.Unlock()
			return nil, nil, err
		}
		handles[i] = h
		r.inputs[h] = storedInput{contract: contract, signer: signer, ciphertext: ct}
	}
	r.mu.Unlock()

	proof := r.proof(contract, signer, handles)
	r.logger.Debug("registered input bundle", "contract", contract.Short(), "signer", signer.Short(), "handles", len(handles))
	return handles, proof, nil
}

// VerifyInput checks that proof covers exactly these handles for this
// contract and signer. Used by the registry before accepting a secret.
func (r *Relayer) VerifyInput(ctx context.Context, contract, signer model.Address, handles []model.Handle, proof []byte) error {
	want := r.proof(contract, signer, handles)
	if !hmac.Equal(want, proof) {
		return fmt.Errorf("%w: input proof does not match", model.ErrInvalidCiphertext)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range handles {
		in, ok := r.inputs[h]
		if !ok {
			return fmt.Errorf("%w: unknown handle", model.ErrInvalidCiphertext)
		}
		if in.contract != contract || in.signer != signer {
			return fmt.Errorf("%w: handle bound to a different scope", model.ErrInvalidCiphertext)
		}
	}
	return nil
}

func (r *Relayer) proof(contract, signer model.Address, handles []model.Handle) []byte {
	mac := hmac.New(sha256.New, r.secret)
	mac.Write(contract[:])
	mac.Write(signer[:])
	for _, h := range handles {
		mac.Write(h[:])
	}
	return mac.Sum(nil)
}

// Allow grants addr the right to request decryption of handle.
func (r *Relayer) Allow(ctx context.Context, handle model.Handle, addr model.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inputs[handle]; !ok {
		return fmt.Errorf("%w: unknown handle", model.ErrInvalidCiphertext)
	}
	grants, ok := r.acl[handle]
	if !ok {
		grants = make(map[model.Address]bool)
		r.acl[handle] = grants
	}
	grants[addr] = true
	return nil
}

// Allowed reports whether addr may decrypt handle.
func (r *Relayer) Allowed(handle model.Handle, addr model.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.acl[handle][addr]
}

// UserDecrypt verifies the signed authorization and, for each requested
// handle the caller is allowed to read, opens the stored ciphertext and
// re-seals the plaintext to the authorization's ephemeral public key.
func (r *Relayer) UserDecrypt(ctx context.Context, req UserDecryptRequest) (map[model.Handle][]byte, error) {
	if len(req.Pairs) == 0 {
		return nil, fmt.Errorf("%w: no handles requested", model.ErrDecryptionService)
	}

	digest, err := req.Auth.Digest()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDecryptionService, err)
	}
	if err := wallet.VerifyDigest(req.UserPublicKey, req.UserAddress, digest, req.Signature); err != nil {
		return nil, fmt.Errorf("%w: authorization signature invalid", model.ErrDecryptionService)
	}

	start, end, err := req.Auth.Window()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDecryptionService, err)
	}
	now := r.clock()
	if now.Before(start) || now.After(end) {
		return nil, fmt.Errorf("%w: authorization window is not active", model.ErrDecryptionService)
	}

	sessionKey, err := crypto.ParseKey(req.Auth.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: bad session public key", model.ErrDecryptionService)
	}
	enc := r.keypair.Encrypter(sessionKey)
	dec := r.keypair.Decrypter()

	out := make(map[model.Handle][]byte, len(req.Pairs))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, pair := range req.Pairs {
		if !req.Auth.Covers(pair.Contract) {
			return nil, fmt.Errorf("%w: contract %s is outside the authorization scope", model.ErrDecryptionService, pair.Contract.Short())
		}
		in, ok := r.inputs[pair.Handle]
		if !ok || in.contract != pair.Contract {
			return nil, fmt.Errorf("%w: unknown handle", model.ErrDecryptionService)
		}
		if !r.acl[pair.Handle][req.UserAddress] {
			return nil, fmt.Errorf("%w: %s is not allowed to decrypt this handle", model.ErrAccessDenied, req.UserAddress.Short())
		}
		plain, err := dec.Decrypt(in.ciphertext)
		if err != nil {
			return nil, fmt.Errorf("%w: stored ciphertext is unreadable", model.ErrDecryptionService)
		}
		resealed, err := enc.Encrypt(plain)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrDecryptionService, err)
		}
		out[pair.Handle] = resealed
	}
	r.logger.Debug("released decryption", "user", req.UserAddress.Short(), "handles", len(out))
	return out, nil
}

var _ Service = (*Relayer)(nil)
