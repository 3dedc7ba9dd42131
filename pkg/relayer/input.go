package relayer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/velsand/tokengate/pkg/crypto"
	"github.com/velsand/tokengate/pkg/model"
)

// Registrar submits encrypted input bundles for registration. Implemented by
// Relayer directly and by the HTTP client against a remote service.
type Registrar interface {
	RegisterInput(ctx context.Context, contract, signer model.Address, ciphertexts [][]byte) ([]model.Handle, []byte, error)
}

// InputBuilder collects values client-side and seals them to the relayer's
// public key. Fields come out of Encrypt in the order they were added, so a
// caller adding value then length gets handles back in that order.
type InputBuilder struct {
	contract   model.Address
	signer     model.Address
	relayerKey [32]byte
	fields     [][]byte
	err        error
}

func NewInputBuilder(relayerKey [32]byte, contract, signer model.Address) *InputBuilder {
	return &InputBuilder{
		contract:   contract,
		signer:     signer,
		relayerKey: relayerKey,
	}
}

// Add256 appends a 256-bit field.
func (b *InputBuilder) Add256(v *big.Int) *InputBuilder {
	if b.err != nil {
		return b
	}
	if v.Sign() < 0 || v.BitLen() > 256 {
		b.err = fmt.Errorf("value does not fit in 256 bits")
		return b
	}
	field := make([]byte, 32)
	v.FillBytes(field)
	b.fields = append(b.fields, field)
	return b
}

// Add64 appends a 64-bit field.
func (b *InputBuilder) Add64(v uint64) *InputBuilder {
	if b.err != nil {
		return b
	}
	field := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		field[i] = byte(v)
		v >>= 8
	}
	b.fields = append(b.fields, field)
	return b
}

// Encrypt seals every field under a fresh ephemeral keypair and registers the
// bundle, returning one handle per field plus the input proof that binds the
// bundle to the contract and signer given at construction.
func (b *InputBuilder) Encrypt(ctx context.Context, reg Registrar) ([]model.Handle, []byte, error) {
	if b.err != nil {
		return nil, nil, b.err
	}
	if len(b.fields) == 0 {
		return nil, nil, fmt.Errorf("no fields added")
	}
	var kp crypto.Keypair
	if err := kp.Generate(); err != nil {
		return nil, nil, err
	}
	enc := kp.Encrypter(b.relayerKey)
	ciphertexts := make([][]byte, 0, len(b.fields))
	for _, field := range b.fields {
		sealed, err := enc.Encrypt(field)
		if err != nil {
			return nil, nil, err
		}
		ciphertexts = append(ciphertexts, sealed)
	}
	return reg.RegisterInput(ctx, b.contract, b.signer, ciphertexts)
}
