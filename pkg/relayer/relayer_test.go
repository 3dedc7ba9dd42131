package relayer_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/velsand/tokengate/pkg/crypto"
	"github.com/velsand/tokengate/pkg/model"
	"github.com/velsand/tokengate/pkg/relayer"
	"github.com/velsand/tokengate/pkg/wallet"
)

const testMnemonic = "legal winner thank year wave sausage worth useful legal winner thank yellow"

func addr(last byte) model.Address {
	var a model.Address
	a[19] = last
	return a
}

func registerPair(t *testing.T, r *relayer.Relayer, contract, signer model.Address, value *big.Int, length uint64) ([]model.Handle, []byte) {
	t.Helper()
	handles, proof, err := relayer.NewInputBuilder(r.PublicKey(), contract, signer).
		Add256(value).
		Add64(length).
		Encrypt(context.Background(), r)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(handles))
	return handles, proof
}

func TestRegisterAndVerifyInput(t *testing.T) {
	r, err := relayer.New(nil)
	assert.NoError(t, err)

	contract, signer := addr(0xaa), addr(1)
	handles, proof := registerPair(t, r, contract, signer, big.NewInt(42), 2)

	assert.NoError(t, r.VerifyInput(context.Background(), contract, signer, handles, proof))

	t.Run("wrong signer fails", func(t *testing.T) {
		err := r.VerifyInput(context.Background(), contract, addr(2), handles, proof)
		assert.IsError(t, err, model.ErrInvalidCiphertext)
	})

	t.Run("wrong contract fails", func(t *testing.T) {
		err := r.VerifyInput(context.Background(), addr(0xbb), signer, handles, proof)
		assert.IsError(t, err, model.ErrInvalidCiphertext)
	})

	t.Run("reordered handles fail", func(t *testing.T) {
		swapped := []model.Handle{handles[1], handles[0]}
		err := r.VerifyInput(context.Background(), contract, signer, swapped, proof)
		assert.IsError(t, err, model.ErrInvalidCiphertext)
	})
}

func TestRegisterRejectsUnreadableCiphertext(t *testing.T) {
	r, err := relayer.New(nil)
	assert.NoError(t, err)

	// Sealed to some other key, not the relayer's.
	var stranger crypto.Keypair
	assert.NoError(t, stranger.Generate())
	sealed, err := stranger.Encrypter(stranger.Public).Encrypt([]byte("oops"))
	assert.NoError(t, err)

	_, _, err = r.RegisterInput(context.Background(), addr(0xaa), addr(1), [][]byte{sealed})
	assert.IsError(t, err, model.ErrInvalidCiphertext)
}

func decryptAs(t *testing.T, r *relayer.Relayer, w *wallet.Wallet, contract model.Address, handles []model.Handle) (map[model.Handle][]byte, crypto.Keypair, error) {
	t.Helper()
	var session crypto.Keypair
	assert.NoError(t, session.Generate())

	auth := relayer.NewAuth(session.PublicString(), []model.Address{contract}, 1)
	digest, err := auth.Digest()
	assert.NoError(t, err)
	sig, err := w.SignDigest(digest)
	assert.NoError(t, err)

	pairs := make([]relayer.HandleContractPair, 0, len(handles))
	for _, h := range handles {
		pairs = append(pairs, relayer.HandleContractPair{Handle: h, Contract: contract})
	}
	out, err := r.UserDecrypt(context.Background(), relayer.UserDecryptRequest{
		Pairs:         pairs,
		UserAddress:   w.Address(),
		UserPublicKey: w.PublicKeyHex(),
		Auth:          auth,
		Signature:     sig,
	})
	return out, session, err
}

func TestUserDecryptRoundTrip(t *testing.T) {
	r, err := relayer.New(nil)
	assert.NoError(t, err)
	w, err := wallet.FromMnemonic(testMnemonic)
	assert.NoError(t, err)

	contract := addr(0xaa)
	value := new(big.Int).SetBytes([]byte("hi"))
	handles, _ := registerPair(t, r, contract, w.Address(), value, 2)
	for _, h := range handles {
		assert.NoError(t, r.Allow(context.Background(), h, w.Address()))
	}

	out, session, err := decryptAs(t, r, w, contract, handles)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(out))

	dec := session.Decrypter()
	plainValue, err := dec.Decrypt(out[handles[0]])
	assert.NoError(t, err)
	assert.Equal(t, 0, new(big.Int).SetBytes(plainValue).Cmp(value))

	plainLen, err := dec.Decrypt(out[handles[1]])
	assert.NoError(t, err)
	assert.Equal(t, int64(2), new(big.Int).SetBytes(plainLen).Int64())
}

func TestUserDecryptDeniedWithoutGrant(t *testing.T) {
	r, err := relayer.New(nil)
	assert.NoError(t, err)
	creator, err := wallet.FromMnemonic(testMnemonic)
	assert.NoError(t, err)
	stranger, err := wallet.Generate()
	assert.NoError(t, err)

	contract := addr(0xaa)
	handles, _ := registerPair(t, r, contract, creator.Address(), big.NewInt(7), 1)
	for _, h := range handles {
		assert.NoError(t, r.Allow(context.Background(), h, creator.Address()))
	}

	_, _, err = decryptAs(t, r, stranger, contract, handles)
	assert.IsError(t, err, model.ErrAccessDenied)
}

func TestUserDecryptRejectsTamperedAuth(t *testing.T) {
	r, err := relayer.New(nil)
	assert.NoError(t, err)
	w, err := wallet.FromMnemonic(testMnemonic)
	assert.NoError(t, err)

	contract := addr(0xaa)
	handles, _ := registerPair(t, r, contract, w.Address(), big.NewInt(7), 1)
	assert.NoError(t, r.Allow(context.Background(), handles[0], w.Address()))

	var session crypto.Keypair
	assert.NoError(t, session.Generate())
	auth := relayer.NewAuth(session.PublicString(), []model.Address{contract}, 1)
	digest, err := auth.Digest()
	assert.NoError(t, err)
	sig, err := w.SignDigest(digest)
	assert.NoError(t, err)

	// Signature covers the original window; stretching it must fail.
	auth.DurationDays = "365"
	_, err = r.UserDecrypt(context.Background(), relayer.UserDecryptRequest{
		Pairs:         []relayer.HandleContractPair{{Handle: handles[0], Contract: contract}},
		UserAddress:   w.Address(),
		UserPublicKey: w.PublicKeyHex(),
		Auth:          auth,
		Signature:     sig,
	})
	assert.IsError(t, err, model.ErrDecryptionService)
}

func TestUserDecryptRejectsExpiredWindow(t *testing.T) {
	r, err := relayer.New(nil)
	assert.NoError(t, err)
	w, err := wallet.FromMnemonic(testMnemonic)
	assert.NoError(t, err)

	contract := addr(0xaa)
	handles, _ := registerPair(t, r, contract, w.Address(), big.NewInt(7), 1)
	assert.NoError(t, r.Allow(context.Background(), handles[0], w.Address()))

	var session crypto.Keypair
	assert.NoError(t, session.Generate())
	auth := relayer.DecryptionAuth{
		PublicKey:         session.PublicString(),
		ContractAddresses: []model.Address{contract},
		StartTimestamp:    "1000", // 1970, long expired
		DurationDays:      "1",
	}
	digest, err := auth.Digest()
	assert.NoError(t, err)
	sig, err := w.SignDigest(digest)
	assert.NoError(t, err)

	_, err = r.UserDecrypt(context.Background(), relayer.UserDecryptRequest{
		Pairs:         []relayer.HandleContractPair{{Handle: handles[0], Contract: contract}},
		UserAddress:   w.Address(),
		UserPublicKey: w.PublicKeyHex(),
		Auth:          auth,
		Signature:     sig,
	})
	assert.IsError(t, err, model.ErrDecryptionService)
}

func TestUserDecryptRejectsOutOfScopeContract(t *testing.T) {
	r, err := relayer.New(nil)
	assert.NoError(t, err)
	w, err := wallet.FromMnemonic(testMnemonic)
	assert.NoError(t, err)

	registered, other := addr(0xaa), addr(0xbb)
	handles, _ := registerPair(t, r, registered, w.Address(), big.NewInt(7), 1)
	assert.NoError(t, r.Allow(context.Background(), handles[0], w.Address()))

	// Authorization scoped to a different contract than the handle's.
	_, _, err = decryptAs(t, r, w, other, handles[:1])
	assert.IsError(t, err, model.ErrDecryptionService)
}

func TestAuthWindow(t *testing.T) {
	auth := relayer.NewAuth("ab", nil, 1)
	start, end, err := auth.Window()
	assert.NoError(t, err)
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	_, _, err = relayer.DecryptionAuth{StartTimestamp: "x", DurationDays: "1"}.Window()
	assert.Error(t, err)
	_, _, err = relayer.DecryptionAuth{StartTimestamp: "0", DurationDays: "0"}.Window()
	assert.Error(t, err)
}
