package wallet

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestMnemonicDerivation(t *testing.T) {
	w, err := Generate()
	assert.NoError(t, err)
	assert.NotZero(t, w.Mnemonic())

	recovered, err := FromMnemonic(w.Mnemonic())
	assert.NoError(t, err)
	assert.Equal(t, w.Address(), recovered.Address())
	assert.Equal(t, w.PublicKeyHex(), recovered.PublicKeyHex())

	_, err = FromMnemonic("not a valid phrase at all")
	assert.Error(t, err)
}

func TestSignAndVerify(t *testing.T) {
	w, err := Generate()
	assert.NoError(t, err)

	digest := [32]byte{1, 2, 3}
	sig, err := w.SignDigest(digest)
	assert.NoError(t, err)

	assert.NoError(t, VerifyDigest(w.PublicKeyHex(), w.Address(), digest, sig))

	t.Run("wrong digest fails", func(t *testing.T) {
		other := [32]byte{9, 9, 9}
		assert.Error(t, VerifyDigest(w.PublicKeyHex(), w.Address(), other, sig))
	})

	t.Run("address mismatch fails", func(t *testing.T) {
		stranger, err := Generate()
		assert.NoError(t, err)
		assert.Error(t, VerifyDigest(w.PublicKeyHex(), stranger.Address(), digest, sig))
	})

	t.Run("garbage public key fails", func(t *testing.T) {
		assert.Error(t, VerifyDigest("zz", w.Address(), digest, sig))
	})
}

func TestFingerprint(t *testing.T) {
	w, err := Generate()
	assert.NoError(t, err)

	fp := Fingerprint(w.PublicKeyHex())
	assert.Equal(t, fp, Fingerprint(w.PublicKeyHex()))
	assert.NotZero(t, fp)

	words := FingerprintWords(w.PublicKeyHex())
	assert.Equal(t, 6, len(splitWords(words)))
}

func splitWords(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '-' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}

func TestKeyringFileFallback(t *testing.T) {
	dir := t.TempDir()
	kr := &Keyring{Dir: dir, DisableOS: true}

	_, err := kr.Load()
	assert.IsError(t, err, ErrNoWallet)

	w, err := Generate()
	assert.NoError(t, err)
	assert.NoError(t, kr.Save(w.Mnemonic()))

	loaded, err := kr.Load()
	assert.NoError(t, err)
	assert.Equal(t, w.Address(), loaded.Address())

	assert.NoError(t, kr.Delete())
	_, err = kr.Load()
	assert.IsError(t, err, ErrNoWallet)
}
