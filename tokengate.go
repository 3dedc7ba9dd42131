// Package tokengate implements a token-gated confidential secret registry.
//
// A creator publishes a secret whose plaintext is packed into a single
// 256-bit field, sealed to the relayer before it ever leaves the client, and
// referenced on the registry only by opaque ciphertext handles. Readers earn
// a permanent access grant by satisfying the secret's gate (NFT ownership or
// token balance on an external contract) and recover the plaintext through a
// signed, time-bounded decryption authorization.
package tokengate

import (
	"fmt"
	"math/big"
	"unicode/utf8"
)

// MaxSecretTextLen is the largest plaintext, in bytes, that fits into one
// 256-bit encrypted field. One byte of headroom is kept so the packed value
// never overflows the field.
const MaxSecretTextLen = 31

// EncodeSecretText packs text into a big-endian integer suitable for a
// 256-bit encrypted field. Callers must truncate to MaxSecretTextLen bytes
// before encrypting; anything longer is rejected here rather than silently
// cut, since the registry never sees plaintext and cannot re-validate.
func EncodeSecretText(text string) (*big.Int, error) {
	if len(text) > MaxSecretTextLen {
		return nil, fmt.Errorf("secret text is %d bytes, maximum is %d", len(text), MaxSecretTextLen)
	}
	return new(big.Int).SetBytes([]byte(text)), nil
}

// DecodeSecretValue reverses EncodeSecretText on a decrypted field value.
// The integer is read as a big-endian byte string with zero bytes stripped
// and decoded as UTF-8. An all-zero value decodes to the empty string. If
// the surviving bytes are not valid UTF-8 the decimal form of the value is
// returned so the caller still sees something inspectable.
func DecodeSecretValue(v *big.Int) string {
	if v == nil || v.Sign() == 0 {
		return ""
	}
	raw := v.Bytes()
	text := make([]byte, 0, len(raw))
	for _, b := range raw {
		if b != 0 {
			text = append(text, b)
		}
	}
	if len(text) == 0 {
		return ""
	}
	if !utf8.Valid(text) {
		return v.String()
	}
	return string(text)
}
