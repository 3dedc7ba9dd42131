package wallet

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// Fingerprint renders a public key hash as colon-separated groups of four
// hex characters for side-by-side comparison.
func Fingerprint(pubKeyHex string) string {
	h := sha256.Sum256([]byte(pubKeyHex))
	hexStr := hex.EncodeToString(h[:])
	var b strings.Builder
	for i := 0; i < len(hexStr); i += 4 {
		if i > 0 {
			b.WriteString(":")
		}
		end := i + 4
		if end > len(hexStr) {
			end = len(hexStr)
		}
		b.WriteString(hexStr[i:end])
	}
	return b.String()
}

// FingerprintWords returns a short six-word phrase from the fingerprint
// using the BIP-39 wordlist, easier to read aloud than hex.
func FingerprintWords(pubKeyHex string) string {
	h := sha256.Sum256([]byte(pubKeyHex))
	words := make([]string, 6)
	for i := 0; i < 6; i++ {
		// Each word consumes 11 bits (2048-word list); 6*11 = 66 bits of
		// the 256-bit hash.
		bitpos := i * 11
		idx := 0
		for j := 0; j < 11; j++ {
			bytepos := (bitpos + j) / 8
			bitoff := 7 - ((bitpos + j) % 8)
			if (h[bytepos] & (1 << bitoff)) != 0 {
				idx |= 1 << (10 - j)
			}
		}
		words[i] = bip39.GetWordList()[idx]
	}
	return strings.Join(words, "-")
}
