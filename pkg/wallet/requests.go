package wallet

import (
	"crypto/sha256"
	"strconv"
	"time"
)

// requestDomain separates API request digests from decryption
// authorizations, which are signed by the same key.
const requestDomain = "tokengate.SignedRequest.v1"

// MaxRequestSkew bounds how stale a signed request timestamp may be.
const MaxRequestSkew = 5 * time.Minute

// RequestDigest builds the digest signed for an authenticated API request.
// It binds the method, path, a unix-seconds timestamp and the body, so a
// captured signature cannot be replayed against another route or payload.
func RequestDigest(method, path string, timestamp int64, body []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(requestDomain))
	h.Write([]byte{0})
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(timestamp, 10)))
	h.Write([]byte{0})
	bodySum := sha256.Sum256(body)
	h.Write(bodySum[:])
	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest
}
