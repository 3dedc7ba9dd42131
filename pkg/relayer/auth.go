package relayer

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/velsand/tokengate/pkg/model"
)

// authDomain separates decryption-authorization digests from every other
// signed payload. Changing it invalidates all outstanding authorizations.
const authDomain = "tokengate.UserDecryptRequestVerification.v1"

// DecryptionAuth is the typed object a holder signs to authorize the
// release of plaintext: it binds a single-use public key, the registry
// contracts the authorization covers, and a bounded validity window.
// Timestamps and durations are strings on the wire, mirroring the typed-data
// convention of wallet signers.
type DecryptionAuth struct {
	PublicKey         string          `json:"publicKey"`
	ContractAddresses []model.Address `json:"contractAddresses"`
	StartTimestamp    string          `json:"startTimestamp"`
	DurationDays      string          `json:"durationDays"`
}

// NewAuth builds an authorization starting now.
func NewAuth(ephemeralPublicKey string, contracts []model.Address, durationDays int) DecryptionAuth {
	return DecryptionAuth{
		PublicKey:         ephemeralPublicKey,
		ContractAddresses: contracts,
		StartTimestamp:    strconv.FormatInt(time.Now().Unix(), 10),
		DurationDays:      strconv.Itoa(durationDays),
	}
}

// Digest returns the domain-separated digest the wallet signs. JSON with
// sorted struct fields is canonical enough here because the struct is fixed
// and marshalled by this package on both sides.
func (a DecryptionAuth) Digest() ([32]byte, error) {
	var digest [32]byte
	payload, err := json.Marshal(a)
	if err != nil {
		return digest, err
	}
	h := sha256.New()
	h.Write([]byte(authDomain))
	h.Write([]byte{0})
	h.Write(payload)
	copy(digest[:], h.Sum(nil))
	return digest, nil
}

// Window parses the validity window.
func (a DecryptionAuth) Window() (start, end time.Time, err error) {
	startUnix, err := strconv.ParseInt(a.StartTimestamp, 10, 64)
	if err != nil {
		return start, end, fmt.Errorf("invalid start timestamp %q", a.StartTimestamp)
	}
	days, err := strconv.Atoi(a.DurationDays)
	if err != nil || days <= 0 {
		return start, end, fmt.Errorf("invalid duration %q", a.DurationDays)
	}
	start = time.Unix(startUnix, 0)
	return start, start.Add(time.Duration(days) * 24 * time.Hour), nil
}

// Covers reports whether the authorization is scoped to the contract.
func (a DecryptionAuth) Covers(contract model.Address) bool {
	for _, c := range a.ContractAddresses {
		if c == contract {
			return true
		}
	}
	return false
}
