package middleware

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/velsand/tokengate/pkg/model"
	"github.com/velsand/tokengate/pkg/wallet"
)

// Signed request headers. The signature covers method, path, timestamp and
// body via wallet.RequestDigest.
const (
	HeaderAddress   = "X-Tokengate-Address"
	HeaderPublicKey = "X-Tokengate-Public-Key"
	HeaderSignature = "X-Tokengate-Signature"
	HeaderTimestamp = "X-Tokengate-Timestamp"
)

type callerKey struct{}

// Caller returns the authenticated wallet address, if the request carried a
// valid signature.
func Caller(ctx context.Context) (model.Address, bool) {
	addr, ok := ctx.Value(callerKey{}).(model.Address)
	return addr, ok
}

// WithSignatureAuth verifies signed request headers and stores the caller
// address in the request context. Requests without auth headers pass through
// unauthenticated; handlers that need a caller use RequireCaller.
func WithSignatureAuth(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(HeaderAddress) == "" {
				next.ServeHTTP(w, r)
				return
			}

			addr, err := model.ParseAddress(r.Header.Get(HeaderAddress))
			if err != nil {
				http.Error(w, "invalid address header", http.StatusUnauthorized)
				return
			}
			ts, err := strconv.ParseInt(r.Header.Get(HeaderTimestamp), 10, 64)
			if err != nil {
				http.Error(w, "invalid timestamp header", http.StatusUnauthorized)
				return
			}
			if skew := time.Since(time.Unix(ts, 0)); skew > wallet.MaxRequestSkew || skew < -wallet.MaxRequestSkew {
				http.Error(w, "request timestamp outside the accepted window", http.StatusUnauthorized)
				return
			}
			sig, err := base64.StdEncoding.DecodeString(r.Header.Get(HeaderSignature))
			if err != nil {
				http.Error(w, "invalid signature header", http.StatusUnauthorized)
				return
			}

			// The digest covers the body, so it has to be read and restored.
			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "failed to read body", http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			digest := wallet.RequestDigest(r.Method, r.URL.Path, ts, body)
			if err := wallet.VerifyDigest(r.Header.Get(HeaderPublicKey), addr, digest, sig); err != nil {
				logger.Warn("rejected request signature", "address", addr.Short(), "error", err)
				http.Error(w, "request signature invalid", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, addr)))
		})
	}
}

// RequireCaller extracts the authenticated caller or writes 401.
func RequireCaller(w http.ResponseWriter, r *http.Request) (model.Address, bool) {
	addr, ok := Caller(r.Context())
	if !ok {
		http.Error(w, "request must be signed", http.StatusUnauthorized)
	}
	return addr, ok
}
