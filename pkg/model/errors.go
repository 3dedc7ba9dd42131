package model

import (
	"errors"
	"strings"
)

// The registry's error taxonomy. Every failure surfaced to a caller wraps
// exactly one of these so the caller can decide whether a retry makes sense.
var (
	// ErrInvalidCiphertext: the input proof did not validate against the
	// submitted handles and the contract/signer binding. Fatal to the call;
	// the client must re-encrypt from scratch.
	ErrInvalidCiphertext = errors.New("invalid ciphertext or input proof")

	// ErrNotCreator: a gate update was attempted by someone other than the
	// secret's creator.
	ErrNotCreator = errors.New("caller is not the secret's creator")

	// ErrGateRequirementNotMet: the gate evaluated false for the candidate.
	ErrGateRequirementNotMet = errors.New("gate requirement not met")

	// ErrAccessDenied: a handle read was attempted without a grant.
	ErrAccessDenied = errors.New("access denied")

	// ErrSignatureRejected: the wallet declined to sign. Presented as a
	// user-initiated cancellation, not a fault.
	ErrSignatureRejected = errors.New("signature rejected by wallet")

	// ErrDecryptionService: the decryption service failed or was unreachable.
	ErrDecryptionService = errors.New("decryption service error")

	ErrSecretNotFound = errors.New("secret not found")
)

// MaxErrorMessageLen bounds user-visible diagnostics so raw service
// internals never leak to the presentation layer.
const MaxErrorMessageLen = 50

// Truncate bounds a message to MaxErrorMessageLen characters.
func Truncate(msg string) string {
	if len(msg) <= MaxErrorMessageLen {
		return msg
	}
	return msg[:MaxErrorMessageLen] + "..."
}

// Classify maps an arbitrary error onto the taxonomy. Errors that already
// wrap a sentinel pass through; otherwise the message text is matched, which
// covers errors that crossed a process boundary and lost their identity.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		ErrInvalidCiphertext,
		ErrNotCreator,
		ErrGateRequirementNotMet,
		ErrAccessDenied,
		ErrSignatureRejected,
		ErrDecryptionService,
		ErrSecretNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "gate requirement not met"):
		return ErrGateRequirementNotMet
	case strings.Contains(msg, "not the secret's creator"):
		return ErrNotCreator
	case strings.Contains(msg, "invalid ciphertext"):
		return ErrInvalidCiphertext
	case strings.Contains(msg, "access denied"):
		return ErrAccessDenied
	case strings.Contains(msg, "secret not found"):
		return ErrSecretNotFound
	case strings.Contains(msg, "rejected by wallet"),
		strings.Contains(msg, "user rejected"),
		strings.Contains(msg, "user denied"):
		return ErrSignatureRejected
	default:
		return ErrDecryptionService
	}
}
