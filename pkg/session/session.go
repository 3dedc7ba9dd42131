// Package session drives the client-side decryption flow: request access if
// needed, wait for the grant to land, then authorize and decrypt. A session
// is single-use; every run mints a fresh box keypair that is thrown away
// once the plaintext is decoded.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/velsand/tokengate"
	"github.com/velsand/tokengate/pkg/crypto"
	"github.com/velsand/tokengate/pkg/model"
	"github.com/velsand/tokengate/pkg/relayer"
	"github.com/velsand/tokengate/pkg/wallet"
)

// State names the phase a session is in. Terminal states are Done and
// Failed; there is no retry transition.
type State string

const (
	StateIdle                State = "idle"
	StateRequestingAccess    State = "requesting-access"
	StateWaitingConfirmation State = "waiting-confirmation"
	StateDecrypting          State = "decrypting"
	StateDone                State = "done"
	StateFailed              State = "failed"
)

// RegistryClient is the registry surface a session consumes. The
// implementation carries the caller's identity; these calls are made as the
// session's wallet.
type RegistryClient interface {
	RegistryAddress(ctx context.Context) (model.Address, error)
	HasAccess(ctx context.Context, id model.SecretID) (bool, error)
	RequestPermanentAccess(ctx context.Context, id model.SecretID) error
	GetSecretHandles(ctx context.Context, id model.SecretID) (value, data model.Handle, err error)
}

// Options tune the confirmation wait. Zero values get defaults.
type Options struct {
	// PollInterval and PollAttempts bound the HasAccess polling loop after
	// an access request is submitted.
	PollInterval time.Duration
	PollAttempts int
	// SettleDelay is the final fallback wait before the last access check.
	SettleDelay time.Duration
	// DurationDays bounds the decryption authorization window.
	DurationDays int
	// OnStatus is invoked on every state change, from the session's
	// goroutine. Nil is fine.
	OnStatus func(State)
	Logger   *slog.Logger
}

func (o *Options) defaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	if o.PollAttempts <= 0 {
		o.PollAttempts = 10
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = 3 * time.Second
	}
	if o.DurationDays <= 0 {
		o.DurationDays = 1
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Session decrypts one secret for one wallet. Use New for every attempt.
type Session struct {
	client RegistryClient
	dec    relayer.Decryptor
	signer wallet.Signer
	opts   Options

	mu    sync.Mutex
	state State
	err   error
}

func New(client RegistryClient, dec relayer.Decryptor, signer wallet.Signer, opts Options) *Session {
	opts.defaults()
	return &Session{
		client: client,
		dec:    dec,
		signer: signer,
		opts:   opts,
		state:  StateIdle,
	}
}

// State returns the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the classified failure once the session is Failed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) transition(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	if s.opts.OnStatus != nil {
		s.opts.OnStatus(state)
	}
}

func (s *Session) fail(err error) error {
	classified := model.Classify(err)
	s.mu.Lock()
	s.state = StateFailed
	s.err = classified
	s.mu.Unlock()
	if s.opts.OnStatus != nil {
		s.opts.OnStatus(StateFailed)
	}
	return classified
}

// Decrypt runs the whole flow and returns the plaintext. It may be called
// once; a session that already ran returns an error immediately.
func (s *Session) Decrypt(ctx context.Context, id model.SecretID) (string, error) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return "", errors.New("session already used")
	}
	s.state = StateRequestingAccess
	s.mu.Unlock()
	if s.opts.OnStatus != nil {
		s.opts.OnStatus(StateRequestingAccess)
	}

	ok, err := s.client.HasAccess(ctx, id)
	if err != nil {
		return "", s.fail(err)
	}
	if !ok {
		if err := s.client.RequestPermanentAccess(ctx, id); err != nil {
			return "", s.fail(err)
		}
		if err := s.awaitConfirmation(ctx, id); err != nil {
			return "", s.fail(err)
		}
	}

	s.transition(StateDecrypting)
	plaintext, err := s.decrypt(ctx, id)
	if err != nil {
		return "", s.fail(err)
	}
	s.transition(StateDone)
	return plaintext, nil
}

// awaitConfirmation polls until the grant is visible. A request that was
// accepted can still take a moment to land, so after the polling budget is
// spent one settle delay buys a final check.
func (s *Session) awaitConfirmation(ctx context.Context, id model.SecretID) error {
	s.transition(StateWaitingConfirmation)
	for attempt := 0; attempt < s.opts.PollAttempts; attempt++ {
		ok, err := s.client.HasAccess(ctx, id)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if err := sleep(ctx, s.opts.PollInterval); err != nil {
			return err
		}
	}
	if err := sleep(ctx, s.opts.SettleDelay); err != nil {
		return err
	}
	ok, err := s.client.HasAccess(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: access grant did not confirm", model.ErrAccessDenied)
	}
	return nil
}

func (s *Session) decrypt(ctx context.Context, id model.SecretID) (string, error) {
	registryAddr, err := s.client.RegistryAddress(ctx)
	if err != nil {
		return "", err
	}
	valueHandle, dataHandle, err := s.client.GetSecretHandles(ctx, id)
	if err != nil {
		return "", err
	}

	var session crypto.Keypair
	if err := session.Generate(); err != nil {
		return "", err
	}
	auth := relayer.NewAuth(session.PublicString(), []model.Address{registryAddr}, s.opts.DurationDays)
	digest, err := auth.Digest()
	if err != nil {
		return "", err
	}
	sig, err := s.signer.SignDigest(digest)
	if err != nil {
		// A declined signature is a cancellation, not a service fault.
		return "", err
	}

	sealed, err := s.dec.UserDecrypt(ctx, relayer.UserDecryptRequest{
		Pairs: []relayer.HandleContractPair{
			{Handle: valueHandle, Contract: registryAddr},
			{Handle: dataHandle, Contract: registryAddr},
		},
		UserAddress:   s.signer.Address(),
		UserPublicKey: s.signer.PublicKeyHex(),
		Auth:          auth,
		Signature:     sig,
	})
	if err != nil {
		return "", err
	}

	opener := session.Decrypter()
	dataBox, ok := sealed[dataHandle]
	if !ok {
		return "", fmt.Errorf("%w: content handle missing from response", model.ErrDecryptionService)
	}
	dataPlain, err := opener.Decrypt(dataBox)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrDecryptionService, err)
	}
	text := tokengate.DecodeSecretValue(new(big.Int).SetBytes(dataPlain))

	// Cross-check the length field when it came back cleanly; a mismatch
	// means the pair was not created together.
	if lengthBox, ok := sealed[valueHandle]; ok {
		if lengthPlain, err := opener.Decrypt(lengthBox); err == nil {
			declared := new(big.Int).SetBytes(lengthPlain).Uint64()
			if declared > tokengate.MaxSecretTextLen {
				return "", fmt.Errorf("%w: declared length %d is out of range", model.ErrDecryptionService, declared)
			}
			if uint64(len(text)) != declared {
				s.opts.Logger.Warn("decoded length differs from declared length",
					"decoded", len(text), "declared", declared)
			}
		}
	}
	return text, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
