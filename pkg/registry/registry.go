// Package registry implements the secret registry: serialized creation with
// dense IDs, creator-only gate updates, and the permanent access-grant state
// machine. The registry never sees plaintext; it stores ciphertext handles
// and tells the relayer who may use them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/velsand/tokengate/pkg/gate"
	"github.com/velsand/tokengate/pkg/model"
)

// InputVerifier checks that an input proof covers the given handles for the
// given scope. Implemented by the relayer.
type InputVerifier interface {
	VerifyInput(ctx context.Context, contract, signer model.Address, handles []model.Handle, proof []byte) error
}

// ACL records which addresses may decrypt which handles. Implemented by the
// relayer.
type ACL interface {
	Allow(ctx context.Context, handle model.Handle, addr model.Address) error
}

// CreateParams is the input to CreateSecret. Handles and proof come from an
// InputBuilder run against this registry's address.
type CreateParams struct {
	Title       string       `json:"title"`
	ValueHandle model.Handle `json:"valueHandle"`
	DataHandle  model.Handle `json:"dataHandle"`
	Gate        model.Gate   `json:"-"`
	InputProof  []byte       `json:"inputProof"`
}

// Registry owns the secret table. Mutations are serialized under one lock so
// IDs stay dense and gate swaps are atomic; reads go straight to the store.
type Registry struct {
	addr     model.Address
	store    Store
	verifier InputVerifier
	acl      ACL
	eval     *gate.Evaluator
	events   *Broadcaster
	logger   *slog.Logger

	mu sync.Mutex
}

func New(addr model.Address, store Store, verifier InputVerifier, acl ACL, eval *gate.Evaluator, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		addr:     addr,
		store:    store,
		verifier: verifier,
		acl:      acl,
		eval:     eval,
		events:   NewBroadcaster(),
		logger:   logger,
	}
}

// Address is the identity input proofs and decryption authorizations are
// scoped to.
func (r *Registry) Address() model.Address { return r.addr }

// Events exposes the mutation feed.
func (r *Registry) Events() *Broadcaster { return r.events }

// CreateSecret verifies the input proof, assigns the next dense ID, stores
// the secret and allows the creator to decrypt its handles. The creator's
// access is implicit in the record, not a grant row.
func (r *Registry) CreateSecret(ctx context.Context, creator model.Address, p CreateParams) (model.SecretID, error) {
	if p.Title == "" {
		return 0, errors.New("title must not be empty")
	}
	if p.Gate == nil {
		return 0, errors.New("gate must be set")
	}
	handles := []model.Handle{p.ValueHandle, p.DataHandle}
	if err := r.verifier.VerifyInput(ctx, r.addr, creator, handles, p.InputProof); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	count, err := r.store.CountSecrets(ctx)
	if err != nil {
		return 0, err
	}
	id := model.SecretID(count)
	secret := model.Secret{
		ID:          id,
		Title:       p.Title,
		ValueHandle: p.ValueHandle,
		DataHandle:  p.DataHandle,
		Gate:        p.Gate,
		Creator:     creator,
		Exists:      true,
	}
	if err := r.store.PutSecret(ctx, secret); err != nil {
		return 0, err
	}
	for _, h := range handles {
		if err := r.acl.Allow(ctx, h, creator); err != nil {
			return 0, fmt.Errorf("failed to allow creator on handle: %w", err)
		}
	}

	r.logger.Info("secret created", "id", id, "creator", creator.Short(), "gate", p.Gate.Kind())
	r.events.publish(Event{
		Type:     EventSecretCreated,
		SecretID: id,
		Actor:    creator,
		Title:    p.Title,
		Gate:     p.Gate.Kind(),
		At:       time.Now(),
	})
	return id, nil
}

// UpdateGate swaps the gate of an existing secret. Only the creator may do
// this, and existing grants survive: tightening a gate never locks out an
// address that already holds access.
func (r *Registry) UpdateGate(ctx context.Context, caller model.Address, id model.SecretID, g model.Gate) error {
	if g == nil {
		return errors.New("gate must be set")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	secret, err := r.store.GetSecret(ctx, id)
	if err != nil {
		return err
	}
	if secret.Creator != caller {
		return model.ErrNotCreator
	}
	secret.Gate = g
	if err := r.store.PutSecret(ctx, secret); err != nil {
		return err
	}

	r.logger.Info("gate updated", "id", id, "gate", g.Kind())
	r.events.publish(Event{
		Type:     EventSecretUpdated,
		SecretID: id,
		Actor:    caller,
		Gate:     g.Kind(),
		At:       time.Now(),
	})
	return nil
}

// RequestPermanentAccess grants caller permanent access if the secret's gate
// is currently met. The grant is one-way: it is never revoked, not even by a
// later gate change or token transfer. Calling again once granted is a no-op
// that skips the gate check entirely.
func (r *Registry) RequestPermanentAccess(ctx context.Context, caller model.Address, id model.SecretID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	secret, err := r.store.GetSecret(ctx, id)
	if err != nil {
		return err
	}
	if secret.Creator == caller {
		return nil
	}
	granted, err := r.store.HasGrant(ctx, id, caller)
	if err != nil {
		return err
	}
	if granted {
		return nil
	}

	ok, err := r.eval.Meets(ctx, secret.Gate, caller)
	if err != nil {
		return fmt.Errorf("gate evaluation failed: %w", err)
	}
	if !ok {
		return model.ErrGateRequirementNotMet
	}

	if err := r.store.PutGrant(ctx, id, caller); err != nil {
		return err
	}
	for _, h := range []model.Handle{secret.ValueHandle, secret.DataHandle} {
		if err := r.acl.Allow(ctx, h, caller); err != nil {
			return fmt.Errorf("failed to allow grantee on handle: %w", err)
		}
	}

	r.logger.Info("access granted", "id", id, "grantee", caller.Short())
	r.events.publish(Event{
		Type:     EventAccessGranted,
		SecretID: id,
		Actor:    caller,
		At:       time.Now(),
	})
	return nil
}

// HasAccess reports whether addr can read the secret: creators always can,
// everyone else needs a grant.
func (r *Registry) HasAccess(ctx context.Context, id model.SecretID, addr model.Address) (bool, error) {
	secret, err := r.store.GetSecret(ctx, id)
	if err != nil {
		return false, err
	}
	if secret.Creator == addr {
		return true, nil
	}
	return r.store.HasGrant(ctx, id, addr)
}

// PermanentAccess exposes the raw grant table. Unlike HasAccess it does not
// treat the creator specially.
func (r *Registry) PermanentAccess(ctx context.Context, id model.SecretID, addr model.Address) (bool, error) {
	if _, err := r.store.GetSecret(ctx, id); err != nil {
		return false, err
	}
	return r.store.HasGrant(ctx, id, addr)
}

// MeetsGateRequirement evaluates the secret's current gate for addr without
// touching grants.
func (r *Registry) MeetsGateRequirement(ctx context.Context, id model.SecretID, addr model.Address) (bool, error) {
	secret, err := r.store.GetSecret(ctx, id)
	if err != nil {
		return false, err
	}
	return r.eval.Meets(ctx, secret.Gate, addr)
}

// GetSecretInfo returns the public projection of one secret.
func (r *Registry) GetSecretInfo(ctx context.Context, id model.SecretID) (model.SecretInfo, error) {
	secret, err := r.store.GetSecret(ctx, id)
	if err != nil {
		return model.SecretInfo{}, err
	}
	return secret.Info(), nil
}

// GetAllSecrets returns public projections of every secret, ordered by ID.
func (r *Registry) GetAllSecrets(ctx context.Context) ([]model.SecretInfo, error) {
	secrets, err := r.store.ListSecrets(ctx)
	if err != nil {
		return nil, err
	}
	infos := make([]model.SecretInfo, 0, len(secrets))
	for _, s := range secrets {
		infos = append(infos, s.Info())
	}
	return infos, nil
}

// GetSecretsCount returns the number of secrets ever created.
func (r *Registry) GetSecretsCount(ctx context.Context) (uint64, error) {
	return r.store.CountSecrets(ctx)
}

// GetSecretHandles returns the ciphertext handles, exactly as stored at
// creation. Callers without access get ErrAccessDenied and learn nothing
// about the handles.
func (r *Registry) GetSecretHandles(ctx context.Context, caller model.Address, id model.SecretID) (value, data model.Handle, err error) {
	secret, err := r.store.GetSecret(ctx, id)
	if err != nil {
		return value, data, err
	}
	ok, err := r.HasAccess(ctx, id, caller)
	if err != nil {
		return value, data, err
	}
	if !ok {
		return value, data, fmt.Errorf("%w: request access first", model.ErrAccessDenied)
	}
	return secret.ValueHandle, secret.DataHandle, nil
}
