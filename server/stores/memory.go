// Package stores provides the registry.Store implementations: in-memory for
// tests and development, bbolt for single-node deployments and Google Cloud
// Datastore for hosted ones.
package stores

import (
	"context"
	"fmt"
	"sync"

	"github.com/velsand/tokengate/pkg/model"
	"github.com/velsand/tokengate/pkg/registry"
)

// Memory implements registry.Store in-memory (for testing/dev).
type Memory struct {
	mu      sync.RWMutex
	secrets []model.Secret
	grants  map[string]bool
}

func NewMemory() *Memory {
	return &Memory{grants: make(map[string]bool)}
}

func grantKey(id model.SecretID, addr model.Address) string {
	return fmt.Sprintf("%d/%s", id, addr.Hex())
}

func (m *Memory) PutSecret(ctx context.Context, s model.Secret) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(s.ID) < len(m.secrets) {
		m.secrets[s.ID] = s
		return nil
	}
	if int(s.ID) != len(m.secrets) {
		return fmt.Errorf("secret id %d is out of sequence", s.ID)
	}
	m.secrets = append(m.secrets, s)
	return nil
}

func (m *Memory) GetSecret(ctx context.Context, id model.SecretID) (model.Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if int(id) >= len(m.secrets) {
		return model.Secret{}, fmt.Errorf("%w: %d", model.ErrSecretNotFound, id)
	}
	return m.secrets[id], nil
}

func (m *Memory) ListSecrets(ctx context.Context) ([]model.Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Secret, len(m.secrets))
	copy(out, m.secrets)
	return out, nil
}

func (m *Memory) CountSecrets(ctx context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.secrets)), nil
}

func (m *Memory) PutGrant(ctx context.Context, id model.SecretID, addr model.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[grantKey(id, addr)] = true
	return nil
}

func (m *Memory) HasGrant(ctx context.Context, id model.SecretID, addr model.Address) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.grants[grantKey(id, addr)], nil
}

var _ registry.Store = (*Memory)(nil)
