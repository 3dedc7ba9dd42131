package registry

import (
	"context"

	"github.com/velsand/tokengate/pkg/model"
)

// Store persists secrets and access grants. Implementations live in
// server/stores; the registry only needs this surface.
//
// ListSecrets must return secrets ordered by ascending ID, and CountSecrets
// must equal the number of stored secrets, because IDs are assigned densely
// from the count.
type Store interface {
	PutSecret(ctx context.Context, s model.Secret) error
	GetSecret(ctx context.Context, id model.SecretID) (model.Secret, error)
	ListSecrets(ctx context.Context) ([]model.Secret, error)
	CountSecrets(ctx context.Context) (uint64, error)

	PutGrant(ctx context.Context, id model.SecretID, addr model.Address) error
	HasGrant(ctx context.Context, id model.SecretID, addr model.Address) (bool, error)
}
