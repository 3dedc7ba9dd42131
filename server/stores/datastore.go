package stores

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/datastore"

	"github.com/velsand/tokengate/pkg/model"
	"github.com/velsand/tokengate/pkg/registry"
)

const (
	secretKind = "Secret"
	grantKind  = "AccessGrant"
)

// DataStore implements registry.Store using Google Cloud Datastore. Secrets
// are stored as JSON blobs because the gate is an interface value that
// datastore cannot flatten into entity properties.
type DataStore struct {
	client *datastore.Client
}

func NewDataStore(ctx context.Context, client *datastore.Client) (*DataStore, error) {
	return &DataStore{client: client}, nil
}

// Close closes the underlying datastore client.
func (s *DataStore) Close() error {
	return s.client.Close()
}

type secretEntity struct {
	ID   int64  `datastore:"id"`
	Blob []byte `datastore:"blob,noindex"`
}

type grantEntity struct {
	SecretID int64  `datastore:"secret_id"`
	Address  string `datastore:"address"`
}

func (s *DataStore) secretDSKey(id model.SecretID) *datastore.Key {
	return datastore.IDKey(secretKind, int64(id)+1, nil) // ID keys cannot be 0
}

func (s *DataStore) grantDSKey(id model.SecretID, addr model.Address) *datastore.Key {
	composite := fmt.Sprintf("%d:%s", id, addr.Hex())
	return datastore.NameKey(grantKind, composite, s.secretDSKey(id))
}

func (s *DataStore) PutSecret(ctx context.Context, secret model.Secret) error {
	blob, err := secret.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = s.client.Put(ctx, s.secretDSKey(secret.ID), &secretEntity{
		ID:   int64(secret.ID),
		Blob: blob,
	})
	return err
}

func (s *DataStore) GetSecret(ctx context.Context, id model.SecretID) (model.Secret, error) {
	var entity secretEntity
	err := s.client.Get(ctx, s.secretDSKey(id), &entity)
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return model.Secret{}, fmt.Errorf("%w: %d", model.ErrSecretNotFound, id)
	}
	if err != nil {
		return model.Secret{}, err
	}
	var secret model.Secret
	if err := secret.UnmarshalJSON(entity.Blob); err != nil {
		return model.Secret{}, err
	}
	return secret, nil
}

func (s *DataStore) ListSecrets(ctx context.Context) ([]model.Secret, error) {
	query := datastore.NewQuery(secretKind).Order("id")
	var entities []secretEntity
	if _, err := s.client.GetAll(ctx, query, &entities); err != nil {
		return nil, err
	}
	secrets := make([]model.Secret, 0, len(entities))
	for _, entity := range entities {
		var secret model.Secret
		if err := secret.UnmarshalJSON(entity.Blob); err != nil {
			return nil, err
		}
		secrets = append(secrets, secret)
	}
	return secrets, nil
}

func (s *DataStore) CountSecrets(ctx context.Context) (uint64, error) {
	query := datastore.NewQuery(secretKind).KeysOnly()
	keys, err := s.client.GetAll(ctx, query, nil)
	if err != nil {
		return 0, err
	}
	return uint64(len(keys)), nil
}

func (s *DataStore) PutGrant(ctx context.Context, id model.SecretID, addr model.Address) error {
	_, err := s.client.Put(ctx, s.grantDSKey(id, addr), &grantEntity{
		SecretID: int64(id),
		Address:  addr.Hex(),
	})
	return err
}

func (s *DataStore) HasGrant(ctx context.Context, id model.SecretID, addr model.Address) (bool, error) {
	var entity grantEntity
	err := s.client.Get(ctx, s.grantDSKey(id, addr), &entity)
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

var _ registry.Store = (*DataStore)(nil)
