package stores

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/velsand/tokengate/pkg/model"
	"github.com/velsand/tokengate/pkg/registry"
)

// Bolt implements registry.Store on bbolt.
// Bucket "secrets": key big-endian uint64 ID, value JSON-encoded model.Secret
// Bucket "grants": key "<id>/<address>", value 0x01
type Bolt struct {
	db *bbolt.DB
}

const (
	secretsBucket = "secrets"
	grantsBucket  = "grants"
)

func NewBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(secretsBucket)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(grantsBucket)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

func secretKey(id model.SecretID) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

func (b *Bolt) PutSecret(ctx context.Context, s model.Secret) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		val, err := json.Marshal(s)
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(secretsBucket)).Put(secretKey(s.ID), val)
	})
}

func (b *Bolt) GetSecret(ctx context.Context, id model.SecretID) (model.Secret, error) {
	var secret model.Secret
	err := b.db.View(func(tx *bbolt.Tx) error {
		val := tx.Bucket([]byte(secretsBucket)).Get(secretKey(id))
		if val == nil {
			return fmt.Errorf("%w: %d", model.ErrSecretNotFound, id)
		}
		return json.Unmarshal(val, &secret)
	})
	return secret, err
}

func (b *Bolt) ListSecrets(ctx context.Context) ([]model.Secret, error) {
	var secrets []model.Secret
	err := b.db.View(func(tx *bbolt.Tx) error {
		// Big-endian keys make the cursor walk ID order for free.
		return tx.Bucket([]byte(secretsBucket)).ForEach(func(_, val []byte) error {
			var s model.Secret
			if err := json.Unmarshal(val, &s); err != nil {
				return err
			}
			secrets = append(secrets, s)
			return nil
		})
	})
	return secrets, err
}

func (b *Bolt) CountSecrets(ctx context.Context) (uint64, error) {
	var count uint64
	err := b.db.View(func(tx *bbolt.Tx) error {
		count = uint64(tx.Bucket([]byte(secretsBucket)).Stats().KeyN)
		return nil
	})
	return count, err
}

func (b *Bolt) PutGrant(ctx context.Context, id model.SecretID, addr model.Address) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(grantsBucket)).Put([]byte(grantKey(id, addr)), []byte{1})
	})
}

func (b *Bolt) HasGrant(ctx context.Context, id model.SecretID, addr model.Address) (bool, error) {
	var granted bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		granted = tx.Bucket([]byte(grantsBucket)).Get([]byte(grantKey(id, addr))) != nil
		return nil
	})
	return granted, err
}

var _ registry.Store = (*Bolt)(nil)
