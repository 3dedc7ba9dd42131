package relayer

import (
	"context"
	"sync"

	"github.com/velsand/tokengate/pkg/model"
)

// Service bundles the relayer roles a client needs: submitting inputs,
// requesting decryptions, and learning the key to seal inputs to.
type Service interface {
	Registrar
	Decryptor
	ServiceKey(ctx context.Context) ([32]byte, error)
}

// Lazy defers dialing the relayer until first use and performs the dial at
// most once. Constructing a client is free, and a failed dial is surfaced
// to every caller rather than silently retried.
type Lazy struct {
	dial func(ctx context.Context) (Service, error)

	once sync.Once
	svc  Service
	err  error
}

func NewLazy(dial func(ctx context.Context) (Service, error)) *Lazy {
	return &Lazy{dial: dial}
}

func (l *Lazy) get(ctx context.Context) (Service, error) {
	l.once.Do(func() {
		l.svc, l.err = l.dial(ctx)
	})
	return l.svc, l.err
}

func (l *Lazy) ServiceKey(ctx context.Context) ([32]byte, error) {
	svc, err := l.get(ctx)
	if err != nil {
		return [32]byte{}, err
	}
	return svc.ServiceKey(ctx)
}

func (l *Lazy) RegisterInput(ctx context.Context, contract, signer model.Address, ciphertexts [][]byte) ([]model.Handle, []byte, error) {
	svc, err := l.get(ctx)
	if err != nil {
		return nil, nil, err
	}
	return svc.RegisterInput(ctx, contract, signer, ciphertexts)
}

func (l *Lazy) UserDecrypt(ctx context.Context, req UserDecryptRequest) (map[model.Handle][]byte, error) {
	svc, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return svc.UserDecrypt(ctx, req)
}

var _ Service = (*Lazy)(nil)
