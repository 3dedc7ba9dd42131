// Package token provides TokenContract implementations: a JSON-RPC client
// for real chain endpoints and an in-memory static ledger for tests and
// local demos.
package token

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/velsand/tokengate/pkg/gate"
	"github.com/velsand/tokengate/pkg/model"
)

// Named is implemented by contracts that expose a display name. The CLI
// shows it next to the gate; absence is not an error.
type Named interface {
	Name(ctx context.Context) (string, error)
}

// Static is an in-memory token ledger doubling as its own resolver. Every
// registered contract supports both the balance and ownership views, like a
// mixed ERC-20/ERC-721 mock.
type Static struct {
	mu        sync.RWMutex
	contracts map[model.Address]*StaticToken
}

func NewStatic() *Static {
	return &Static{contracts: make(map[model.Address]*StaticToken)}
}

// Register adds a contract to the ledger and returns it for seeding.
func (s *Static) Register(contract model.Address, name string) *StaticToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := &StaticToken{
		name:     name,
		balances: make(map[model.Address]*big.Int),
		owners:   make(map[string]model.Address),
	}
	s.contracts[contract] = tok
	return tok
}

func (s *Static) Resolve(ctx context.Context, contract model.Address) (gate.TokenContract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.contracts[contract]
	if !ok {
		return nil, fmt.Errorf("no contract registered at %s", contract)
	}
	return tok, nil
}

var _ gate.Resolver = (*Static)(nil)

// StaticToken is one contract's state.
type StaticToken struct {
	mu       sync.RWMutex
	name     string
	balances map[model.Address]*big.Int
	owners   map[string]model.Address
}

// Mint assigns tokenID to owner and bumps the owner's balance by one.
func (t *StaticToken) Mint(owner model.Address, tokenID *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.owners[tokenID.String()] = owner
	t.addBalance(owner, big.NewInt(1))
}

// SetBalance overwrites owner's fungible balance.
func (t *StaticToken) SetBalance(owner model.Address, balance *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[owner] = new(big.Int).Set(balance)
}

// Transfer moves tokenID to the new owner, adjusting both balances.
func (t *StaticToken) Transfer(tokenID *big.Int, to model.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	from, ok := t.owners[tokenID.String()]
	if !ok {
		return fmt.Errorf("token %s does not exist", tokenID)
	}
	t.owners[tokenID.String()] = to
	t.addBalance(from, big.NewInt(-1))
	t.addBalance(to, big.NewInt(1))
	return nil
}

func (t *StaticToken) addBalance(owner model.Address, delta *big.Int) {
	current, ok := t.balances[owner]
	if !ok {
		current = new(big.Int)
	}
	t.balances[owner] = new(big.Int).Add(current, delta)
}

func (t *StaticToken) BalanceOf(ctx context.Context, addr model.Address) (*big.Int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	balance, ok := t.balances[addr]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(balance), nil
}

func (t *StaticToken) OwnerOf(ctx context.Context, tokenID *big.Int) (model.Address, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	owner, ok := t.owners[tokenID.String()]
	if !ok {
		return model.Address{}, fmt.Errorf("token %s does not exist", tokenID)
	}
	return owner, nil
}

func (t *StaticToken) Name(ctx context.Context) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.name, nil
}

var _ gate.TokenContract = (*StaticToken)(nil)
var _ Named = (*StaticToken)(nil)
