// Package gate evaluates gate predicates against external token and NFT
// contracts.
package gate

import (
	"context"
	"fmt"
	"math/big"

	"github.com/velsand/tokengate/pkg/model"
)

// TokenContract is the only contract shape a gate may target: the standard
// balance/ownership views shared by ERC-20 and ERC-721.
type TokenContract interface {
	BalanceOf(ctx context.Context, addr model.Address) (*big.Int, error)
	OwnerOf(ctx context.Context, tokenID *big.Int) (model.Address, error)
}

// Resolver maps a gate's contract address to a live TokenContract.
type Resolver interface {
	Resolve(ctx context.Context, contract model.Address) (TokenContract, error)
}

// Evaluator answers whether a candidate address currently satisfies a gate.
// Evaluation reads external contract state at call time and is never
// cached: holdings can change between checks, and durability comes from the
// access grant, not from the evaluation.
type Evaluator struct {
	resolver Resolver
}

func NewEvaluator(resolver Resolver) *Evaluator {
	return &Evaluator{resolver: resolver}
}

// Meets reports whether addr satisfies g right now.
func (e *Evaluator) Meets(ctx context.Context, g model.Gate, addr model.Address) (bool, error) {
	contract, err := e.resolver.Resolve(ctx, g.GateContract())
	if err != nil {
		return false, fmt.Errorf("resolving gate contract %s: %w", g.GateContract(), err)
	}
	switch gate := g.(type) {
	case model.AnyNFT:
		balance, err := contract.BalanceOf(ctx, addr)
		if err != nil {
			return false, err
		}
		return balance.Sign() > 0, nil
	case model.SpecificNFT:
		owner, err := contract.OwnerOf(ctx, gate.TokenID)
		if err != nil {
			// Nonexistent or burned tokens revert on standard NFT
			// contracts; treat that as "not the owner" so the check stays
			// a pure read.
			return false, nil
		}
		return owner == addr, nil
	case model.MinBalance:
		balance, err := contract.BalanceOf(ctx, addr)
		if err != nil {
			return false, err
		}
		return balance.Cmp(gate.Minimum) >= 0, nil
	default:
		return false, fmt.Errorf("unknown gate kind %q", g.Kind())
	}
}
