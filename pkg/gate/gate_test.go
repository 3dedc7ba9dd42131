package gate_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/velsand/tokengate/pkg/gate"
	"github.com/velsand/tokengate/pkg/model"
	"github.com/velsand/tokengate/pkg/token"
)

func addr(last byte) model.Address {
	var a model.Address
	a[19] = last
	return a
}

func TestMeetsAnyNFT(t *testing.T) {
	ledger := token.NewStatic()
	nft := addr(0x10)
	alice, bob := addr(1), addr(2)
	ledger.Register(nft, "MockNFT").Mint(alice, big.NewInt(1))

	ev := gate.NewEvaluator(ledger)
	g := model.AnyNFT{Contract: nft}

	ok, err := ev.Meets(context.Background(), g, alice)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = ev.Meets(context.Background(), g, bob)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestMeetsSpecificNFT(t *testing.T) {
	ledger := token.NewStatic()
	nft := addr(0x10)
	alice, bob := addr(1), addr(2)
	tok := ledger.Register(nft, "MockNFT")
	tok.Mint(alice, big.NewInt(1))
	tok.Mint(bob, big.NewInt(2))

	ev := gate.NewEvaluator(ledger)
	g := model.SpecificNFT{Contract: nft, TokenID: big.NewInt(1)}

	ok, err := ev.Meets(context.Background(), g, alice)
	assert.NoError(t, err)
	assert.True(t, ok)

	// Owning a different token on the same contract is not enough.
	ok, err = ev.Meets(context.Background(), g, bob)
	assert.NoError(t, err)
	assert.False(t, ok)

	t.Run("nonexistent token evaluates false, not an error", func(t *testing.T) {
		missing := model.SpecificNFT{Contract: nft, TokenID: big.NewInt(99)}
		ok, err := ev.Meets(context.Background(), missing, alice)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ownership follows a transfer", func(t *testing.T) {
		assert.NoError(t, tok.Transfer(big.NewInt(1), bob))
		ok, err := ev.Meets(context.Background(), g, alice)
		assert.NoError(t, err)
		assert.False(t, ok)
		ok, err = ev.Meets(context.Background(), g, bob)
		assert.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestMeetsMinBalance(t *testing.T) {
	ledger := token.NewStatic()
	erc20 := addr(0x20)
	holder := addr(3)
	tok := ledger.Register(erc20, "MockToken")

	ev := gate.NewEvaluator(ledger)
	g := model.MinBalance{Contract: erc20, Minimum: big.NewInt(100)}

	check := func(balance int64) bool {
		tok.SetBalance(holder, big.NewInt(balance))
		ok, err := ev.Meets(context.Background(), g, holder)
		assert.NoError(t, err)
		return ok
	}

	assert.False(t, check(0))
	assert.False(t, check(99)) // one below the minimum
	assert.True(t, check(100)) // boundary is inclusive
	assert.True(t, check(200))
}

func TestMeetsUnknownContract(t *testing.T) {
	ev := gate.NewEvaluator(token.NewStatic())
	_, err := ev.Meets(context.Background(), model.AnyNFT{Contract: addr(0x30)}, addr(1))
	assert.Error(t, err)
}
