package commands

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velsand/tokengate/pkg/model"
)

const contractHex = "0x0000000000000000000000000000000000000010"

func TestBuildGate(t *testing.T) {
	t.Run("any-nft", func(t *testing.T) {
		g, err := buildGate("any-nft", contractHex, "", "")
		require.NoError(t, err)
		assert.Equal(t, model.GateAnyNFT, g.Kind())
	})

	t.Run("specific-nft", func(t *testing.T) {
		g, err := buildGate("specific-nft", contractHex, "7", "")
		require.NoError(t, err)
		assert.Equal(t, model.SpecificNFT{Contract: g.GateContract(), TokenID: big.NewInt(7)}, g)
	})

	t.Run("min-balance", func(t *testing.T) {
		g, err := buildGate("min-balance", contractHex, "", "1000")
		require.NoError(t, err)
		assert.Equal(t, model.GateMinBalance, g.Kind())
	})

	t.Run("rejects stray parameters", func(t *testing.T) {
		_, err := buildGate("any-nft", contractHex, "7", "")
		assert.Error(t, err)
		_, err = buildGate("specific-nft", contractHex, "7", "1000")
		assert.Error(t, err)
		_, err = buildGate("min-balance", contractHex, "7", "1000")
		assert.Error(t, err)
	})

	t.Run("rejects missing parameters", func(t *testing.T) {
		_, err := buildGate("specific-nft", contractHex, "", "")
		assert.Error(t, err)
		_, err = buildGate("min-balance", contractHex, "", "")
		assert.Error(t, err)
	})

	t.Run("rejects bad address", func(t *testing.T) {
		_, err := buildGate("any-nft", "not-an-address", "", "")
		assert.Error(t, err)
	})
}
