package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x00112233445566778899aabbccddeeff00112233")
	assert.NoError(t, err)
	assert.Equal(t, "0x00112233445566778899aabbccddeeff00112233", addr.Hex())

	_, err = ParseAddress("00112233445566778899aabbccddeeff00112233")
	assert.Error(t, err)

	_, err = ParseAddress("0x0011")
	assert.Error(t, err)

	_, err = ParseAddress("0xzz112233445566778899aabbccddeeff00112233")
	assert.Error(t, err)
}

func TestHandleRoundtrip(t *testing.T) {
	var h Handle
	for i := range h {
		h[i] = byte(i)
	}
	parsed, err := ParseHandle(h.Hex())
	assert.NoError(t, err)
	assert.Equal(t, h, parsed)
	assert.False(t, parsed.IsZero())
	assert.True(t, Handle{}.IsZero())
}

func TestGateEncoding(t *testing.T) {
	contract, _ := ParseAddress("0x00112233445566778899aabbccddeeff00112233")

	t.Run("any-nft carries no parameter", func(t *testing.T) {
		data, err := MarshalGate(AnyNFT{Contract: contract})
		assert.NoError(t, err)
		assert.False(t, strings.Contains(string(data), "tokenId"))
		assert.False(t, strings.Contains(string(data), "minimum"))

		gate, err := UnmarshalGate(data)
		assert.NoError(t, err)
		assert.Equal(t, GateAnyNFT, gate.Kind())
		assert.Equal(t, contract, gate.GateContract())
	})

	t.Run("specific-nft round trips a large token id", func(t *testing.T) {
		tokenID, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
		data, err := MarshalGate(SpecificNFT{Contract: contract, TokenID: tokenID})
		assert.NoError(t, err)

		gate, err := UnmarshalGate(data)
		assert.NoError(t, err)
		specific, ok := gate.(SpecificNFT)
		assert.True(t, ok)
		assert.Equal(t, 0, specific.TokenID.Cmp(tokenID))
	})

	t.Run("min-balance round trips", func(t *testing.T) {
		data, err := MarshalGate(MinBalance{Contract: contract, Minimum: big.NewInt(100)})
		assert.NoError(t, err)

		gate, err := UnmarshalGate(data)
		assert.NoError(t, err)
		minBal, ok := gate.(MinBalance)
		assert.True(t, ok)
		assert.Equal(t, int64(100), minBal.Minimum.Int64())
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		_, err := UnmarshalGate([]byte(`{"kind":"password","contract":"0x00112233445566778899aabbccddeeff00112233"}`))
		assert.Error(t, err)
	})

	t.Run("missing parameters are rejected", func(t *testing.T) {
		_, err := MarshalGate(SpecificNFT{Contract: contract})
		assert.Error(t, err)
		_, err = MarshalGate(MinBalance{Contract: contract})
		assert.Error(t, err)
	})
}

func TestSecretJSON(t *testing.T) {
	contract, _ := ParseAddress("0x00112233445566778899aabbccddeeff00112233")
	creator, _ := ParseAddress("0xffeeddccbbaa99887766554433221100ffeeddcc")
	var value, data Handle
	value[0] = 1
	data[0] = 2

	secret := Secret{
		ID:          7,
		Title:       "launch codes",
		ValueHandle: value,
		DataHandle:  data,
		Gate:        MinBalance{Contract: contract, Minimum: big.NewInt(42)},
		Creator:     creator,
		Exists:      true,
	}

	encoded, err := json.Marshal(secret)
	assert.NoError(t, err)

	var decoded Secret
	assert.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, secret.ID, decoded.ID)
	assert.Equal(t, secret.Title, decoded.Title)
	assert.Equal(t, secret.ValueHandle, decoded.ValueHandle)
	assert.Equal(t, secret.DataHandle, decoded.DataHandle)
	assert.Equal(t, GateMinBalance, decoded.Gate.Kind())
	assert.Equal(t, secret.Creator, decoded.Creator)

	info := secret.Info()
	infoJSON, err := json.Marshal(info)
	assert.NoError(t, err)
	assert.False(t, strings.Contains(string(infoJSON), "Handle"))
	assert.False(t, strings.Contains(string(infoJSON), value.Hex()))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, nil, Classify(nil))
	assert.Equal(t, ErrGateRequirementNotMet, Classify(fmt.Errorf("wrap: %w", ErrGateRequirementNotMet)))
	assert.Equal(t, ErrGateRequirementNotMet, Classify(errors.New("server error: 403: gate requirement not met")))
	assert.Equal(t, ErrSignatureRejected, Classify(errors.New("user rejected the request")))
	assert.Equal(t, ErrDecryptionService, Classify(errors.New("connection refused")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short"))
	long := strings.Repeat("x", 80)
	assert.Equal(t, MaxErrorMessageLen+3, len(Truncate(long)))
}
