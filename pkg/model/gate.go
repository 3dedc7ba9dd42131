package model

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// GateKind discriminates the gate variants on the wire.
type GateKind string

const (
	GateAnyNFT      GateKind = "any-nft"
	GateSpecificNFT GateKind = "specific-nft"
	GateMinBalance  GateKind = "min-balance"
)

// Gate is the eligibility predicate attached to a secret. It is a sealed
// sum type: a gate is exactly one of AnyNFT, SpecificNFT or MinBalance, and
// parameters that do not belong to a variant are unrepresentable.
type Gate interface {
	Kind() GateKind
	// GateContract is the external token/NFT contract the predicate reads.
	GateContract() Address
	sealedGate()
}

// AnyNFT passes when the candidate owns at least one token on Contract.
type AnyNFT struct {
	Contract Address
}

// SpecificNFT passes when the candidate is the current owner of TokenID on
// Contract.
type SpecificNFT struct {
	Contract Address
	TokenID  *big.Int
}

// MinBalance passes when the candidate's balance on Contract is at least
// Minimum (inclusive).
type MinBalance struct {
	Contract Address
	Minimum  *big.Int
}

func (g AnyNFT) Kind() GateKind        { return GateAnyNFT }
func (g AnyNFT) GateContract() Address { return g.Contract }
func (g AnyNFT) sealedGate()           {}

func (g SpecificNFT) Kind() GateKind        { return GateSpecificNFT }
func (g SpecificNFT) GateContract() Address { return g.Contract }
func (g SpecificNFT) sealedGate()           {}

func (g MinBalance) Kind() GateKind        { return GateMinBalance }
func (g MinBalance) GateContract() Address { return g.Contract }
func (g MinBalance) sealedGate()           {}

// gateWire is the tagged JSON encoding. Big integers travel as decimal
// strings so values above 2^53 survive JavaScript consumers.
type gateWire struct {
	Kind     GateKind `json:"kind"`
	Contract Address  `json:"contract"`
	TokenID  string   `json:"tokenId,omitempty"`
	Minimum  string   `json:"minimum,omitempty"`
}

func MarshalGate(g Gate) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("gate is nil")
	}
	wire := gateWire{Kind: g.Kind(), Contract: g.GateContract()}
	switch gate := g.(type) {
	case AnyNFT:
	case SpecificNFT:
		if gate.TokenID == nil {
			return nil, fmt.Errorf("specific-nft gate is missing a token id")
		}
		wire.TokenID = gate.TokenID.String()
	case MinBalance:
		if gate.Minimum == nil {
			return nil, fmt.Errorf("min-balance gate is missing a minimum")
		}
		wire.Minimum = gate.Minimum.String()
	default:
		return nil, fmt.Errorf("unknown gate kind %q", g.Kind())
	}
	return json.Marshal(wire)
}

func UnmarshalGate(data []byte) (Gate, error) {
	var wire gateWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	switch wire.Kind {
	case GateAnyNFT:
		return AnyNFT{Contract: wire.Contract}, nil
	case GateSpecificNFT:
		tokenID, ok := new(big.Int).SetString(wire.TokenID, 10)
		if !ok {
			return nil, fmt.Errorf("invalid token id %q", wire.TokenID)
		}
		return SpecificNFT{Contract: wire.Contract, TokenID: tokenID}, nil
	case GateMinBalance:
		minimum, ok := new(big.Int).SetString(wire.Minimum, 10)
		if !ok {
			return nil, fmt.Errorf("invalid minimum balance %q", wire.Minimum)
		}
		return MinBalance{Contract: wire.Contract, Minimum: minimum}, nil
	default:
		return nil, fmt.Errorf("unknown gate kind %q", wire.Kind)
	}
}

// Describe renders a gate for logs and CLI output.
func Describe(g Gate) string {
	switch gate := g.(type) {
	case AnyNFT:
		return fmt.Sprintf("any NFT on %s", gate.Contract.Short())
	case SpecificNFT:
		return fmt.Sprintf("NFT #%s on %s", gate.TokenID, gate.Contract.Short())
	case MinBalance:
		return fmt.Sprintf("balance ≥ %s on %s", gate.Minimum, gate.Contract.Short())
	default:
		return "unknown gate"
	}
}
