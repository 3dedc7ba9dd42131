package commands

import (
	"fmt"
	"math/big"

	"github.com/fatih/color"
	"github.com/velsand/tokengate/pkg/model"
)

type CreateCmd struct {
	Title string `arg:"" help:"Public title of the secret"`
	Text  string `arg:"" help:"Secret text (at most 32 bytes)"`

	GateType     string `help:"Gate kind: any-nft, specific-nft or min-balance" default:"any-nft" enum:"any-nft,specific-nft,min-balance"`
	GateContract string `help:"Token contract address the gate reads" required:""`
	TokenID      string `help:"Token id for specific-nft gates"`
	Minimum      string `help:"Minimum balance for min-balance gates"`
}

func (c *CreateCmd) Run(ctx *cliCtx) error {
	g, err := buildGate(c.GateType, c.GateContract, c.TokenID, c.Minimum)
	if err != nil {
		return err
	}

	api, err := setupClient(ctx, true)
	if err != nil {
		return err
	}

	id, err := api.CreateSecret(ctx, c.Title, c.Text, g)
	if err != nil {
		return err
	}
	fmt.Printf("%s Created secret %d (%s)\n", color.GreenString("✓"), id, model.Describe(g))
	return nil
}

// buildGate maps the flag triple onto a gate variant, rejecting parameters
// that do not belong to the chosen kind.
func buildGate(kind, contract, tokenID, minimum string) (model.Gate, error) {
	addr, err := model.ParseAddress(contract)
	if err != nil {
		return nil, err
	}
	switch model.GateKind(kind) {
	case model.GateAnyNFT:
		if tokenID != "" || minimum != "" {
			return nil, fmt.Errorf("any-nft gates take no --token-id or --minimum")
		}
		return model.AnyNFT{Contract: addr}, nil
	case model.GateSpecificNFT:
		if tokenID == "" {
			return nil, fmt.Errorf("specific-nft gates require --token-id")
		}
		if minimum != "" {
			return nil, fmt.Errorf("specific-nft gates take no --minimum")
		}
		id, ok := new(big.Int).SetString(tokenID, 10)
		if !ok {
			return nil, fmt.Errorf("invalid token id %q", tokenID)
		}
		return model.SpecificNFT{Contract: addr, TokenID: id}, nil
	case model.GateMinBalance:
		if minimum == "" {
			return nil, fmt.Errorf("min-balance gates require --minimum")
		}
		if tokenID != "" {
			return nil, fmt.Errorf("min-balance gates take no --token-id")
		}
		min, ok := new(big.Int).SetString(minimum, 10)
		if !ok {
			return nil, fmt.Errorf("invalid minimum %q", minimum)
		}
		return model.MinBalance{Contract: addr, Minimum: min}, nil
	default:
		return nil, fmt.Errorf("unknown gate type %q", kind)
	}
}
