package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/velsand/tokengate/pkg/model"
)

type CheckCmd struct {
	ID      uint64 `arg:"" help:"Secret id"`
	Address string `help:"Check a specific address instead of the stored wallet"`
}

func (c *CheckCmd) Run(ctx *cliCtx) error {
	needWallet := c.Address == ""
	api, err := setupClient(ctx, needWallet)
	if err != nil {
		return err
	}

	var addr model.Address
	if c.Address != "" {
		addr, err = model.ParseAddress(c.Address)
		if err != nil {
			return err
		}
	} else {
		addr = api.Signer.Address()
	}

	id := model.SecretID(c.ID)
	meets, err := api.MeetsGateRequirement(ctx, id, addr)
	if err != nil {
		return err
	}
	access, err := api.HasAccessFor(ctx, id, addr)
	if err != nil {
		return err
	}
	granted, err := api.PermanentAccess(ctx, id, addr)
	if err != nil {
		return err
	}

	fmt.Printf("Secret %s, address %s\n", color.CyanString("#%d", id), addr.Short())
	fmt.Printf("  meets gate:       %s\n", yesNo(meets))
	fmt.Printf("  has access:       %s\n", yesNo(access))
	fmt.Printf("  permanent grant:  %s\n", yesNo(granted))
	return nil
}

func yesNo(v bool) string {
	if v {
		return color.GreenString("yes")
	}
	return color.RedString("no")
}

type AccessCmd struct {
	ID uint64 `arg:"" help:"Secret id"`
}

func (c *AccessCmd) Run(ctx *cliCtx) error {
	api, err := setupClient(ctx, true)
	if err != nil {
		return err
	}
	id := model.SecretID(c.ID)
	if err := api.RequestPermanentAccess(ctx, id); err != nil {
		return err
	}
	fmt.Printf("%s Access granted for secret %d\n", color.GreenString("✓"), id)
	return nil
}

type UpdateGateCmd struct {
	ID uint64 `arg:"" help:"Secret id"`

	GateType     string `help:"Gate kind: any-nft, specific-nft or min-balance" default:"any-nft" enum:"any-nft,specific-nft,min-balance"`
	GateContract string `help:"Token contract address the gate reads" required:""`
	TokenID      string `help:"Token id for specific-nft gates"`
	Minimum      string `help:"Minimum balance for min-balance gates"`
}

func (c *UpdateGateCmd) Run(ctx *cliCtx) error {
	g, err := buildGate(c.GateType, c.GateContract, c.TokenID, c.Minimum)
	if err != nil {
		return err
	}
	api, err := setupClient(ctx, true)
	if err != nil {
		return err
	}
	if err := api.UpdateGate(ctx, model.SecretID(c.ID), g); err != nil {
		return err
	}
	fmt.Printf("%s Gate updated on secret %d (%s)\n", color.GreenString("✓"), c.ID, model.Describe(g))
	return nil
}
