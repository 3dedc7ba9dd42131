package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/velsand/tokengate/pkg/model"
)

type InfoCmd struct {
	ID uint64 `arg:"" help:"Secret id"`
}

func (c *InfoCmd) Run(ctx *cliCtx) error {
	api, err := setupClient(ctx, false)
	if err != nil {
		return err
	}
	info, err := api.GetSecretInfo(ctx, model.SecretID(c.ID))
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", color.CyanString("#%d", info.ID), color.New(color.Bold).Sprint(info.Title))
	fmt.Printf("  gate:    %s\n", model.Describe(info.Gate))
	fmt.Printf("  creator: %s\n", info.Creator.Hex())
	return nil
}

type CountCmd struct{}

func (c *CountCmd) Run(ctx *cliCtx) error {
	api, err := setupClient(ctx, false)
	if err != nil {
		return err
	}
	count, err := api.GetSecretsCount(ctx)
	if err != nil {
		return err
	}
	fmt.Println(count)
	return nil
}
