package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/velsand/tokengate/pkg/model"
	"github.com/velsand/tokengate/pkg/token"
)

type ListCmd struct {
	Oldest bool `help:"List oldest first instead of newest first"`
}

func (c *ListCmd) Run(ctx *cliCtx) error {
	api, err := setupClient(ctx, false)
	if err != nil {
		return err
	}
	infos, err := api.ListSecrets(ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No secrets yet.")
		return nil
	}
	if !c.Oldest {
		for i, j := 0, len(infos)-1; i < j; i, j = i+1, j-1 {
			infos[i], infos[j] = infos[j], infos[i]
		}
	}

	names := newNameCache(ctx)
	for _, info := range infos {
		gate := model.Describe(info.Gate)
		if name := names.lookup(ctx, info.Gate.GateContract()); name != "" {
			gate = fmt.Sprintf("%s (%s)", gate, name)
		}
		fmt.Printf("%s %s\n", color.CyanString("#%d", info.ID), color.New(color.Bold).Sprint(info.Title))
		fmt.Printf("  gate:    %s\n", gate)
		fmt.Printf("  creator: %s\n", info.Creator.Short())
	}
	return nil
}

// nameCache resolves gate contract display names through the configured RPC
// endpoint. Without TOKENGATE_RPC, or when a contract has no name(), lookups
// come back empty and the listing just omits the name.
type nameCache struct {
	resolver *token.RPCResolver
	names    map[model.Address]string
}

func newNameCache(ctx *cliCtx) *nameCache {
	cache := &nameCache{names: make(map[model.Address]string)}
	if endpoint := os.Getenv("TOKENGATE_RPC"); endpoint != "" {
		cache.resolver = token.NewRPCResolver(endpoint, ctx.Logger)
	}
	return cache
}

func (c *nameCache) lookup(ctx *cliCtx, contract model.Address) string {
	if c.resolver == nil {
		return ""
	}
	if name, ok := c.names[contract]; ok {
		return name
	}
	name := ""
	if resolved, err := c.resolver.Resolve(ctx, contract); err == nil {
		if named, ok := resolved.(token.Named); ok {
			if n, err := named.Name(ctx); err == nil {
				name = n
			} else {
				ctx.Logger.Debug("contract name lookup failed", "contract", contract.Short(), "error", err)
			}
		}
	}
	c.names[contract] = name
	return name
}
