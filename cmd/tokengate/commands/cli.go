package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

// cliCtx carries the state every command needs: the resolved server URL,
// a logger and a base context.
type cliCtx struct {
	Server string
	Debug  bool
	Logger *slog.Logger
	context.Context
}

type cli struct {
	Wallet  WalletCmd  `cmd:"" help:"Manage the local signing wallet"`
	Create  CreateCmd  `cmd:"" help:"Create a token-gated secret"`
	List    ListCmd    `cmd:"" help:"List all secrets"`
	Info    InfoCmd    `cmd:"" help:"Show one secret"`
	Count   CountCmd   `cmd:"" help:"Show the number of secrets"`
	Check   CheckCmd   `cmd:"" help:"Check gate and access status for a secret"`
	Access  AccessCmd  `cmd:"" help:"Request permanent access to a secret"`
	Decrypt DecryptCmd `cmd:"" help:"Decrypt a secret"`

	UpdateGate UpdateGateCmd `cmd:"" name:"update-gate" help:"Replace the gate on a secret you created"`

	Server  string           `env:"TOKENGATE_SERVER" default:"http://localhost:8080" help:"Registry server URL"`
	Debug   bool             `help:"Enable debug logging"`
	Version kong.VersionFlag `help:"Show version"`
}

func Execute(version string) {
	var cli cli
	ctx := kong.Parse(&cli,
		kong.UsageOnError(),
		kong.Name("tokengate"),
		kong.Description("tokengate publishes and reads token-gated secrets"),
		kong.Vars{"version": version},
	)

	level := slog.LevelWarn
	if cli.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	err := ctx.Run(&cliCtx{
		Server:  cli.Server,
		Debug:   cli.Debug,
		Logger:  logger,
		Context: context.Background(),
	})
	ctx.FatalIfErrorf(err)
}
