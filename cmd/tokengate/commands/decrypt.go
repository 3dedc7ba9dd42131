package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/velsand/tokengate/pkg/model"
	"github.com/velsand/tokengate/pkg/session"
)

type DecryptCmd struct {
	ID    uint64 `arg:"" help:"Secret id"`
	Quiet bool   `help:"Print only the plaintext" short:"q"`
}

func (c *DecryptCmd) Run(ctx *cliCtx) error {
	api, err := setupClient(ctx, true)
	if err != nil {
		return err
	}

	s := startSpinner("Decrypting...", ctx.Debug || c.Quiet)
	sess := session.New(api, api, api.Signer, session.Options{
		Logger: ctx.Logger,
		OnStatus: func(state session.State) {
			if s == nil {
				return
			}
			switch state {
			case session.StateRequestingAccess:
				s.Suffix = " Requesting access..."
			case session.StateWaitingConfirmation:
				s.Suffix = " Waiting for the grant to confirm..."
			case session.StateDecrypting:
				s.Suffix = " Decrypting..."
			}
		},
	})

	plaintext, err := sess.Decrypt(ctx, model.SecretID(c.ID))
	if s != nil {
		s.Stop()
	}
	if err != nil {
		if errors.Is(err, model.ErrSignatureRejected) {
			fmt.Printf("%s Decryption cancelled\n", color.YellowString("→"))
			return nil
		}
		return fmt.Errorf("%s", model.Truncate(err.Error()))
	}

	if c.Quiet {
		fmt.Println(plaintext)
		return nil
	}
	fmt.Printf("%s Secret %d decrypted\n", color.GreenString("✓"), c.ID)
	fmt.Println(plaintext)
	return nil
}

// startSpinner creates and starts a spinner with the given message. Returns
// nil when plain output is wanted (debug or quiet runs).
func startSpinner(message string, plain bool) *spinner.Spinner {
	if plain {
		return nil
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Color("cyan")
	s.Start()
	return s
}
