package commands

import (
	"errors"
	"fmt"

	"github.com/velsand/tokengate/pkg/client"
	"github.com/velsand/tokengate/pkg/wallet"
)

// setupClient builds an API client against the configured server. When
// needWallet is set the stored wallet is loaded and attached as the signer.
func setupClient(ctx *cliCtx, needWallet bool) (*client.APIClient, error) {
	var signer wallet.Signer
	if needWallet {
		kr := &wallet.Keyring{}
		w, err := kr.Load()
		if err != nil {
			if errors.Is(err, wallet.ErrNoWallet) {
				return nil, fmt.Errorf("no wallet found; run 'tokengate wallet keygen' first")
			}
			return nil, err
		}
		signer = w
	}

	ctx.Logger.Debug("initializing API client", "serverURL", ctx.Server)
	return client.NewAPIClient(client.ClientConfig{
		ServerURL: ctx.Server,
		Signer:    signer,
		Logger:    ctx.Logger,
	})
}
