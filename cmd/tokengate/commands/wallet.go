package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/velsand/tokengate/pkg/wallet"
)

type WalletCmd struct {
	Keygen  WalletKeygenCmd  `cmd:"" help:"Generate a new wallet and store it in the keyring"`
	Address WalletAddressCmd `cmd:"" help:"Print the stored wallet's address"`
	Recover WalletRecoverCmd `cmd:"" help:"Recover a wallet from its mnemonic phrase"`
	Remove  WalletRemoveCmd  `cmd:"" help:"Remove the stored wallet"`
}

type WalletKeygenCmd struct {
	Force bool `help:"Overwrite an existing wallet" short:"f"`
}

func (c *WalletKeygenCmd) Run(ctx *cliCtx) error {
	kr := &wallet.Keyring{}
	if !c.Force {
		if _, err := kr.Load(); err == nil {
			return fmt.Errorf("a wallet already exists; use --force to overwrite it")
		}
	}

	w, err := wallet.Generate()
	if err != nil {
		return err
	}
	if err := kr.Save(w.Mnemonic()); err != nil {
		return fmt.Errorf("failed to store mnemonic: %w", err)
	}

	fmt.Printf("%s Wallet created\n", color.GreenString("✓"))
	fmt.Printf("Address:     %s\n", w.Address().Hex())
	fmt.Printf("Fingerprint: %s\n", wallet.FingerprintWords(w.PublicKeyHex()))
	fmt.Println()
	fmt.Println(color.YellowString("Recovery phrase (write it down, it is shown only once):"))
	fmt.Printf("  %s\n", w.Mnemonic())
	return nil
}

type WalletAddressCmd struct {
	Words bool `help:"Also print the fingerprint words" short:"w"`
}

func (c *WalletAddressCmd) Run(ctx *cliCtx) error {
	kr := &wallet.Keyring{}
	w, err := kr.Load()
	if err != nil {
		if errors.Is(err, wallet.ErrNoWallet) {
			return fmt.Errorf("no wallet found; run 'tokengate wallet keygen' first")
		}
		return err
	}
	fmt.Println(w.Address().Hex())
	if c.Words {
		fmt.Println(wallet.FingerprintWords(w.PublicKeyHex()))
	}
	return nil
}

type WalletRecoverCmd struct {
	Mnemonic []string `arg:"" help:"The 12-word recovery phrase"`
}

func (c *WalletRecoverCmd) Run(ctx *cliCtx) error {
	phrase := strings.Join(c.Mnemonic, " ")
	w, err := wallet.FromMnemonic(phrase)
	if err != nil {
		return err
	}
	kr := &wallet.Keyring{}
	if err := kr.Save(phrase); err != nil {
		return fmt.Errorf("failed to store mnemonic: %w", err)
	}
	fmt.Printf("%s Wallet recovered\n", color.GreenString("✓"))
	fmt.Printf("Address: %s\n", w.Address().Hex())
	return nil
}

type WalletRemoveCmd struct{}

func (c *WalletRemoveCmd) Run(ctx *cliCtx) error {
	kr := &wallet.Keyring{}
	if err := kr.Delete(); err != nil {
		return err
	}
	fmt.Printf("%s Wallet removed\n", color.GreenString("✓"))
	return nil
}
