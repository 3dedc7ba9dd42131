package wallet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	keyringlib "github.com/zalando/go-keyring"
)

const (
	keyringService = "tokengate"
	keyringUser    = "wallet-mnemonic"

	// mnemonicKey is the variable name inside the fallback keyring file.
	mnemonicKey = "TOKENGATE_WALLET_MNEMONIC"

	// DefaultKeyringFilename is the fallback file used when no OS keyring
	// is available (headless machines, CI).
	DefaultKeyringFilename = ".tokengate-keyring"
)

// ErrNoWallet is returned when neither the OS keyring nor the fallback file
// holds a mnemonic.
var ErrNoWallet = errors.New("no wallet found; run keygen first")

// Keyring stores the wallet mnemonic in the OS keyring, falling back to a
// dotenv-style file under the given directory.
type Keyring struct {
	// Dir is the directory for the fallback file. Empty means $HOME.
	Dir string
	// DisableOS skips the OS keyring entirely; used in tests.
	DisableOS bool
}

func (k *Keyring) filePath() (string, error) {
	dir := k.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = home
	}
	return filepath.Join(dir, DefaultKeyringFilename), nil
}

// Save stores the mnemonic, preferring the OS keyring.
func (k *Keyring) Save(mnemonic string) error {
	if !k.DisableOS {
		if err := keyringlib.Set(keyringService, keyringUser, mnemonic); err == nil {
			return nil
		}
	}
	path, err := k.filePath()
	if err != nil {
		return err
	}
	content := fmt.Sprintf("### Wallet recovery phrase - do not commit ###\n%s=%q\n", mnemonicKey, mnemonic)
	return os.WriteFile(path, []byte(content), 0o600)
}

// Load retrieves the stored mnemonic and rebuilds the wallet.
func (k *Keyring) Load() (*Wallet, error) {
	if !k.DisableOS {
		if mnemonic, err := keyringlib.Get(keyringService, keyringUser); err == nil {
			return FromMnemonic(mnemonic)
		}
	}
	path, err := k.filePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoWallet
		}
		return nil, fmt.Errorf("failed to read keyring file at %q: %w", path, err)
	}
	envs, err := godotenv.Parse(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse keyring file %q: %w", path, err)
	}
	mnemonic, ok := envs[mnemonicKey]
	if !ok || mnemonic == "" {
		return nil, ErrNoWallet
	}
	return FromMnemonic(mnemonic)
}

// Delete removes the stored mnemonic from both locations.
func (k *Keyring) Delete() error {
	if !k.DisableOS {
		_ = keyringlib.Delete(keyringService, keyringUser)
	}
	path, err := k.filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
