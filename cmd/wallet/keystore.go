package wallet

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/yield-vault/internal/config"
	"github/chapool/yield-vault/internal/util/command"
	"github/chapool/yield-vault/internal/wallet"
	"github/chapool/yield-vault/internal/wallet/address"
	"github/chapool/yield-vault/internal/wallet/keystore"
	"github/chapool/yield-vault/internal/wallet/seed"
)

func newKeystoreCreate() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Encrypts a mnemonic into a keystore file",
		Long: `Encrypts a mnemonic into a keystore file

The mnemonic is taken from WALLET_MNEMONIC or prompted for, the password is
always prompted for. Point WALLET_KEYSTORE_FILE at the file afterwards.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := command.BindFlags(cmd)
			if err != nil {
				return err
			}

			cfg := config.DefaultServiceConfigFromEnv()
			command.ConfigureLogger(cfg.Logger)

			path := v.GetString(fileFlag)
			if path == "" {
				path = cfg.Wallet.KeystoreFile
			}
			if path == "" {
				return errors.New("no keystore file given, use --file or WALLET_KEYSTORE_FILE")
			}

			mnemonic := cfg.Wallet.Mnemonic
			if mnemonic == "" {
				if mnemonic, err = wallet.TerminalPrompt("Enter mnemonic: "); err != nil {
					return err
				}
			}

			password, err := promptNewPassword()
			if err != nil {
				return err
			}

			params := keystore.StandardScryptParams()
			if v.GetBool(lightFlag) {
				params = keystore.LightScryptParams()
			}

			addr, err := createKeystore(path, mnemonic, password, cfg.Wallet.MnemonicPassword, cfg.Wallet.DerivationPath, params)
			if err != nil {
				return err
			}

			log.Info().Str("file", path).Str("address", addr.Hex()).Msg("Keystore created")
			fmt.Fprintln(cmd.OutOrStdout(), addr.Hex())

			return nil
		},
	}

	cmd.Flags().String(fileFlag, "", "Keystore file to write. Defaults to WALLET_KEYSTORE_FILE.")
	cmd.Flags().Bool(lightFlag, false, "Use cheap scrypt parameters. Development only.")

	return cmd
}

func promptNewPassword() (string, error) {
	password, err := wallet.TerminalPrompt("Enter new keystore password: ")
	if err != nil {
		return "", err
	}

	confirm, err := wallet.TerminalPrompt("Repeat keystore password: ")
	if err != nil {
		return "", err
	}

	if password != confirm {
		return "", errors.New("passwords do not match")
	}

	return password, nil
}

// createKeystore encrypts mnemonic with password into path and returns the
// account address derived at derivationPath.
func createKeystore(path, mnemonic, password, mnemonicPassword, derivationPath string, params keystore.ScryptParams) (common.Address, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if mnemonic == "" {
		return common.Address{}, errors.New("mnemonic is empty")
	}
	if len(password) < keystore.MinPassword {
		return common.Address{}, errors.Errorf("password must have at least %d characters", keystore.MinPassword)
	}
	if derivationPath == "" {
		derivationPath = address.DefaultDerivationPath
	}

	m := seed.NewManager()
	m.Initialize(mnemonic, mnemonicPassword)
	defer m.Clear()

	key, err := m.DeriveKey(derivationPath)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "failed to derive account")
	}
	addr := address.FromKey(key)

	ks, err := keystore.Encrypt([]byte(mnemonic), password, params)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "failed to encrypt mnemonic")
	}
	ks.Address = strings.ToLower(strings.TrimPrefix(addr.Hex(), "0x"))

	if err := keystore.WriteFile(path, ks); err != nil {
		return common.Address{}, err
	}

	return addr, nil
}
