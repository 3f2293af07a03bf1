package wallet

import (
	"fmt"

	"github.com/spf13/cobra"
	"github/chapool/yield-vault/internal/config"
	"github/chapool/yield-vault/internal/util/command"
	"github/chapool/yield-vault/internal/wallet"
)

func newAddress() *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Prints the account address of the configured wallet key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()
			command.ConfigureLogger(cfg.Logger)

			s, err := wallet.LoadSigner(cfg.Wallet, wallet.TerminalPrompt)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), s.Address().Hex())
			return nil
		},
	}
}
