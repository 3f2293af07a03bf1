package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/yield-vault/cmd/db"
	"github/chapool/yield-vault/cmd/env"
	"github/chapool/yield-vault/cmd/probe"
	"github/chapool/yield-vault/cmd/server"
	"github/chapool/yield-vault/cmd/vault"
	"github/chapool/yield-vault/cmd/wallet"
	"github/chapool/yield-vault/internal/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Version: config.GetFormattedBuildArgs(),
	Use:     "app",
	Short:   config.ModuleName,
	Long: fmt.Sprintf(`%v

Deposits into and redeems from an ERC4626 yield vault, either via the
JSON/websocket API of "app server" or directly via "app vault".
Requires configuration through ENV.`, config.ModuleName),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	// attach the subcommands
	rootCmd.AddCommand(
		db.New(),
		env.New(),
		probe.New(),
		server.New(),
		vault.New(),
		wallet.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Failed to execute root command")
		os.Exit(1)
	}
}
