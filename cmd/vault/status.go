package vault

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/config"
	"github/chapool/yield-vault/internal/util/command"
)

func newStatus() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Prints the balances, allowance and previewed redemption of the configured account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := command.BindFlags(cmd)
			if err != nil {
				return err
			}

			cfg := config.DefaultServiceConfigFromEnv()
			if err := command.PromptKeystorePassword(&cfg); err != nil {
				return err
			}

			return command.WithServer(cmd.Context(), cfg, func(ctx context.Context, s *api.Server) error {
				return runStatus(ctx, cmd.OutOrStdout(), s, v.GetString(langFlag))
			})
		},
	}

	addLangFlag(cmd)

	return cmd
}

func runStatus(ctx context.Context, out io.Writer, s *api.Server, lang string) error {
	p := printer{out: out, i18n: s.I18n, lang: s.I18n.ParseLang(lang)}

	snapshot, err := s.Reader.Refresh(ctx)
	if err != nil {
		p.line("vault.failure.read_failure")
		return err
	}

	fmt.Fprintf(out, "%s (chain %d, block %d)\n", s.ChainContext.Account.Hex(), s.ChainContext.ChainID, snapshot.BlockNumber)
	p.snapshot(snapshot)

	return nil
}
