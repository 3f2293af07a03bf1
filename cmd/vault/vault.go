package vault

import (
	"github.com/spf13/cobra"
	"github/chapool/yield-vault/internal/util/command"
)

const (
	langFlag  = "lang"
	maxFlag   = "max"
	limitFlag = "limit"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("vault",
		newStatus(),
		newWorkflow(vaultKindDeposit),
		newWorkflow(vaultKindRedeem),
		newTx(),
		newHistory(),
	)
}

func addLangFlag(cmd *cobra.Command) {
	cmd.Flags().String(langFlag, "", "Language of the output, e.g. en or de. Defaults to SERVER_I18N_DEFAULT_LANGUAGE.")
}
