package wallet

import (
	"github.com/spf13/cobra"
	"github/chapool/yield-vault/internal/util/command"
)

const (
	fileFlag  = "file"
	lightFlag = "light"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("wallet",
		command.NewSubcommandGroup("keystore",
			newKeystoreCreate(),
		),
		newAddress(),
	)
}
