package command

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// FlagEnvPrefix prefixes the env vars that may set command flags,
// e.g. CLI_LANG for --lang.
const FlagEnvPrefix = "CLI"

// BindFlags returns a viper instance resolving the flags of cmd. Explicitly
// set flags win over CLI_* env vars, which win over flag defaults.
func BindFlags(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(FlagEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, errors.Wrapf(err, "failed to bind flags of %s", cmd.Name())
	}

	return v, nil
}
