package command_test

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/yield-vault/internal/util/command"
)

func TestBindFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "status"}
	cmd.Flags().String("lang", "en", "")
	cmd.Flags().Bool("max", false, "")
	cmd.Flags().Int("limit", 20, "")

	t.Setenv("CLI_LANG", "de")

	require.NoError(t, cmd.Flags().Set("limit", "5"))

	v, err := command.BindFlags(cmd)
	require.NoError(t, err)

	assert.Equal(t, "de", v.GetString("lang"))
	assert.False(t, v.GetBool("max"))
	assert.Equal(t, 5, v.GetInt("limit"))
}
