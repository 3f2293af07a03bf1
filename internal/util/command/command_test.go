package command_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/config"
	"github/chapool/yield-vault/internal/test"
	"github/chapool/yield-vault/internal/util/command"
)

func TestWithServerMissingWallet(t *testing.T) {
	cfg := test.Config()
	cfg.Chain.RPCURLs = []string{"http://127.0.0.1:1"}
	cfg.Chain.RequestTimeout = time.Second
	cfg.Wallet = config.Wallet{}

	called := false
	err := command.WithServer(t.Context(), cfg, func(_ context.Context, _ *api.Server) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
}

func TestConfigureLogger(t *testing.T) {
	previous := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(previous)

	cfg := test.Config()
	cfg.Logger.Level = zerolog.WarnLevel
	cfg.Logger.PrettyPrintConsole = false

	command.ConfigureLogger(cfg.Logger)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestNewSubcommandGroup(t *testing.T) {
	ran := false
	sub := &cobra.Command{
		Use: "child",
		RunE: func(_ *cobra.Command, _ []string) error {
			ran = true
			return nil
		},
	}

	group := command.NewSubcommandGroup("group", sub)
	assert.Equal(t, "group", group.Use)

	group.SetArgs([]string{"child"})
	require.NoError(t, group.Execute())
	assert.True(t, ran)

	group.SetArgs([]string{})
	group.SetOut(&discard{})
	err := group.Execute()
	assert.True(t, errors.Is(err, command.ErrSubcommandRequired))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
