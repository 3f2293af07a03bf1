package db

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/yield-vault/internal/config"
	"github/chapool/yield-vault/internal/txlog"
	"github/chapool/yield-vault/internal/util/command"
)

func newMigrate() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Executes all transaction ledger migrations which are not yet applied.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return migrateCmdFunc(cmd.Context())
		},
	}
}

func migrateCmdFunc(ctx context.Context) error {
	cfg := config.DefaultServiceConfigFromEnv()
	command.ConfigureLogger(cfg.Logger)

	db, err := txlog.Open(ctx, cfg.Database)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer db.Close()

	n, err := txlog.Migrate(db)
	if err != nil {
		return errors.Wrap(err, "failed to apply migrations")
	}

	log.Info().Int("migrations", n).Str("database", cfg.Database.Database).Msg("Applied migrations")

	return nil
}
