package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/api/router"
	"github/chapool/yield-vault/internal/config"
	"github/chapool/yield-vault/internal/txlog"
	"github/chapool/yield-vault/internal/util/command"
)

const (
	migrateFlag = "migrate"
	watchFlag   = "watch"
)

type Flags struct {
	Migrate bool
	Watch   bool
}

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Starts the server",
		Long: `Starts the vault workflow API server

Requires configuration through ENV.
Keystore passwords that are not set via ENV are prompted for on the terminal.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := command.BindFlags(cmd)
			if err != nil {
				return err
			}

			return runServer(cmd.Context(), Flags{
				Migrate: v.GetBool(migrateFlag),
				Watch:   v.GetBool(watchFlag),
			})
		},
	}

	cmd.Flags().BoolP(migrateFlag, "m", false, "Apply transaction ledger migrations before starting the server.")
	cmd.Flags().Bool(watchFlag, true, "Poll the vault state continuously. Overrides WORKFLOW_WATCH_ENABLED when set.")

	return cmd
}

func runServer(ctx context.Context, flags Flags) error {
	cfg := config.DefaultServiceConfigFromEnv()
	cfg.Workflow.WatchEnabled = cfg.Workflow.WatchEnabled && flags.Watch

	if err := command.PromptKeystorePassword(&cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return command.WithServer(ctx, cfg, func(ctx context.Context, s *api.Server) error {
		log := log.With().Str(command.LogKeyCmd, "server").Logger()

		if flags.Migrate {
			if s.DB == nil {
				log.Warn().Msg("Ledger database is disabled, skipping migrations")
			} else {
				n, err := txlog.Migrate(s.DB)
				if err != nil {
					log.Error().Err(err).Msg("Failed to apply migrations")
					return err
				}
				log.Info().Int("migrations", n).Msg("Applied migrations")
			}
		}

		if err := router.Init(s); err != nil {
			log.Error().Err(err).Msg("Failed to initialize router")
			return err
		}

		s.StartWatch(ctx)

		errc := make(chan error, 1)
		go func() {
			if err := s.Start(); err != nil {
				if errors.Is(err, http.ErrServerClosed) {
					errc <- nil
					return
				}
				errc <- err
			}
		}()

		log.Info().
			Str("listen_address", s.Config.Echo.ListenAddress).
			Int64("chain_id", s.ChainContext.ChainID).
			Str("account", s.ChainContext.Account.Hex()).
			Msg("Server started")

		select {
		case err := <-errc:
			if err != nil {
				log.Error().Err(err).Msg("Failed to start server")
			}
			return err
		case <-ctx.Done():
			log.Info().Msg("Received shutdown signal")
			return nil
		}
	})
}
