package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/config"
	"github/chapool/yield-vault/internal/wallet"
)

const (
	LogKeyCmd = "cmd"

	shutdownTimeout = 30 * time.Second
)

// ConfigureLogger applies the logger config to the global zerolog logger.
func ConfigureLogger(cfg config.LoggerServer) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(cfg.Level)

	if cfg.PrettyPrintConsole {
		log.Logger = log.Output(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.TimeFormat = "15:04:05"
			w.Out = os.Stderr
		}))
	}

	if cfg.LogCaller {
		log.Logger = log.With().Caller().Logger()
	}
}

// WithServer builds a fully wired server from cfg, connects the optional
// ledger and NATS sinks and hands it to f. The server is shut down once f returns.
func WithServer(ctx context.Context, cfg config.Server, f func(ctx context.Context, s *api.Server) error) error {
	ConfigureLogger(cfg.Logger)

	s, err := api.InitNewServer(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize server")
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if errs := s.Shutdown(shutdownCtx); len(errs) > 0 {
			log.Error().Errs("shutdownErrors", errs).Msg("Failed to gracefully shut down server")
		}
	}()

	if err := s.InitSinks(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to initialize sinks")
		return fmt.Errorf("failed to initialize sinks: %w", err)
	}

	return f(ctx, s)
}

// ErrSubcommandRequired is returned when a command group runs without a subcommand.
var ErrSubcommandRequired = errors.New("subcommand required")

// NewSubcommandGroup returns a command that only groups its subcommands and
// prints its help when run on its own.
func NewSubcommandGroup(name string, subCommands ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("%s related subcommands", name),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cmd.Help(); err != nil {
				return errors.Join(err, ErrSubcommandRequired)
			}
			return ErrSubcommandRequired
		},
	}

	cmd.AddCommand(subCommands...)

	return cmd
}

// PromptKeystorePassword asks for the keystore password on the terminal if a
// keystore is configured without one. The server itself never prompts.
func PromptKeystorePassword(cfg *config.Server) error {
	if cfg.Wallet.PrivateKey != "" || cfg.Wallet.Mnemonic != "" {
		return nil
	}
	if cfg.Wallet.KeystoreFile == "" || cfg.Wallet.KeystorePassword != "" {
		return nil
	}

	password, err := wallet.TerminalPrompt("Enter keystore password: ")
	if err != nil {
		return err
	}
	cfg.Wallet.KeystorePassword = password

	return nil
}
