package probe

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/api/handlers/common"
	"github/chapool/yield-vault/internal/config"
	"github/chapool/yield-vault/internal/txlog"
	"github/chapool/yield-vault/internal/util/command"
)

type probeKind int

const (
	readiness probeKind = iota
	liveness
)

func newReadiness() *cobra.Command {
	return newProbeCommand(readiness, "readiness",
		"Runs readiness probes",
		"This command checks the readiness of the chain RPC and, if enabled, the transaction ledger database.")
}

func newLiveness() *cobra.Command {
	return newProbeCommand(liveness, "liveness",
		"Runs liveness probes",
		"This command checks the chain RPC, the ledger database and all writeable paths.")
}

func newProbeCommand(kind probeKind, use string, short string, long string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := command.BindFlags(cmd)
			if err != nil {
				return err
			}

			return runProbe(cmd.Context(), cmd.OutOrStdout(), kind, v.GetBool(verboseFlag))
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "Show verbose output.")

	return cmd
}

func runProbe(ctx context.Context, out io.Writer, kind probeKind, verbose bool) error {
	cfg := config.DefaultServiceConfigFromEnv()
	command.ConfigureLogger(cfg.Logger)

	timeout := cfg.Management.ReadinessTimeout
	writeablePaths := []string{}
	if kind == liveness {
		timeout = cfg.Management.LivenessTimeout
		writeablePaths = cfg.Management.ProbeWriteablePathsAbs
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := api.NewChainClient(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to connect to chain")
	}
	defer client.Close()

	var db *sql.DB
	if cfg.Database.Enabled {
		db, err = txlog.Open(ctx, cfg.Database)
		if err != nil {
			return errors.Wrap(err, "failed to connect to database")
		}
		defer db.Close()
	}

	start := time.Now()
	report, errs := common.ProbeReadiness(ctx, client, db, writeablePaths, cfg.Management.ProbeWriteableTouchfile)

	if verbose {
		fmt.Fprint(out, report)
		fmt.Fprintf(out, "Probes took %s\n", time.Since(start))
	}

	if len(errs) > 0 {
		log.Error().Errs("errs", errs).Msg("Probes failed")
		return errors.Errorf("%d probe(s) failed", len(errs))
	}

	return nil
}
