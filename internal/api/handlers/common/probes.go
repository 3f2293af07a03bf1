package common

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// BlockSource is the part of the chain client the probes use.
type BlockSource interface {
	LatestBlock(ctx context.Context) (uint64, error)
}

// ProbeReadiness checks every external dependency and returns a
// human-readable report plus all errors that occurred.
// database may be nil when the ledger is disabled.
func ProbeReadiness(ctx context.Context, chain BlockSource, database *sql.DB, writeablePaths []string, touchfile string) (string, []error) {
	var (
		report strings.Builder
		errs   []error
	)

	if err := probeChain(ctx, chain, &report); err != nil {
		errs = append(errs, err)
	}

	if database != nil {
		if err := probeDatabase(ctx, database, &report); err != nil {
			errs = append(errs, err)
		}
	}

	for _, path := range writeablePaths {
		if err := probePathWriteable(ctx, path, touchfile, &report); err != nil {
			errs = append(errs, err)
		}
	}

	return report.String(), errs
}

func probeChain(ctx context.Context, chain BlockSource, report *strings.Builder) error {
	start := time.Now()

	block, err := chain.LatestBlock(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Chain readiness probe failed")
		fmt.Fprintf(report, "Probe chain: Failed to read latest block (%s): %v\n", time.Since(start), err)
		return errors.Wrap(err, "chain probe failed")
	}

	fmt.Fprintf(report, "Probe chain: Latest block %d (%s)\n", block, time.Since(start))
	return nil
}

func probeDatabase(ctx context.Context, database *sql.DB, report *strings.Builder) error {
	start := time.Now()

	if _, err := database.ExecContext(ctx, "SELECT 1;"); err != nil {
		log.Warn().Err(err).Msg("Database readiness probe failed")
		fmt.Fprintf(report, "Probe database: Failed to ping (%s): %v\n", time.Since(start), err)
		return errors.Wrap(err, "database probe failed")
	}

	fmt.Fprintf(report, "Probe database: Ping succeeded (%s)\n", time.Since(start))
	return nil
}

func probePathWriteable(ctx context.Context, path string, touchfile string, report *strings.Builder) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	file := filepath.Join(path, touchfile)

	if err := os.WriteFile(file, []byte(time.Now().UTC().Format(time.RFC3339)), 0o600); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Writeable path probe failed")
		fmt.Fprintf(report, "Probe writeable %s: Failed to write touchfile (%s): %v\n", path, time.Since(start), err)
		return errors.Wrapf(err, "path %s is not writeable", path)
	}

	fmt.Fprintf(report, "Probe writeable %s: Touchfile written (%s)\n", path, time.Since(start))
	return nil
}
