package common

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/util"
)

func GetHealthyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/healthy", getHealthyHandler(s))
}

// Health check
// Returns an analysis of the health of the service, including the chain, the
// ledger database and the writeable paths. Requires the management secret.
func getHealthyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.QueryParam("mgmt-secret") != s.Config.Management.Secret {
			return echo.ErrUnauthorized
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), s.Config.Management.LivenessTimeout)
		defer cancel()

		report, errs := ProbeReadiness(ctx, s.Chain, s.DB, s.Config.Management.ProbeWriteablePathsAbs, s.Config.Management.ProbeWriteableTouchfile)
		if len(errs) > 0 {
			util.LogFromContext(ctx).Warn().Errs("errs", errs).Msg("Health probes failed")
			return c.String(http.StatusServiceUnavailable, report)
		}

		if snapshot, ok := s.Reader.Snapshot(); ok {
			report += fmt.Sprintf("Snapshot: block %d, read at %s\n", snapshot.BlockNumber, snapshot.ReadAt.UTC().Format(time.RFC3339))
		} else {
			report += "Snapshot: not read yet\n"
		}

		return c.String(http.StatusOK, report)
	}
}
