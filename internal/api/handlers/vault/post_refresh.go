package vault

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/api/httperrors"
)

func PostRefreshRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Vault.POST("/refresh", postRefreshHandler(s))
}

// Reads a new snapshot immediately instead of waiting for the watch loop.
func postRefreshHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		snapshot, err := s.Reader.Refresh(c.Request().Context())
		if err != nil {
			return httperrors.FromVault(err)
		}

		return c.JSON(http.StatusOK, snapshot)
	}
}
