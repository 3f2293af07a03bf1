package vault

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/api/httperrors"
)

func PostActRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Vault.POST("/:kind/act", postActHandler(s))
}

// Submits the deposit or redeem of the requested amount.
func postActHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		controller, err := controllerFromContext(s, c)
		if err != nil {
			return err
		}

		st, err := controller.Act(c.Request().Context())
		if err != nil {
			return httperrors.FromVault(err)
		}

		return c.JSON(http.StatusAccepted, newStateResponse(s, requestLanguage(s, c), st))
	}
}
