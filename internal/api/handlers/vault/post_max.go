package vault

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/api/httperrors"
)

func PostMaxRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Vault.POST("/:kind/max", postMaxHandler(s))
}

// Sets the amount to the underlying balance (deposit) or the share balance (redeem).
func postMaxHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		controller, err := controllerFromContext(s, c)
		if err != nil {
			return err
		}

		st, err := controller.SetMaxAmount()
		if err != nil {
			return httperrors.FromVault(err)
		}

		return c.JSON(http.StatusOK, newStateResponse(s, requestLanguage(s, c), st))
	}
}
