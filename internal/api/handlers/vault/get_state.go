package vault

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/yield-vault/internal/api"
)

func GetStateRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Vault.GET("/:kind", getStateHandler(s))
}

func getStateHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		controller, err := controllerFromContext(s, c)
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, newStateResponse(s, requestLanguage(s, c), controller.State()))
	}
}
