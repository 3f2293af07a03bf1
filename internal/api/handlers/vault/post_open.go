package vault

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/yield-vault/internal/api"
)

func PostOpenRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Vault.POST("/:kind/open", postOpenHandler(s))
}

// Opens the dialog of the workflow with amount 0. Opening twice is a no-op.
func postOpenHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		controller, err := controllerFromContext(s, c)
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, newStateResponse(s, requestLanguage(s, c), controller.Open()))
	}
}
