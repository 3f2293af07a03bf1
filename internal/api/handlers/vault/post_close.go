package vault

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/yield-vault/internal/api"
)

func PostCloseRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Vault.POST("/:kind/close", postCloseHandler(s))
}

// Closes the dialog. A pending transaction is no longer tracked but stays
// broadcast.
func postCloseHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		controller, err := controllerFromContext(s, c)
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, newStateResponse(s, requestLanguage(s, c), controller.Close()))
	}
}
