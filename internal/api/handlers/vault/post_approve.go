package vault

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/api/httperrors"
)

func PostApproveRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Vault.POST("/:kind/approve", postApproveHandler(s))
}

// Submits the approval and returns once it is broadcast. Confirmation is
// tracked in the background, poll the state or use the stream.
func postApproveHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		controller, err := controllerFromContext(s, c)
		if err != nil {
			return err
		}

		st, err := controller.Approve(c.Request().Context())
		if err != nil {
			return httperrors.FromVault(err)
		}

		return c.JSON(http.StatusAccepted, newStateResponse(s, requestLanguage(s, c), st))
	}
}
