package vault

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/api/httperrors"
)

func PutAmountRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Vault.PUT("/:kind/amount", putAmountHandler(s))
}

// Sets the requested amount in base units. Input that is not a non-negative
// integer is stored as 0.
func putAmountHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		controller, err := controllerFromContext(s, c)
		if err != nil {
			return err
		}

		var body PutAmountPayload
		if err := c.Bind(&body); err != nil || body.Amount == nil {
			return httperrors.ErrBadRequestInvalidAmount.Wrap(err)
		}

		st, err := controller.SetAmount(*body.Amount)
		if err != nil {
			return httperrors.FromVault(err)
		}

		return c.JSON(http.StatusOK, newStateResponse(s, requestLanguage(s, c), st))
	}
}
