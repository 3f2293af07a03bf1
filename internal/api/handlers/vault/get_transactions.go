package vault

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/api/httperrors"
	"github/chapool/yield-vault/internal/txlog"
	"github/chapool/yield-vault/internal/util"
)

const maxTransactionsLimit = 500

type GetTransactionsResponse struct {
	Transactions []txlog.Entry `json:"transactions"`
}

func GetTransactionsRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Vault.GET("/:kind/transactions", getTransactionsHandler(s))
}

// Lists the recorded transactions of the workflow, newest first.
func getTransactionsHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.Ledger == nil {
			return httperrors.ErrNotFoundLedgerDisabled
		}

		controller, err := controllerFromContext(s, c)
		if err != nil {
			return err
		}

		limit := 0
		if raw := c.QueryParam("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit < 0 {
				return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.HTTPErrorTypeGeneric, "Invalid limit.")
			}
		}
		if limit > maxTransactionsLimit {
			limit = maxTransactionsLimit
		}

		ctx := c.Request().Context()
		entries, err := s.Ledger.List(ctx, controller.Kind(), limit)
		if err != nil {
			util.LogFromContext(ctx).Error().Err(err).Str("workflow", string(controller.Kind())).Msg("Failed to list transactions")
			return err
		}

		return c.JSON(http.StatusOK, &GetTransactionsResponse{Transactions: entries})
	}
}
