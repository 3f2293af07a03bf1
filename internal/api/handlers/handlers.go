package handlers

import (
	"github.com/labstack/echo/v4"
	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/api/handlers/common"
	"github/chapool/yield-vault/internal/api/handlers/vault"
)

func AttachAllRoutes(s *api.Server) {
	// attach our routes
	s.Router.Routes = append(s.Router.Routes, []*echo.Route{
		common.GetHealthyRoute(s),
		common.GetReadyRoute(s),
		common.GetVersionRoute(s),
		vault.GetReceiptRoute(s),
		vault.GetStateRoute(s),
		vault.GetStatesRoute(s),
		vault.GetStreamRoute(s),
		vault.GetTransactionsRoute(s),
		vault.PostActRoute(s),
		vault.PostApproveRoute(s),
		vault.PostCloseRoute(s),
		vault.PostMaxRoute(s),
		vault.PostOpenRoute(s),
		vault.PostRefreshRoute(s),
		vault.PutAmountRoute(s),
	}...)
}
