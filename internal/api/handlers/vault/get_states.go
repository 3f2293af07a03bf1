package vault

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/yield-vault/internal/api"
)

func GetStatesRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Vault.GET("", getStatesHandler(s))
}

func getStatesHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		lang := requestLanguage(s, c)

		kinds := s.Workflows.Kinds()
		response := &GetStatesResponse{Workflows: make([]StateResponse, 0, len(kinds))}

		for _, kind := range kinds {
			controller, err := s.Workflows.Get(kind)
			if err != nil {
				return err
			}
			response.Workflows = append(response.Workflows, newStateResponse(s, lang, controller.State()))
		}

		return c.JSON(http.StatusOK, response)
	}
}
