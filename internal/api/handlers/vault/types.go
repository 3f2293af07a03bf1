package vault

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/api/httperrors"
	"github/chapool/yield-vault/internal/i18n"
	"github/chapool/yield-vault/internal/vault"
	"github/chapool/yield-vault/internal/vault/workflow"
	"golang.org/x/text/language"
)

// StateResponse is a workflow state plus the connected account and
// localized status lines.
type StateResponse struct {
	workflow.State
	Account        common.Address `json:"account"`
	ChainID        int64          `json:"chainId"`
	Status         string         `json:"status"`
	FailureMessage string         `json:"failureMessage,omitempty"`
}

type PutAmountPayload struct {
	Amount *string `json:"amount"`
}

type GetStatesResponse struct {
	Workflows []StateResponse `json:"workflows"`
}

func newStateResponse(s *api.Server, lang language.Tag, st workflow.State) StateResponse {
	res := StateResponse{
		State:   st,
		Account: s.ChainContext.Account,
		ChainID: s.ChainContext.ChainID,
	}

	if !st.Connected() {
		res.Status = s.I18n.Translate(lang, "vault.notConnected")
	} else {
		res.Status = s.I18n.Translate(lang, "vault.phase."+string(st.Phase))
	}

	if st.LastFailure != nil {
		message := ""
		if st.LastFailure.Err != nil {
			message = st.LastFailure.Err.Error()
		}
		res.FailureMessage = s.I18n.Translate(lang, "vault.failure."+string(st.LastFailure.Kind), i18n.Data{"Message": message})
	}

	return res
}

func requestLanguage(s *api.Server, c echo.Context) language.Tag {
	return s.I18n.ParseAcceptLanguage(c.Request().Header.Get("Accept-Language"))
}

func controllerFromContext(s *api.Server, c echo.Context) (*workflow.Controller, error) {
	kind, err := vault.ParseKind(c.Param("kind"))
	if err != nil {
		return nil, httperrors.ErrNotFoundUnknownWorkflow.Wrap(err)
	}

	controller, err := s.Workflows.Get(kind)
	if err != nil {
		return nil, httperrors.ErrNotFoundUnknownWorkflow.Wrap(err)
	}

	return controller, nil
}
