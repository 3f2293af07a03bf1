package vault_test

import (
	"math/big"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/api/httperrors"
	vaulthandler "github/chapool/yield-vault/internal/api/handlers/vault"
	"github/chapool/yield-vault/internal/test"
	"github/chapool/yield-vault/internal/test/fakechain"
	"github/chapool/yield-vault/internal/vault"
	"github/chapool/yield-vault/internal/vault/workflow"
)

func getState(t *testing.T, s *api.Server, kind vault.Kind, headers http.Header) vaulthandler.StateResponse {
	t.Helper()

	res := test.PerformRequest(t, s, "GET", "/api/v1/vault/"+string(kind), nil, withAPIKey(headers))
	require.Equal(t, http.StatusOK, res.Result().StatusCode, res.Body.String())

	var st vaulthandler.StateResponse
	test.ParseResponseAndValidate(t, res, &st)
	return st
}

func post(t *testing.T, s *api.Server, kind vault.Kind, action string, expectedStatus int) vaulthandler.StateResponse {
	t.Helper()

	res := test.PerformRequest(t, s, "POST", "/api/v1/vault/"+string(kind)+"/"+action, nil, test.APIHeaders())
	require.Equal(t, expectedStatus, res.Result().StatusCode, res.Body.String())

	var st vaulthandler.StateResponse
	test.ParseResponseAndValidate(t, res, &st)
	return st
}

func putAmount(t *testing.T, s *api.Server, kind vault.Kind, amount string) vaulthandler.StateResponse {
	t.Helper()

	res := test.PerformRequest(t, s, "PUT", "/api/v1/vault/"+string(kind)+"/amount", map[string]string{"amount": amount}, test.APIHeaders())
	require.Equal(t, http.StatusOK, res.Result().StatusCode, res.Body.String())

	var st vaulthandler.StateResponse
	test.ParseResponseAndValidate(t, res, &st)
	return st
}

// withAPIKey returns headers extended by the API key of the test server.
func withAPIKey(headers http.Header) http.Header {
	merged := test.APIHeaders()
	for k, values := range headers {
		for _, v := range values {
			merged.Add(k, v)
		}
	}
	return merged
}

func waitForState(t *testing.T, s *api.Server, kind vault.Kind, cond func(st vaulthandler.StateResponse) bool) vaulthandler.StateResponse {
	t.Helper()

	var last vaulthandler.StateResponse
	require.Eventually(t, func() bool {
		last = getState(t, s, kind, nil)
		return cond(last)
	}, 2*time.Second, 10*time.Millisecond)

	return last
}

func assertError(t *testing.T, s *api.Server, method string, path string, body interface{}, code int, errorType string) {
	t.Helper()

	res := test.PerformRequest(t, s, method, path, body, test.APIHeaders())
	require.Equal(t, code, res.Result().StatusCode, res.Body.String())

	var httpErr httperrors.PublicHTTPError
	test.ParseResponseAndValidate(t, res, &httpErr)
	assert.Equal(t, errorType, httpErr.Type)
	assert.Equal(t, code, httpErr.Code)
}

func TestGetStateNotConnected(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		st := getState(t, s, vault.KindDeposit, nil)

		assert.Equal(t, vault.KindDeposit, st.Kind)
		assert.False(t, st.Open)
		assert.Nil(t, st.Snapshot)
		assert.False(t, st.ApproveEnabled)
		assert.False(t, st.ActEnabled)
		assert.Equal(t, "Not Connected", st.Status)
		assert.Equal(t, fakechain.Account, st.Account)
		assert.Equal(t, int64(test.FakeChainID), st.ChainID)

		st = post(t, s, vault.KindDeposit, "open", http.StatusOK)
		assert.True(t, st.Open)
		assert.False(t, st.ApproveEnabled)
		assert.False(t, st.ActEnabled)

		assertError(t, s, "POST", "/api/v1/vault/deposit/act", nil, http.StatusServiceUnavailable, httperrors.HTTPErrorTypeNotConnected)
	})
}

func TestGetStates(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/api/v1/vault", nil, test.APIHeaders())
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		var response vaulthandler.GetStatesResponse
		test.ParseResponseAndValidate(t, res, &response)

		require.Len(t, response.Workflows, 2)
		assert.Equal(t, vault.KindDeposit, response.Workflows[0].Kind)
		assert.Equal(t, vault.KindRedeem, response.Workflows[1].Kind)
	})
}

func TestUnknownWorkflow(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		assertError(t, s, "GET", "/api/v1/vault/mint", nil, http.StatusNotFound, httperrors.HTTPErrorTypeUnknownWorkflow)
		assertError(t, s, "POST", "/api/v1/vault/mint/open", nil, http.StatusNotFound, httperrors.HTTPErrorTypeUnknownWorkflow)
	})
}

func TestDepositApproveThenAct(t *testing.T) {
	test.WithTestServerAndChain(t, func(s *api.Server, fc *fakechain.Chain) {
		fc.SetState(0, 100, 0)
		fc.SetManual(true)
		_, err := s.Reader.Refresh(t.Context())
		require.NoError(t, err)

		st := post(t, s, vault.KindDeposit, "open", http.StatusOK)
		assert.True(t, st.Open)
		assert.True(t, st.RequestedAmount.IsZero())
		assert.Equal(t, "Ready", st.Status)
		require.NotNil(t, st.Snapshot)
		assert.Equal(t, "Test Token", st.Snapshot.UnderlyingName)

		st = putAmount(t, s, vault.KindDeposit, "50")
		assert.Equal(t, "50", st.RequestedAmount.String())
		assert.True(t, st.ApproveEnabled)
		assert.True(t, st.ActEnabled)

		st = post(t, s, vault.KindDeposit, "approve", http.StatusAccepted)
		assert.Equal(t, workflow.PhaseAwaitingApproveConfirm, st.Phase)
		assert.False(t, st.ApproveEnabled)
		assert.False(t, st.ActEnabled)
		require.NotNil(t, st.Pending)
		assert.Equal(t, vault.TxApprove, st.Pending.Kind)
		approveHash := st.Pending.Hash

		// a second submit while pending is rejected
		assertError(t, s, "POST", "/api/v1/vault/deposit/act", nil, http.StatusConflict, httperrors.HTTPErrorTypeTransactionPending)

		fc.Confirm()
		st = waitForState(t, s, vault.KindDeposit, func(st vaulthandler.StateResponse) bool {
			return st.Phase == workflow.PhaseIdle
		})
		assert.True(t, st.ActEnabled)
		assert.Nil(t, st.Pending)
		assert.Equal(t, "50", st.Snapshot.Allowance.String())
		assert.Equal(t, "50", st.RequestedAmount.String())

		st = post(t, s, vault.KindDeposit, "act", http.StatusAccepted)
		assert.Equal(t, workflow.PhaseAwaitingActConfirm, st.Phase)

		fc.Confirm()
		st = waitForState(t, s, vault.KindDeposit, func(st vaulthandler.StateResponse) bool {
			return st.Phase == workflow.PhaseIdle
		})
		assert.True(t, st.RequestedAmount.IsZero())
		assert.Equal(t, "50", st.Snapshot.UnderlyingBalance.String())
		assert.Equal(t, "50", st.Snapshot.VaultShareBalance.String())

		submissions := fc.Submissions()
		require.Len(t, submissions, 2)
		assert.Equal(t, "approve", submissions[0].Call.Method)
		assert.Equal(t, fakechain.Underlying, submissions[0].Call.Contract)
		assert.Equal(t, []any{fakechain.Vault, big.NewInt(50)}, submissions[0].Call.Args)
		assert.Equal(t, "deposit", submissions[1].Call.Method)
		assert.Equal(t, []any{big.NewInt(50), fakechain.Account}, submissions[1].Call.Args)

		// receipt of the confirmed approval
		res := test.PerformRequest(t, s, "GET", "/api/v1/vault/receipts/"+approveHash.Hex(), nil, test.APIHeaders())
		require.Equal(t, http.StatusOK, res.Result().StatusCode, res.Body.String())

		var receipt vaulthandler.GetReceiptResponse
		test.ParseResponseAndValidate(t, res, &receipt)
		assert.Equal(t, approveHash, receipt.TxHash)
		assert.True(t, receipt.Success)
		assert.Nil(t, receipt.Ledger)
	})
}

func TestDepositScenarios(t *testing.T) {
	tests := []struct {
		name       string
		allowance  int64
		balance    int64
		amount     string
		actEnabled bool
	}{
		{"balance covers amount", 0, 100, "50", true},
		{"neither allowance nor balance covers amount", 0, 10, "50", false},
		{"allowance covers amount", 60, 10, "50", true},
		{"non numeric amount is zero", 0, 0, "abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test.WithTestServerAndChain(t, func(s *api.Server, fc *fakechain.Chain) {
				fc.SetState(tt.allowance, tt.balance, 0)
				_, err := s.Reader.Refresh(t.Context())
				require.NoError(t, err)

				post(t, s, vault.KindDeposit, "open", http.StatusOK)
				st := putAmount(t, s, vault.KindDeposit, tt.amount)
				assert.Equal(t, tt.actEnabled, st.ActEnabled)
			})
		})
	}
}

func TestDepositApproveExceedingBalance(t *testing.T) {
	test.WithTestServerAndChain(t, func(s *api.Server, fc *fakechain.Chain) {
		fc.SetState(0, 100, 0)
		_, err := s.Reader.Refresh(t.Context())
		require.NoError(t, err)

		post(t, s, vault.KindDeposit, "open", http.StatusOK)
		putAmount(t, s, vault.KindDeposit, "150")

		assertError(t, s, "POST", "/api/v1/vault/deposit/approve", nil, http.StatusUnprocessableEntity, httperrors.HTTPErrorTypeSubmissionRejected)
		assert.Empty(t, fc.Submissions())

		st := getState(t, s, vault.KindDeposit, http.Header{"Accept-Language": []string{"de-DE,de;q=0.9"}})
		require.NotNil(t, st.LastFailure)
		assert.Equal(t, vault.SubmissionRejected, st.LastFailure.Kind)
		assert.Equal(t, workflow.PhaseIdle, st.Phase)
		assert.True(t, strings.HasPrefix(st.FailureMessage, "Die Transaktion wurde nicht gesendet"), st.FailureMessage)
		assert.Equal(t, "Bereit", st.Status)
	})
}

func TestRedeemMaxAndAct(t *testing.T) {
	test.WithTestServerAndChain(t, func(s *api.Server, fc *fakechain.Chain) {
		fc.SetState(0, 0, 200)
		_, err := s.Reader.Refresh(t.Context())
		require.NoError(t, err)

		st := post(t, s, vault.KindRedeem, "open", http.StatusOK)
		assert.False(t, st.ApproveEnabled)
		assert.True(t, st.ActEnabled)
		assert.Equal(t, "200", st.Snapshot.PreviewedAssets.String())

		st = post(t, s, vault.KindRedeem, "max", http.StatusOK)
		assert.Equal(t, "200", st.RequestedAmount.String())

		assertError(t, s, "POST", "/api/v1/vault/redeem/approve", nil, http.StatusBadRequest, httperrors.HTTPErrorTypeApprovalNotNeeded)

		post(t, s, vault.KindRedeem, "act", http.StatusAccepted)
		waitForState(t, s, vault.KindRedeem, func(st vaulthandler.StateResponse) bool {
			return st.Phase == workflow.PhaseIdle && st.Snapshot.VaultShareBalance.IsZero()
		})

		submissions := fc.Submissions()
		require.Len(t, submissions, 1)
		assert.Equal(t, "redeem", submissions[0].Call.Method)
		assert.Equal(t, fakechain.Vault, submissions[0].Call.Contract)
		assert.Equal(t, []any{big.NewInt(200), fakechain.Account, fakechain.Account}, submissions[0].Call.Args)
	})
}

func TestCloseResetsAmount(t *testing.T) {
	test.WithTestServerAndChain(t, func(s *api.Server, fc *fakechain.Chain) {
		fc.SetState(0, 100, 0)
		_, err := s.Reader.Refresh(t.Context())
		require.NoError(t, err)

		post(t, s, vault.KindDeposit, "open", http.StatusOK)
		putAmount(t, s, vault.KindDeposit, "70")

		st := post(t, s, vault.KindDeposit, "close", http.StatusOK)
		assert.False(t, st.Open)
		assert.True(t, st.RequestedAmount.IsZero())

		assertError(t, s, "PUT", "/api/v1/vault/deposit/amount", map[string]string{"amount": "5"}, http.StatusConflict, httperrors.HTTPErrorTypeWorkflowClosed)
		assertError(t, s, "POST", "/api/v1/vault/deposit/act", nil, http.StatusConflict, httperrors.HTTPErrorTypeWorkflowClosed)

		st = post(t, s, vault.KindDeposit, "open", http.StatusOK)
		assert.True(t, st.RequestedAmount.IsZero())
		// allowance 0 enables approve without any edit
		assert.True(t, st.ApproveEnabled)
	})
}

func TestPutAmountInvalidBody(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		post(t, s, vault.KindDeposit, "open", http.StatusOK)

		assertError(t, s, "PUT", "/api/v1/vault/deposit/amount", map[string]int{"amount": 5}, http.StatusBadRequest, httperrors.HTTPErrorTypeInvalidAmount)
		assertError(t, s, "PUT", "/api/v1/vault/deposit/amount", map[string]string{}, http.StatusBadRequest, httperrors.HTTPErrorTypeInvalidAmount)
	})
}

func TestPostRefresh(t *testing.T) {
	test.WithTestServerAndChain(t, func(s *api.Server, fc *fakechain.Chain) {
		fc.SetState(5, 100, 20)

		res := test.PerformRequest(t, s, "POST", "/api/v1/vault/refresh", nil, test.APIHeaders())
		require.Equal(t, http.StatusOK, res.Result().StatusCode, res.Body.String())

		var snapshot vault.Snapshot
		test.ParseResponseAndValidate(t, res, &snapshot)
		assert.Equal(t, "5", snapshot.Allowance.String())
		assert.Equal(t, "100", snapshot.UnderlyingBalance.String())
		assert.Equal(t, "20", snapshot.VaultShareBalance.String())
		assert.Equal(t, fc.Block(), snapshot.BlockNumber)

		fc.SetReadErr(errors.New("rpc down"))
		assertError(t, s, "POST", "/api/v1/vault/refresh", nil, http.StatusBadGateway, httperrors.HTTPErrorTypeReadFailure)

		// the previous snapshot stays authoritative
		st := getState(t, s, vault.KindDeposit, nil)
		require.NotNil(t, st.Snapshot)
		assert.Equal(t, "100", st.Snapshot.UnderlyingBalance.String())
	})
}

func TestGetTransactionsLedgerDisabled(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		assertError(t, s, "GET", "/api/v1/vault/deposit/transactions", nil, http.StatusNotFound, httperrors.HTTPErrorTypeLedgerDisabled)
	})
}

func TestGetReceiptErrors(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/api/v1/vault/receipts/0x1234", nil, test.APIHeaders())
		require.Equal(t, http.StatusBadRequest, res.Result().StatusCode)

		res = test.PerformRequest(t, s, "GET", "/api/v1/vault/receipts/"+common.HexToHash("0x42").Hex(), nil, test.APIHeaders())
		require.Equal(t, http.StatusNotFound, res.Result().StatusCode)
	})
}

func TestStream(t *testing.T) {
	test.WithTestServerAndChain(t, func(s *api.Server, fc *fakechain.Chain) {
		fc.SetState(0, 100, 0)
		_, err := s.Reader.Refresh(t.Context())
		require.NoError(t, err)

		srv := httptestServer(t, s)
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/vault/deposit/ws"

		conn, res, err := websocket.DefaultDialer.Dial(url, test.APIHeaders())
		require.NoError(t, err)
		defer res.Body.Close()
		defer conn.Close()

		var st vaulthandler.StateResponse
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&st))
		assert.Equal(t, vault.KindDeposit, st.Kind)
		assert.False(t, st.Open)

		post(t, s, vault.KindDeposit, "open", http.StatusOK)
		putAmount(t, s, vault.KindDeposit, "30")

		for st.RequestedAmount.String() != "30" {
			require.NoError(t, conn.ReadJSON(&st))
		}
		assert.True(t, st.Open)
		assert.True(t, st.ActEnabled)
	})
}

func TestAPIRequiresKey(t *testing.T) {
	test.WithTestServerAndChain(t, func(s *api.Server, fc *fakechain.Chain) {
		fc.SetState(0, 100, 0)
		_, err := s.Reader.Refresh(t.Context())
		require.NoError(t, err)

		post(t, s, vault.KindDeposit, "open", http.StatusOK)
		putAmount(t, s, vault.KindDeposit, "40")

		unauthorized := []http.Header{
			nil,
			{echo.HeaderAuthorization: []string{"Bearer wrong-secret"}},
			{echo.HeaderAuthorization: []string{test.APISecret}},
		}
		for _, headers := range unauthorized {
			for _, path := range []string{"/api/v1/vault/deposit/act", "/api/v1/vault/deposit/approve", "/api/v1/vault/deposit/open"} {
				res := test.PerformRequest(t, s, "POST", path, nil, headers)
				require.Equal(t, http.StatusUnauthorized, res.Result().StatusCode, res.Body.String())

				var httpErr httperrors.PublicHTTPError
				test.ParseResponseAndValidate(t, res, &httpErr)
				assert.Equal(t, httperrors.HTTPErrorTypeInvalidAPIKey, httpErr.Type)
			}
		}

		res := test.PerformRequest(t, s, "GET", "/api/v1/vault/deposit", nil, nil)
		require.Equal(t, http.StatusUnauthorized, res.Result().StatusCode)
		assert.Empty(t, fc.Submissions())

		// query parameter for clients that cannot set headers
		res = test.PerformRequest(t, s, "POST", "/api/v1/vault/deposit/act?api-key="+test.APISecret, nil, nil)
		require.Equal(t, http.StatusAccepted, res.Result().StatusCode, res.Body.String())
		require.Len(t, fc.Submissions(), 1)
		assert.Equal(t, "deposit", fc.Submissions()[0].Call.Method)
	})
}

func TestAPIKeyWithHeader(t *testing.T) {
	test.WithTestServerAndChain(t, func(s *api.Server, fc *fakechain.Chain) {
		fc.SetState(0, 0, 200)
		_, err := s.Reader.Refresh(t.Context())
		require.NoError(t, err)

		post(t, s, vault.KindRedeem, "open", http.StatusOK)
		post(t, s, vault.KindRedeem, "max", http.StatusOK)

		res := test.PerformRequest(t, s, "POST", "/api/v1/vault/redeem/act", nil, test.APIHeaders())
		require.Equal(t, http.StatusAccepted, res.Result().StatusCode, res.Body.String())
		require.Len(t, fc.Submissions(), 1)
	})
}

func TestStreamRejectsKeyAndOrigin(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		srv := httptestServer(t, s)
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/vault/deposit/ws"

		_, res, err := websocket.DefaultDialer.Dial(url, nil)
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.NotNil(t, res)
		defer res.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

		headers := test.APIHeaders()
		headers.Set("Origin", "https://evil.example")
		_, res, err = websocket.DefaultDialer.Dial(url, headers)
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.NotNil(t, res)
		defer res.Body.Close()
		assert.Equal(t, http.StatusForbidden, res.StatusCode)

		// same origin as the server
		conn, res, err := websocket.DefaultDialer.Dial(url+"?api-key="+test.APISecret, http.Header{"Origin": []string{srv.URL}})
		require.NoError(t, err)
		defer res.Body.Close()
		conn.Close()
	})
}

func TestStreamAllowedOrigin(t *testing.T) {
	cfg := test.Config()
	cfg.Echo.AllowedOrigins = []string{"https://app.example"}

	test.WithTestServerConfigurable(t, cfg, func(s *api.Server, _ *fakechain.Chain) {
		srv := httptestServer(t, s)
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/vault/redeem/ws"

		headers := test.APIHeaders()
		headers.Set("Origin", "https://app.example")
		conn, res, err := websocket.DefaultDialer.Dial(url, headers)
		require.NoError(t, err)
		defer res.Body.Close()
		defer conn.Close()

		var st vaulthandler.StateResponse
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&st))
		assert.Equal(t, vault.KindRedeem, st.Kind)
	})
}
