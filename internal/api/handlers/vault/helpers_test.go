package vault_test

import (
	"net/http/httptest"
	"testing"

	"github/chapool/yield-vault/internal/api"
)

func httptestServer(t *testing.T, s *api.Server) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(s.Echo)
	t.Cleanup(srv.Close)

	return srv
}
