package common_test

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/test"
	"github/chapool/yield-vault/internal/test/fakechain"
)

func TestGetHealthy(t *testing.T) {
	cfg := test.Config()
	cfg.Management.ProbeWriteablePathsAbs = []string{t.TempDir()}

	test.WithTestServerConfigurable(t, cfg, func(s *api.Server, _ *fakechain.Chain) {
		_, err := s.Reader.Refresh(t.Context())
		require.NoError(t, err)

		res := test.PerformRequest(t, s, "GET", "/-/healthy?mgmt-secret="+s.Config.Management.Secret, nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		body := res.Body.String()
		assert.Contains(t, body, "Probe chain: Latest block 1")
		assert.Contains(t, body, "Touchfile written")
		assert.Contains(t, body, "Snapshot: block 1")
	})
}

func TestGetHealthyUnauthorized(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/-/healthy", nil, nil)
		require.Equal(t, http.StatusUnauthorized, res.Result().StatusCode)

		res = test.PerformRequest(t, s, "GET", "/-/healthy?mgmt-secret=wrong", nil, nil)
		require.Equal(t, http.StatusUnauthorized, res.Result().StatusCode)
	})
}

func TestGetHealthyChainDown(t *testing.T) {
	test.WithTestServerAndChain(t, func(s *api.Server, fc *fakechain.Chain) {
		fc.SetReadErr(errors.New("node unreachable"))

		res := test.PerformRequest(t, s, "GET", "/-/healthy?mgmt-secret="+s.Config.Management.Secret, nil, nil)
		require.Equal(t, http.StatusServiceUnavailable, res.Result().StatusCode)
		assert.Contains(t, res.Body.String(), "node unreachable")
	})
}

func TestGetHealthyPathNotWriteable(t *testing.T) {
	cfg := test.Config()
	cfg.Management.ProbeWriteablePathsAbs = []string{filepath.Join(t.TempDir(), "does-not-exist")}

	test.WithTestServerConfigurable(t, cfg, func(s *api.Server, _ *fakechain.Chain) {
		res := test.PerformRequest(t, s, "GET", "/-/healthy?mgmt-secret="+s.Config.Management.Secret, nil, nil)
		require.Equal(t, http.StatusServiceUnavailable, res.Result().StatusCode)
		assert.Contains(t, res.Body.String(), "Failed to write touchfile")
	})
}

func TestGetVersion(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/-/version?mgmt-secret="+s.Config.Management.Secret, nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)
		assert.NotEmpty(t, res.Body.String())
	})
}
