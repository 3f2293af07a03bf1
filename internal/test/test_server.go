package test

import (
	"testing"

	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/api/router"
	"github/chapool/yield-vault/internal/config"
	"github/chapool/yield-vault/internal/test/fakechain"
	"github/chapool/yield-vault/internal/vault"
)

// APISecret authorizes requests against /api/v1/vault on test servers.
const APISecret = "api-test-secret"

// FakeChainID is the chain id of the test server, one confirmation is awaited.
const FakeChainID = 5

// Config returns the server config used by tests: fakechain addresses, no
// watch loop, no ledger and no NATS.
func Config() config.Server {
	cfg := config.DefaultServiceConfigFromEnv()

	cfg.Vault.VaultAddress = fakechain.Vault.Hex()
	cfg.Vault.UnderlyingAddress = fakechain.Underlying.Hex()
	cfg.Workflow.WatchEnabled = false
	cfg.Workflow.ConfirmationThreshold = 0
	cfg.Database.Enabled = false
	cfg.NATS.Enabled = false
	cfg.Echo.EnableLoggerMiddleware = false
	cfg.Management.Secret = "mgmt-test-secret"
	cfg.Echo.APISecret = APISecret
	cfg.Echo.AllowedOrigins = []string{}

	return cfg
}

// WithTestServer returns a fully configured server backed by a fresh fakechain.
func WithTestServer(t *testing.T, closure func(s *api.Server)) {
	t.Helper()

	WithTestServerAndChain(t, func(s *api.Server, _ *fakechain.Chain) {
		t.Helper()
		closure(s)
	})
}

// WithTestServerAndChain is like WithTestServer but also hands out the fakechain
// to change the on-chain state during the test.
func WithTestServerAndChain(t *testing.T, closure func(s *api.Server, fc *fakechain.Chain)) {
	t.Helper()

	WithTestServerConfigurable(t, Config(), closure)
}

// WithTestServerConfigurable is like WithTestServerAndChain but with a custom config.
func WithTestServerConfigurable(t *testing.T, cfg config.Server, closure func(s *api.Server, fc *fakechain.Chain)) {
	t.Helper()

	fc := fakechain.New()
	s := NewTestServer(t, cfg, fc)

	defer func() {
		if errs := s.Shutdown(t.Context()); len(errs) > 0 {
			t.Errorf("failed to shutdown server: %v", errs)
		}
	}()

	closure(s, fc)
}

func NewTestServer(t *testing.T, cfg config.Server, fc *fakechain.Chain) *api.Server {
	t.Helper()

	s, err := api.InitNewServerWithChain(cfg, fc, fc, vault.ChainContext{
		ChainID: FakeChainID,
		Account: fakechain.Account,
	})
	if err != nil {
		t.Fatalf("failed to init server: %v", err)
	}

	if err := router.Init(s); err != nil {
		t.Fatalf("failed to init router: %v", err)
	}

	return s
}
