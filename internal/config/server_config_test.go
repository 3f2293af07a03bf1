package config_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/yield-vault/internal/config"
)

func TestPrintServiceEnv(t *testing.T) {
	config := config.DefaultServiceConfigFromEnv()
	_, err := json.MarshalIndent(config, "", "  ")

	if err != nil {
		t.Fatal(err)
	}
}

func TestServiceConfigHidesSecrets(t *testing.T) {
	t.Setenv("WALLET_PRIVATE_KEY", "deadbeef")
	t.Setenv("WALLET_KEYSTORE_PASSWORD", "hunter2")

	cfg := config.DefaultServiceConfigFromEnv()
	require.Equal(t, "deadbeef", cfg.Wallet.PrivateKey)

	out, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "deadbeef")
	assert.NotContains(t, string(out), "hunter2")
}

func TestWorkflowDefaults(t *testing.T) {
	cfg := config.DefaultServiceConfigFromEnv()
	assert.Equal(t, uint64(0), cfg.Workflow.ConfirmationThreshold)
	assert.True(t, cfg.Workflow.WatchEnabled)
	assert.Equal(t, 4*time.Second, cfg.Workflow.WatchInterval)
}

func TestWorkflowThresholdOverride(t *testing.T) {
	t.Setenv("WORKFLOW_CONFIRMATION_THRESHOLD", "7")
	t.Setenv("CHAIN_RPC_URLS", "http://a:8545,http://b:8545")

	cfg := config.DefaultServiceConfigFromEnv()
	assert.Equal(t, uint64(7), cfg.Workflow.ConfirmationThreshold)
	assert.Equal(t, []string{"http://a:8545", "http://b:8545"}, cfg.Chain.RPCURLs)
}

func TestDatabaseConnectionString(t *testing.T) {
	db := config.Database{
		Host:             "localhost",
		Port:             5432,
		Username:         "u",
		Password:         "p",
		Database:         "vault",
		AdditionalParams: map[string]string{"sslmode": "require", "connect_timeout": "5"},
	}

	assert.Equal(t, "host=localhost port=5432 user=u password=p dbname=vault connect_timeout=5 sslmode=require", db.ConnectionString())
}

func TestLoggerLevelFallback(t *testing.T) {
	t.Setenv("SERVER_LOGGER_LEVEL", "warn")
	t.Setenv("SERVER_LOGGER_REQUEST_LEVEL", "loud")

	cfg := config.DefaultServiceConfigFromEnv()
	assert.Equal(t, zerolog.WarnLevel, cfg.Logger.Level)
	assert.Equal(t, zerolog.DebugLevel, cfg.Logger.RequestLevel)
}
