//go:build wireinject

package api

import (
	"github.com/google/wire"
	"github/chapool/yield-vault/internal/chain"
	"github/chapool/yield-vault/internal/config"
	"github/chapool/yield-vault/internal/metrics"
	"github/chapool/yield-vault/internal/vault"
	"github/chapool/yield-vault/internal/vault/orchestrator"
)

// INJECTORS - https://github.com/google/wire/blob/main/docs/guide.md#injectors

// serviceSet groups the default set of providers that are required for initing a server
var serviceSet = wire.NewSet(
	newServerWithComponents,
	NewContracts,
	NewSink,
	NewI18N,
	NewReader,
	NewWorkflows,
	metrics.New,
)

// chainSet connects to the configured RPC nodes and signs with the configured wallet.
var chainSet = wire.NewSet(
	NewChainClient,
	NewSigner,
	NewSubmitter,
	NewChainContext,
	wire.Bind(new(ChainClient), new(*chain.RPCClient)),
	wire.Bind(new(orchestrator.WriteSubmitter), new(*chain.Submitter)),
)

// InitNewServer returns a new Server instance.
func InitNewServer(
	_ config.Server,
) (*Server, error) {
	wire.Build(serviceSet, chainSet)
	return new(Server), nil
}

// InitNewServerWithChain returns a new Server instance talking to the given chain.
// All the other components are initialized via go wire according to the configuration.
func InitNewServerWithChain(
	_ config.Server,
	_ ChainClient,
	_ orchestrator.WriteSubmitter,
	_ vault.ChainContext,
) (*Server, error) {
	wire.Build(serviceSet)
	return new(Server), nil
}
