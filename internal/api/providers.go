package api

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github/chapool/yield-vault/internal/chain"
	"github/chapool/yield-vault/internal/config"
	"github/chapool/yield-vault/internal/i18n"
	"github/chapool/yield-vault/internal/metrics"
	"github/chapool/yield-vault/internal/vault"
	"github/chapool/yield-vault/internal/vault/orchestrator"
	"github/chapool/yield-vault/internal/vault/reader"
	"github/chapool/yield-vault/internal/vault/workflow"
	"github/chapool/yield-vault/internal/wallet"
	"github/chapool/yield-vault/internal/wallet/signer"
)

// PROVIDERS - define here only providers that for various reasons (e.g. cyclic dependency) can't live in their corresponding packages
// or for wrapping providers that only accept sub-configs to prevent the requirement for defining providers for sub-configs.
// https://github.com/google/wire/blob/main/docs/guide.md#defining-providers

// NewChainClient dials every configured RPC URL.
func NewChainClient(cfg config.Server) (*chain.RPCClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Chain.RequestTimeout)
	defer cancel()

	return chain.NewRPCClient(ctx, cfg.Chain.RPCURLs)
}

// NewSigner loads the signing key. Keystore passwords must already be part of
// cfg, the server never prompts.
func NewSigner(cfg config.Server) (*signer.Signer, error) {
	return wallet.LoadSigner(cfg.Wallet, nil)
}

func NewSubmitter(cfg config.Server, client *chain.RPCClient, s *signer.Signer) *chain.Submitter {
	return chain.NewSubmitter(client, s,
		chain.WithReceiptPollInterval(cfg.Workflow.ReceiptPollInterval),
		chain.WithGasBufferPercent(cfg.Workflow.GasLimitBufferPercent),
	)
}

// NewChainContext resolves the active chain of the node for the signing account.
func NewChainContext(cfg config.Server, client ChainClient, s *signer.Signer) (vault.ChainContext, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Chain.RequestTimeout)
	defer cancel()

	return wallet.ResolveChainContext(ctx, client, s.Address(), cfg.Chain.ExpectedChainID)
}

func NewContracts(cfg config.Server) (vault.Contracts, error) {
	if !common.IsHexAddress(cfg.Vault.VaultAddress) {
		return vault.Contracts{}, errors.Errorf("invalid vault address %q", cfg.Vault.VaultAddress)
	}
	if !common.IsHexAddress(cfg.Vault.UnderlyingAddress) {
		return vault.Contracts{}, errors.Errorf("invalid underlying address %q", cfg.Vault.UnderlyingAddress)
	}

	return vault.Contracts{
		Vault:      common.HexToAddress(cfg.Vault.VaultAddress),
		Underlying: common.HexToAddress(cfg.Vault.UnderlyingAddress),
	}, nil
}

// NewSink is the event fanout every component reports to. Ledger and NATS
// sinks are added later by Server.InitSinks.
func NewSink(m *metrics.Service) *vault.Fanout {
	return vault.NewFanout(vault.LogSink{}, m)
}

func NewI18N(cfg config.Server) (*i18n.Service, error) {
	return i18n.New(cfg)
}

func NewReader(client ChainClient, contracts vault.Contracts, chainCtx vault.ChainContext, sink *vault.Fanout) *reader.Service {
	return reader.NewService(client, contracts, chainCtx, sink)
}

// NewWorkflows builds the deposit and redeem controllers, each with its own
// orchestrator, sharing the reader.
func NewWorkflows(
	cfg config.Server,
	contracts vault.Contracts,
	chainCtx vault.ChainContext,
	submitter orchestrator.WriteSubmitter,
	snapshots *reader.Service,
	sink *vault.Fanout,
) (*workflow.Registry, error) {
	kinds := []vault.Kind{vault.KindDeposit, vault.KindRedeem}
	controllers := make([]*workflow.Controller, 0, len(kinds))

	for _, kind := range kinds {
		orch, err := orchestrator.New(orchestrator.Config{
			Workflow:              kind,
			Contracts:             contracts,
			Chain:                 chainCtx,
			ConfirmationThreshold: cfg.Workflow.ConfirmationThreshold,
		}, submitter, snapshots, sink)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create %s orchestrator", kind)
		}

		controller, err := workflow.NewController(kind, contracts, chainCtx, snapshots, orch, sink)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create %s workflow", kind)
		}

		controllers = append(controllers, controller)
	}

	return workflow.NewRegistry(controllers...), nil
}
