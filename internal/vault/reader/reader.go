// Package reader keeps the latest consistent Snapshot of the vault state
// relevant to the connected account.
package reader

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/yield-vault/internal/chain"
	"github/chapool/yield-vault/internal/vault"
)

// ReadProvider executes block-pinned contract reads.
type ReadProvider interface {
	LatestBlock(ctx context.Context) (uint64, error)
	ReadBatch(ctx context.Context, block uint64, calls []chain.Call) ([]any, error)
}

// Listener is called with every newly published snapshot.
type Listener func(snapshot *vault.Snapshot)

// Service reads Snapshots. It is safe for concurrent use; one Service is
// shared by every workflow of the same account.
type Service struct {
	provider   ReadProvider
	underlying chain.ERC20
	vault      chain.Vault
	chainCtx   vault.ChainContext
	sink       vault.Sink
	now        func() time.Time

	// serializes refreshes so an older block never lands after a newer one
	refreshMu sync.Mutex

	mu        sync.RWMutex
	snapshot  *vault.Snapshot
	listeners map[uint64]Listener
	nextID    uint64
}

func NewService(provider ReadProvider, contracts vault.Contracts, chainCtx vault.ChainContext, sink vault.Sink) *Service {
	if sink == nil {
		sink = vault.LogSink{}
	}

	return &Service{
		provider:   provider,
		underlying: chain.ERC20{Address: contracts.Underlying},
		vault:      chain.Vault{Address: contracts.Vault},
		chainCtx:   chainCtx,
		sink:       sink,
		now:        time.Now,
		listeners:  map[uint64]Listener{},
	}
}

// Snapshot returns the latest snapshot and whether one has been read yet.
func (s *Service) Snapshot() (*vault.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot, s.snapshot != nil
}

// Subscribe registers fn for future snapshots. The returned func unsubscribes.
func (s *Service) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Refresh reads a new snapshot pinned to the latest block. On failure the
// previous snapshot stays in place and a ReadFailure is returned and reported.
func (s *Service) Refresh(ctx context.Context) (*vault.Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	snapshot, err := s.read(ctx)
	if err != nil {
		failure := vault.NewFailure(vault.ReadFailure, "refresh", err)
		s.sink.Report(ctx, vault.Event{
			Type:    vault.EventReadFailure,
			ChainID: s.chainCtx.ChainID,
			Err:     failure,
			At:      s.now(),
		})
		return nil, failure
	}

	published := s.publish(snapshot)
	if !published {
		current, _ := s.Snapshot()
		return current, nil
	}

	s.sink.Report(ctx, vault.Event{
		Type:        vault.EventSnapshotUpdated,
		ChainID:     s.chainCtx.ChainID,
		BlockNumber: snapshot.BlockNumber,
		At:          snapshot.ReadAt,
	})

	return snapshot, nil
}

// Watch refreshes every interval until ctx is done. Read failures never stop it.
func (s *Service) Watch(ctx context.Context, interval time.Duration) {
	log.Debug().Dur("interval", interval).Str("account", s.chainCtx.Account.Hex()).Msg("Starting snapshot watch")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		// errors are already reported to the sink
		_, _ = s.Refresh(ctx)

		select {
		case <-ctx.Done():
			log.Debug().Msg("Snapshot watch stopped")
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) read(ctx context.Context) (*vault.Snapshot, error) {
	account := s.chainCtx.Account

	block, err := s.provider.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}

	results, err := s.provider.ReadBatch(ctx, block, []chain.Call{
		s.underlying.Allowance(account, s.vault.Address),
		s.underlying.Name(),
		s.underlying.BalanceOf(account),
		s.vault.BalanceOf(account),
	})
	if err != nil {
		return nil, err
	}
	if len(results) != 4 {
		return nil, errors.Errorf("expected 4 read results, got %d", len(results))
	}

	allowance, err := asInt(results[0], "allowance")
	if err != nil {
		return nil, err
	}

	name, ok := results[1].(string)
	if !ok {
		return nil, errors.Errorf("name: unexpected result type %T", results[1])
	}

	balance, err := asInt(results[2], "balanceOf(underlying)")
	if err != nil {
		return nil, err
	}

	shares, err := asInt(results[3], "balanceOf(vault)")
	if err != nil {
		return nil, err
	}

	// previewRedeem depends on the share balance, so it is a second round at the same block
	preview, err := s.provider.ReadBatch(ctx, block, []chain.Call{s.vault.PreviewRedeem(shares)})
	if err != nil {
		return nil, err
	}
	if len(preview) != 1 {
		return nil, errors.Errorf("expected 1 preview result, got %d", len(preview))
	}

	assets, err := asInt(preview[0], "previewRedeem")
	if err != nil {
		return nil, err
	}

	return &vault.Snapshot{
		Allowance:         vault.NewAmount(allowance),
		UnderlyingName:    name,
		UnderlyingBalance: vault.NewAmount(balance),
		VaultShareBalance: vault.NewAmount(shares),
		PreviewedAssets:   vault.NewAmount(assets),
		BlockNumber:       block,
		ReadAt:            s.now(),
	}, nil
}

// publish stores snapshot unless a newer one is already in place, then
// notifies listeners outside the lock.
func (s *Service) publish(snapshot *vault.Snapshot) bool {
	s.mu.Lock()
	if s.snapshot != nil && snapshot.BlockNumber < s.snapshot.BlockNumber {
		s.mu.Unlock()
		log.Debug().
			Uint64("block_number", snapshot.BlockNumber).
			Uint64("current_block_number", s.snapshot.BlockNumber).
			Msg("Discarding snapshot older than the current one")
		return false
	}

	s.snapshot = snapshot
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}

	return true
}

func asInt(v any, what string) (*big.Int, error) {
	n, ok := v.(*big.Int)
	if !ok || n == nil {
		return nil, errors.Errorf("%s: unexpected result type %T", what, v)
	}
	return n, nil
}
