package reader_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/yield-vault/internal/chain"
	"github/chapool/yield-vault/internal/test/fakechain"
	"github/chapool/yield-vault/internal/vault"
	"github/chapool/yield-vault/internal/vault/reader"
)

type recordingSink struct {
	mu     sync.Mutex
	events []vault.Event
}

func (r *recordingSink) Report(_ context.Context, e vault.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) types() []vault.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]vault.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newService(fc reader.ReadProvider, sink vault.Sink) *reader.Service {
	return reader.NewService(fc,
		vault.Contracts{Vault: fakechain.Vault, Underlying: fakechain.Underlying},
		vault.ChainContext{ChainID: 5, Account: fakechain.Account},
		sink,
	)
}

func TestRefresh(t *testing.T) {
	fc := fakechain.New()
	fc.SetState(30, 100, 200)
	fc.SetPreviewRate(150)
	fc.SetName("Wrapped Ether")

	sink := &recordingSink{}
	svc := newService(fc, sink)

	_, ok := svc.Snapshot()
	assert.False(t, ok)

	snapshot, err := svc.Refresh(t.Context())
	require.NoError(t, err)

	assert.Equal(t, "30", snapshot.Allowance.String())
	assert.Equal(t, "100", snapshot.UnderlyingBalance.String())
	assert.Equal(t, "200", snapshot.VaultShareBalance.String())
	assert.Equal(t, "300", snapshot.PreviewedAssets.String())
	assert.Equal(t, "Wrapped Ether", snapshot.UnderlyingName)
	assert.Equal(t, fc.Block(), snapshot.BlockNumber)
	assert.False(t, snapshot.ReadAt.IsZero())

	current, ok := svc.Snapshot()
	require.True(t, ok)
	assert.Same(t, snapshot, current)

	assert.Equal(t, []vault.EventType{vault.EventSnapshotUpdated}, sink.types())
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	fc := fakechain.New()
	fc.SetState(0, 100, 0)

	sink := &recordingSink{}
	svc := newService(fc, sink)

	first, err := svc.Refresh(t.Context())
	require.NoError(t, err)

	fc.SetReadErr(errors.New("connection refused"))
	_, err = svc.Refresh(t.Context())
	require.Error(t, err)
	assert.ErrorIs(t, err, &vault.Failure{Kind: vault.ReadFailure})

	current, ok := svc.Snapshot()
	require.True(t, ok)
	assert.Same(t, first, current)
	assert.Equal(t, []vault.EventType{vault.EventSnapshotUpdated, vault.EventReadFailure}, sink.types())
}

func TestSubscribe(t *testing.T) {
	fc := fakechain.New()
	svc := newService(fc, nil)

	var got []uint64
	unsubscribe := svc.Subscribe(func(s *vault.Snapshot) {
		got = append(got, s.BlockNumber)
	})

	_, err := svc.Refresh(t.Context())
	require.NoError(t, err)

	fc.SetState(0, 1, 0)
	_, err = svc.Refresh(t.Context())
	require.NoError(t, err)

	unsubscribe()
	fc.SetState(0, 2, 0)
	_, err = svc.Refresh(t.Context())
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 2}, got)
}

// staleProvider goes back in time after the first read, like a lagging failover node.
type staleProvider struct {
	*fakechain.Chain
	blocks []uint64
}

func (p *staleProvider) LatestBlock(context.Context) (uint64, error) {
	b := p.blocks[0]
	if len(p.blocks) > 1 {
		p.blocks = p.blocks[1:]
	}
	return b, nil
}

func (p *staleProvider) ReadBatch(ctx context.Context, block uint64, calls []chain.Call) ([]any, error) {
	return p.Chain.ReadBatch(ctx, block, calls)
}

func TestOlderBlockNeverSupersedes(t *testing.T) {
	provider := &staleProvider{Chain: fakechain.New(), blocks: []uint64{10, 9}}
	svc := newService(provider, nil)

	first, err := svc.Refresh(t.Context())
	require.NoError(t, err)
	assert.Equal(t, uint64(10), first.BlockNumber)

	second, err := svc.Refresh(t.Context())
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestWatch(t *testing.T) {
	fc := fakechain.New()
	fc.SetReadErr(errors.New("node syncing"))

	sink := &recordingSink{}
	svc := newService(fc, sink)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		svc.Watch(ctx, 5*time.Millisecond)
		close(done)
	}()

	// the loop survives read failures
	require.Eventually(t, func() bool {
		return len(sink.types()) >= 2
	}, time.Second, 5*time.Millisecond)

	fc.SetReadErr(nil)
	require.Eventually(t, func() bool {
		_, ok := svc.Snapshot()
		return ok
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}
