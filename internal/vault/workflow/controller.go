// Package workflow drives the approve-then-act state machine of the deposit
// and redeem dialogs.
package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github/chapool/yield-vault/internal/util"
	"github/chapool/yield-vault/internal/vault"
	"github/chapool/yield-vault/internal/vault/gate"
	"github/chapool/yield-vault/internal/vault/orchestrator"
	"github/chapool/yield-vault/internal/vault/reader"
)

// SnapshotSource provides the shared chain snapshot.
type SnapshotSource interface {
	Snapshot() (*vault.Snapshot, bool)
	Subscribe(fn reader.Listener) func()
}

// Orchestrator submits and tracks the workflow's transactions.
type Orchestrator interface {
	SubmitApprove(ctx context.Context, spender common.Address, amount vault.Amount, done orchestrator.DoneFunc) (orchestrator.PendingTransaction, error)
	SubmitAct(ctx context.Context, amount vault.Amount, owner common.Address, done orchestrator.DoneFunc) (orchestrator.PendingTransaction, error)
	Abandon()
}

type Listener func(State)

// Controller is one workflow instance. It can be opened and closed any
// number of times; every open starts from amount 0.
type Controller struct {
	kind      vault.Kind
	contracts vault.Contracts
	account   common.Address
	source    SnapshotSource
	orch      Orchestrator
	sink      vault.Sink

	mu          sync.Mutex
	open        bool
	phase       Phase
	submitting  bool
	amount      vault.Amount
	edited      bool
	unlocked    bool
	pending     *orchestrator.PendingTransaction
	lastFailure *vault.Failure
	cycle       uint64
	version     uint64

	listenersMu sync.Mutex
	listeners   map[uint64]Listener
	nextID      uint64

	unsubscribe func()
}

func NewController(kind vault.Kind, contracts vault.Contracts, chainCtx vault.ChainContext, source SnapshotSource, orch Orchestrator, sink vault.Sink) (*Controller, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(source, "source"),
		vala.IsNotNil(orch, "orchestrator"),
		vala.StringNotEmpty(string(kind), "kind"),
	).Check(); err != nil {
		return nil, errors.Wrap(err, "invalid workflow arguments")
	}

	if sink == nil {
		sink = vault.LogSink{}
	}

	c := &Controller{
		kind:      kind,
		contracts: contracts,
		account:   chainCtx.Account,
		source:    source,
		orch:      orch,
		sink:      sink,
		phase:     PhaseIdle,
		listeners: map[uint64]Listener{},
	}

	c.unsubscribe = source.Subscribe(c.onSnapshot)

	return c, nil
}

func (c *Controller) Kind() vault.Kind {
	return c.kind
}

// Stop detaches the controller from the snapshot source and abandons tracking.
func (c *Controller) Stop() {
	c.Close()
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// State returns the current state with enablement derived from the latest snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stateLocked()
}

// Subscribe registers fn for state changes. The returned func unsubscribes.
func (c *Controller) Subscribe(fn Listener) func() {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.listeners, id)
	}
}

// Open starts a new cycle with amount 0. Opening an open workflow is a no-op.
func (c *Controller) Open() State {
	c.mu.Lock()
	if c.open {
		st := c.stateLocked()
		c.mu.Unlock()
		return st
	}

	c.reset()
	c.open = true
	st := c.changedLocked()
	c.mu.Unlock()

	c.notify(st)
	return st
}

// Close resets the workflow and stops tracking a pending transaction. The
// transaction itself may still be mined.
func (c *Controller) Close() State {
	c.orch.Abandon()

	c.mu.Lock()
	wasOpen := c.open
	c.reset()
	c.open = false
	st := c.changedLocked()
	c.mu.Unlock()

	if wasOpen {
		c.notify(st)
	}
	return st
}

// SetAmount sets the requested amount from user input. Input that is not a
// non-negative integer becomes 0.
func (c *Controller) SetAmount(raw string) (State, error) {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return State{}, vault.ErrWorkflowClosed
	}

	c.edited = true
	c.setAmountLocked(vault.ParseAmount(raw))
	st := c.changedLocked()
	c.mu.Unlock()

	c.notify(st)
	return st, nil
}

// SetMaxAmount selects the full underlying balance (deposit) or share balance (redeem).
func (c *Controller) SetMaxAmount() (State, error) {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return State{}, vault.ErrWorkflowClosed
	}

	snapshot, _ := c.source.Snapshot()
	c.setAmountLocked(gate.MaxAmount(c.kind, snapshot))
	st := c.changedLocked()
	c.mu.Unlock()

	c.notify(st)
	return st, nil
}

// Approve submits an approval of the vault for exactly the requested amount.
func (c *Controller) Approve(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.kind != vault.KindDeposit {
		c.mu.Unlock()
		return State{}, vault.ErrApprovalNotRequired
	}

	if err := c.checkActionLocked(func(s State) bool { return s.ApproveEnabled }); err != nil {
		c.mu.Unlock()
		return State{}, err
	}

	snapshot, _ := c.source.Snapshot()
	if !gate.CanApprove(snapshot, c.amount) {
		failure := vault.NewFailure(vault.SubmissionRejected, string(vault.TxApprove), vault.ErrExceedsBalance)
		c.lastFailure = failure
		st := c.changedLocked()
		amount := c.amount
		c.mu.Unlock()

		c.sink.Report(ctx, vault.Event{
			Type:     vault.EventSubmissionRejected,
			Workflow: c.kind,
			TxKind:   vault.TxApprove,
			Amount:   amount,
			Err:      failure,
			At:       time.Now(),
		})
		c.notify(st)
		return st, failure
	}

	return c.submitLocked(ctx, vault.TxApprove, PhaseAwaitingApproveConfirm, func(amount vault.Amount, done orchestrator.DoneFunc) (orchestrator.PendingTransaction, error) {
		return c.orch.SubmitApprove(ctx, c.contracts.Vault, amount, done)
	})
}

// Act submits the deposit or redeem of the requested amount.
func (c *Controller) Act(ctx context.Context) (State, error) {
	c.mu.Lock()
	if err := c.checkActionLocked(func(s State) bool { return s.ActEnabled }); err != nil {
		c.mu.Unlock()
		return State{}, err
	}

	return c.submitLocked(ctx, vault.TxAct, PhaseAwaitingActConfirm, func(amount vault.Amount, done orchestrator.DoneFunc) (orchestrator.PendingTransaction, error) {
		return c.orch.SubmitAct(ctx, amount, c.account, done)
	})
}

func (c *Controller) checkActionLocked(enabled func(State) bool) error {
	if !c.open {
		return vault.ErrWorkflowClosed
	}
	if c.phase != PhaseIdle || c.submitting {
		return vault.ErrTransactionPending
	}
	if _, ok := c.source.Snapshot(); !ok {
		return vault.ErrNoSnapshot
	}
	if !enabled(c.stateLocked()) {
		return vault.ErrActionDisabled
	}
	return nil
}

type submitFunc func(amount vault.Amount, done orchestrator.DoneFunc) (orchestrator.PendingTransaction, error)

// submitLocked is called with c.mu held and releases it before talking to the
// orchestrator, which may block on signing and broadcasting.
func (c *Controller) submitLocked(ctx context.Context, txKind vault.TxKind, phase Phase, submit submitFunc) (State, error) {
	cycle := c.cycle
	amount := c.amount
	c.submitting = true
	c.lastFailure = nil
	st := c.changedLocked()
	c.mu.Unlock()
	c.notify(st)

	// the done callback may fire before the pending transaction is recorded below
	ready := make(chan struct{})
	defer close(ready)

	pending, err := submit(amount, func(r orchestrator.Result) {
		<-ready
		c.onDone(cycle, txKind, r)
	})

	c.mu.Lock()
	if c.cycle != cycle {
		// closed while submitting
		st = c.stateLocked()
		c.mu.Unlock()
		return st, err
	}

	c.submitting = false
	if err != nil {
		if failure, ok := asFailure(err); ok {
			c.lastFailure = failure
		}
	} else {
		c.phase = phase
		c.pending = &pending
	}
	st = c.changedLocked()
	c.mu.Unlock()

	c.notify(st)

	if err == nil {
		util.LogFromContext(ctx).Debug().
			Str("workflow", string(c.kind)).
			Str("tx_kind", string(txKind)).
			Str("tx_hash", pending.Hash.Hex()).
			Msg("Awaiting confirmation")
	}

	return st, err
}

func (c *Controller) onDone(cycle uint64, txKind vault.TxKind, r orchestrator.Result) {
	c.mu.Lock()
	if c.cycle != cycle || !c.open {
		c.mu.Unlock()
		return
	}

	c.phase = PhaseIdle
	c.pending = nil

	if r.Err != nil {
		if failure, ok := asFailure(r.Err); ok {
			c.lastFailure = failure
		}
	} else {
		c.lastFailure = nil
		switch txKind {
		case vault.TxApprove:
			c.unlocked = true
		case vault.TxAct:
			c.amount = vault.Amount{}
			c.edited = false
			c.unlocked = false
		}
	}

	st := c.changedLocked()
	c.mu.Unlock()

	c.notify(st)
}

func (c *Controller) onSnapshot(_ *vault.Snapshot) {
	c.mu.Lock()
	st := c.changedLocked()
	c.mu.Unlock()

	c.notify(st)
}

func (c *Controller) setAmountLocked(amount vault.Amount) {
	if amount.Cmp(c.amount) != 0 {
		c.unlocked = false
	}
	c.amount = amount
}

func (c *Controller) reset() {
	c.phase = PhaseIdle
	c.submitting = false
	c.amount = vault.Amount{}
	c.edited = false
	c.unlocked = false
	c.pending = nil
	c.lastFailure = nil
	c.cycle++
}

func (c *Controller) changedLocked() State {
	c.version++
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	snapshot, _ := c.source.Snapshot()

	st := State{
		Kind:            c.kind,
		Open:            c.open,
		Phase:           c.phase,
		Submitting:      c.submitting,
		RequestedAmount: c.amount,
		LastFailure:     c.lastFailure,
		Snapshot:        snapshot,
		Version:         c.version,
	}
	if c.pending != nil {
		pending := *c.pending
		st.Pending = &pending
	}

	if !c.open || c.phase != PhaseIdle || c.submitting {
		return st
	}

	decision := gate.Evaluate(gate.Input{
		Kind:     c.kind,
		Snapshot: snapshot,
		Amount:   c.amount,
		Edited:   c.edited,
	})
	st.ApproveEnabled = decision.ApproveEnabled
	st.ActEnabled = decision.ActEnabled || (c.unlocked && snapshot != nil)

	return st
}

func (c *Controller) notify(st State) {
	c.listenersMu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
}

func asFailure(err error) (*vault.Failure, bool) {
	var f *vault.Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
