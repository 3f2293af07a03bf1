// Package orchestrator submits the approve and act transactions of one
// workflow and tracks them to confirmation.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github/chapool/yield-vault/internal/chain"
	"github/chapool/yield-vault/internal/util"
	"github/chapool/yield-vault/internal/vault"
)

// goerli confirms fast enough that one block is accepted there
const (
	fastChainID               = 5
	fastConfirmationThreshold = 1
	confirmationThreshold     = 3
)

// WriteSubmitter prepares, broadcasts and tracks write transactions.
type WriteSubmitter interface {
	Prepare(ctx context.Context, call chain.Call) (*chain.PreparedCall, error)
	Submit(ctx context.Context, prepared *chain.PreparedCall) (common.Hash, error)
	AwaitConfirmations(ctx context.Context, hash common.Hash, n uint64) (*types.Receipt, error)
}

// Refresher re-reads the chain snapshot.
type Refresher interface {
	Refresh(ctx context.Context) (*vault.Snapshot, error)
}

// ConfirmationThreshold returns the number of confirmations awaited on chainID.
func ConfirmationThreshold(chainID int64) uint64 {
	if chainID == fastChainID {
		return fastConfirmationThreshold
	}
	return confirmationThreshold
}

type Config struct {
	Workflow  vault.Kind
	Contracts vault.Contracts
	Chain     vault.ChainContext
	// 0 derives the threshold from the chain id.
	ConfirmationThreshold uint64
}

// PendingTransaction is the transaction currently tracked.
type PendingTransaction struct {
	ID          uuid.UUID    `json:"id"`
	Kind        vault.TxKind `json:"kind"`
	Hash        common.Hash  `json:"hash"`
	Amount      vault.Amount `json:"amount"`
	SubmittedAt time.Time    `json:"submittedAt"`
}

// Result is passed to the DoneFunc once a pending transaction settled.
type Result struct {
	Pending  PendingTransaction
	Receipt  *types.Receipt
	Snapshot *vault.Snapshot
	// nil on confirmation, a ConfirmationFailure otherwise
	Err error
}

// DoneFunc is called once per successfully submitted transaction unless the
// tracking was abandoned first.
type DoneFunc func(Result)

// Orchestrator allows at most one pending transaction at a time.
type Orchestrator struct {
	cfg       Config
	submitter WriteSubmitter
	refresher Refresher
	sink      vault.Sink
	threshold uint64
	now       func() time.Time

	mu         sync.Mutex
	busy       bool
	pending    *PendingTransaction
	generation uint64
	cancel     context.CancelFunc
}

func New(cfg Config, submitter WriteSubmitter, refresher Refresher, sink vault.Sink) (*Orchestrator, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(submitter, "submitter"),
		vala.IsNotNil(refresher, "refresher"),
		vala.StringNotEmpty(string(cfg.Workflow), "workflow"),
	).Check(); err != nil {
		return nil, errors.Wrap(err, "invalid orchestrator arguments")
	}

	if sink == nil {
		sink = vault.LogSink{}
	}

	threshold := cfg.ConfirmationThreshold
	if threshold == 0 {
		threshold = ConfirmationThreshold(cfg.Chain.ChainID)
	}

	return &Orchestrator{
		cfg:       cfg,
		submitter: submitter,
		refresher: refresher,
		sink:      sink,
		threshold: threshold,
		now:       time.Now,
	}, nil
}

func (o *Orchestrator) Threshold() uint64 {
	return o.threshold
}

// Pending returns a copy of the pending transaction, if any.
func (o *Orchestrator) Pending() (PendingTransaction, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pending == nil {
		return PendingTransaction{}, false
	}
	return *o.pending, true
}

// SubmitApprove approves spender for exactly amount on the underlying token.
func (o *Orchestrator) SubmitApprove(ctx context.Context, spender common.Address, amount vault.Amount, done DoneFunc) (PendingTransaction, error) {
	call := chain.ERC20{Address: o.cfg.Contracts.Underlying}.Approve(spender, amount.Int())
	return o.submit(ctx, vault.TxApprove, call, amount, done)
}

// SubmitAct deposits amount of underlying or redeems amount of shares,
// depending on the workflow. owner receives the result.
func (o *Orchestrator) SubmitAct(ctx context.Context, amount vault.Amount, owner common.Address, done DoneFunc) (PendingTransaction, error) {
	v := chain.Vault{Address: o.cfg.Contracts.Vault}

	var call chain.Call
	switch o.cfg.Workflow {
	case vault.KindDeposit:
		call = v.Deposit(amount.Int(), owner)
	case vault.KindRedeem:
		call = v.Redeem(amount.Int(), owner, owner)
	default:
		return PendingTransaction{}, errors.Errorf("unsupported workflow %q", o.cfg.Workflow)
	}

	return o.submit(ctx, vault.TxAct, call, amount, done)
}

// Abandon stops tracking the pending transaction. The broadcast transaction
// itself is not affected and its DoneFunc is never called.
func (o *Orchestrator) Abandon() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.busy = false
	o.pending = nil
	o.generation++
}

func (o *Orchestrator) submit(ctx context.Context, txKind vault.TxKind, call chain.Call, amount vault.Amount, done DoneFunc) (PendingTransaction, error) {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return PendingTransaction{}, vault.ErrTransactionPending
	}
	o.busy = true
	generation := o.generation
	o.mu.Unlock()

	log := util.LogFromContext(ctx).With().
		Str("workflow", string(o.cfg.Workflow)).
		Str("tx_kind", string(txKind)).
		Logger()

	hash, err := o.prepareAndSubmit(ctx, call)
	if err != nil {
		o.release(generation)

		failure := vault.NewFailure(vault.SubmissionRejected, string(txKind), err)
		log.Warn().Err(err).Msg("Transaction submission rejected")
		o.sink.Report(ctx, o.event(vault.EventSubmissionRejected, txKind, PendingTransaction{Amount: amount}, failure))

		return PendingTransaction{}, failure
	}

	pending := PendingTransaction{
		ID:          uuid.New(),
		Kind:        txKind,
		Hash:        hash,
		Amount:      amount,
		SubmittedAt: o.now(),
	}

	// tracking outlives the request that submitted the transaction
	trackCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	o.mu.Lock()
	if o.generation != generation {
		// abandoned while submitting
		o.mu.Unlock()
		cancel()
		log.Info().Str("tx_hash", hash.Hex()).Msg("Submitted transaction abandoned before tracking started")
		return pending, nil
	}
	o.pending = &pending
	o.cancel = cancel
	o.mu.Unlock()

	log.Info().
		Str("tx_hash", hash.Hex()).
		Str("pending_id", pending.ID.String()).
		Uint64("confirmations", o.threshold).
		Msg("Transaction submitted")
	o.sink.Report(ctx, o.event(vault.EventTxSubmitted, txKind, pending, nil))

	go o.track(trackCtx, generation, pending, done)

	return pending, nil
}

func (o *Orchestrator) prepareAndSubmit(ctx context.Context, call chain.Call) (common.Hash, error) {
	prepared, err := o.submitter.Prepare(ctx, call)
	if err != nil {
		return common.Hash{}, err
	}

	return o.submitter.Submit(ctx, prepared)
}

func (o *Orchestrator) track(ctx context.Context, generation uint64, pending PendingTransaction, done DoneFunc) {
	log := util.LogFromContext(ctx).With().
		Str("workflow", string(o.cfg.Workflow)).
		Str("tx_kind", string(pending.Kind)).
		Str("tx_hash", pending.Hash.Hex()).
		Logger()

	receipt, err := o.submitter.AwaitConfirmations(ctx, pending.Hash, o.threshold)
	if ctx.Err() != nil {
		log.Debug().Msg("Stopped tracking abandoned transaction")
		return
	}

	result := Result{Pending: pending, Receipt: receipt}

	if err != nil {
		result.Err = vault.NewFailure(vault.ConfirmationFailure, string(pending.Kind), err)
		if !o.finish(generation) {
			return
		}

		log.Error().Err(err).Msg("Transaction failed to confirm")
		o.sink.Report(ctx, o.event(vault.EventConfirmationFailure, pending.Kind, pending, result.Err))
		if done != nil {
			done(result)
		}
		return
	}

	if receipt != nil && receipt.BlockNumber != nil {
		log = log.With().Uint64("block_number", receipt.BlockNumber.Uint64()).Logger()
	}

	// the next step must see the post-transaction state
	snapshot, refreshErr := o.refresher.Refresh(ctx)
	if refreshErr != nil {
		log.Warn().Err(refreshErr).Msg("Failed to refresh snapshot after confirmation")
	}
	result.Snapshot = snapshot

	if !o.finish(generation) {
		return
	}

	log.Info().Msg("Transaction confirmed")
	o.sink.Report(ctx, o.event(vault.EventTxConfirmed, pending.Kind, pending, nil))
	if done != nil {
		done(result)
	}
}

// finish clears the pending transaction if it still belongs to generation.
func (o *Orchestrator) finish(generation uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.generation != generation {
		return false
	}

	o.busy = false
	o.pending = nil
	o.cancel = nil
	o.generation++

	return true
}

func (o *Orchestrator) release(generation uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.generation == generation {
		o.busy = false
	}
}

func (o *Orchestrator) event(t vault.EventType, txKind vault.TxKind, pending PendingTransaction, err error) vault.Event {
	e := vault.Event{
		Type:        t,
		Workflow:    o.cfg.Workflow,
		TxKind:      txKind,
		TxHash:      pending.Hash,
		Amount:      pending.Amount,
		ChainID:     o.cfg.Chain.ChainID,
		SubmittedAt: pending.SubmittedAt,
		Err:         err,
		At:          o.now(),
	}
	if pending.ID != uuid.Nil {
		e.PendingID = pending.ID.String()
	}
	return e
}
