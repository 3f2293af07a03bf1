package vault

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EventType names an observable event of the core.
type EventType string

const (
	EventSnapshotUpdated     EventType = "snapshot_updated"
	EventReadFailure         EventType = "read_failure"
	EventTxSubmitted         EventType = "tx_submitted"
	EventTxConfirmed         EventType = "tx_confirmed"
	EventSubmissionRejected  EventType = "submission_rejected"
	EventConfirmationFailure EventType = "confirmation_failure"
)

// Event is reported to a Sink. Only the fields relevant to Type are set.
type Event struct {
	Type        EventType
	Workflow    Kind
	TxKind      TxKind
	PendingID   string
	TxHash      common.Hash
	Amount      Amount
	ChainID     int64
	BlockNumber uint64
	Err         error
	SubmittedAt time.Time
	At          time.Time
}

// Sink receives events of the core. Implementations must not block for long
// and must be safe for concurrent use.
type Sink interface {
	Report(ctx context.Context, event Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, event Event)

func (f SinkFunc) Report(ctx context.Context, event Event) {
	f(ctx, event)
}

// Sinks fans an event out to every sink in order.
type Sinks []Sink

func (s Sinks) Report(ctx context.Context, event Event) {
	for _, sink := range s {
		if sink != nil {
			sink.Report(ctx, event)
		}
	}
}

// Fanout is a Sinks whose members can be added after construction.
type Fanout struct {
	mu    sync.RWMutex
	sinks Sinks
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Add(sink Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, sink)
}

func (f *Fanout) Report(ctx context.Context, event Event) {
	f.mu.RLock()
	sinks := f.sinks
	f.mu.RUnlock()

	sinks.Report(ctx, event)
}

// LogSink writes events to zerolog.
type LogSink struct{}

func (LogSink) Report(ctx context.Context, event Event) {
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &log.Logger
	}

	var e *zerolog.Event
	switch event.Type {
	case EventReadFailure, EventSubmissionRejected:
		e = logger.Warn()
	case EventConfirmationFailure:
		e = logger.Error()
	case EventSnapshotUpdated:
		e = logger.Debug()
	default:
		e = logger.Info()
	}

	e = e.Str("event", string(event.Type))
	if event.Workflow != "" {
		e = e.Str("workflow", string(event.Workflow))
	}
	if event.TxKind != "" {
		e = e.Str("tx_kind", string(event.TxKind))
	}
	if event.PendingID != "" {
		e = e.Str("pending_id", event.PendingID)
	}
	if event.TxHash != (common.Hash{}) {
		e = e.Str("tx_hash", event.TxHash.Hex())
	}
	if event.ChainID != 0 {
		e = e.Int64("chain_id", event.ChainID)
	}
	if event.BlockNumber != 0 {
		e = e.Uint64("block_number", event.BlockNumber)
	}
	if !event.Amount.IsZero() {
		e = e.Str("amount", event.Amount.String())
	}
	if event.Err != nil {
		e = e.Err(event.Err)
	}

	e.Msg("Vault workflow event")
}
