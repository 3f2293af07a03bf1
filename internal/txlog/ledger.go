// Package txlog records every vault transaction in postgres.
package txlog

import (
	"context"
	"database/sql"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/yield-vault/internal/vault"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusRejected  Status = "rejected"
)

const defaultListLimit = 50

type Entry struct {
	ID          string     `json:"id"`
	Workflow    vault.Kind `json:"workflow"`
	TxKind      string     `json:"txKind"`
	Status      Status     `json:"status"`
	TxHash      string     `json:"txHash,omitempty"`
	Amount      string     `json:"amount"`
	ChainID     int64      `json:"chainId"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
	SettledAt   *time.Time `json:"settledAt,omitempty"`
}

// Ledger is a vault.Sink writing transaction lifecycle events to postgres.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

func (l *Ledger) Report(ctx context.Context, e vault.Event) {
	var err error

	switch e.Type {
	case vault.EventTxSubmitted:
		err = l.insert(ctx, e.PendingID, e, StatusPending, nil)
	case vault.EventSubmissionRejected:
		settled := e.At
		err = l.insert(ctx, uuid.New().String(), e, StatusRejected, &settled)
	case vault.EventTxConfirmed:
		err = l.settle(ctx, e, StatusConfirmed)
	case vault.EventConfirmationFailure:
		err = l.settle(ctx, e, StatusFailed)
	default:
		return
	}

	if err != nil {
		log.Error().Err(err).Str("event", string(e.Type)).Str("pending_id", e.PendingID).Msg("Failed to record transaction")
	}
}

func (l *Ledger) insert(ctx context.Context, id string, e vault.Event, status Status, settledAt *time.Time) error {
	submittedAt := e.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = e.At
	}
	if submittedAt.IsZero() {
		submittedAt = l.now()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO vault_transactions
			(id, workflow, tx_kind, status, tx_hash, amount, chain_id, error, submitted_at, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, string(e.Workflow), string(e.TxKind), string(status), txHash(e), e.Amount.String(), e.ChainID, errorText(e), submittedAt, settledAt)
	if err != nil {
		return errors.Wrap(err, "failed to insert vault transaction")
	}

	return nil
}

func (l *Ledger) settle(ctx context.Context, e vault.Event, status Status) error {
	settledAt := e.At
	if settledAt.IsZero() {
		settledAt = l.now()
	}

	res, err := l.db.ExecContext(ctx, `
		UPDATE vault_transactions
		SET status = $2, error = $3, settled_at = $4, updated_at = now()
		WHERE id = $1`,
		e.PendingID, string(status), errorText(e), settledAt)
	if err != nil {
		return errors.Wrap(err, "failed to update vault transaction")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// submitted before the ledger was attached
		return l.insert(ctx, e.PendingID, e, status, &settledAt)
	}

	return nil
}

// List returns the latest transactions of workflow, newest first. An empty
// workflow lists all.
func (l *Ledger) List(ctx context.Context, workflow vault.Kind, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, workflow, tx_kind, status, COALESCE(tx_hash, ''), amount::text, chain_id, COALESCE(error, ''), submitted_at, settled_at
		FROM vault_transactions
		WHERE $1 = '' OR workflow = $1
		ORDER BY submitted_at DESC
		LIMIT $2`, string(workflow), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query vault transactions")
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			entry     Entry
			settledAt sql.NullTime
		)
		if err := rows.Scan(&entry.ID, &entry.Workflow, &entry.TxKind, &entry.Status, &entry.TxHash, &entry.Amount,
			&entry.ChainID, &entry.Error, &entry.SubmittedAt, &settledAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan vault transaction")
		}
		if settledAt.Valid {
			entry.SettledAt = &settledAt.Time
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate vault transactions")
	}

	return entries, nil
}

func txHash(e vault.Event) *string {
	if e.TxHash == (common.Hash{}) {
		return nil
	}
	h := e.TxHash.Hex()
	return &h
}

func errorText(e vault.Event) *string {
	if e.Err == nil {
		return nil
	}
	msg := e.Err.Error()
	return &msg
}

// FindByHash returns the entry of the transaction with hash, or nil.
func (l *Ledger) FindByHash(ctx context.Context, hash common.Hash) (*Entry, error) {
	var (
		entry     Entry
		settledAt sql.NullTime
	)

	err := l.db.QueryRowContext(ctx, `
		SELECT id, workflow, tx_kind, status, COALESCE(tx_hash, ''), amount::text, chain_id, COALESCE(error, ''), submitted_at, settled_at
		FROM vault_transactions
		WHERE tx_hash = $1`, hash.Hex()).Scan(&entry.ID, &entry.Workflow, &entry.TxKind, &entry.Status, &entry.TxHash, &entry.Amount,
		&entry.ChainID, &entry.Error, &entry.SubmittedAt, &settledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query vault transaction")
	}

	if settledAt.Valid {
		entry.SettledAt = &settledAt.Time
	}

	return &entry, nil
}
