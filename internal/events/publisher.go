// Package events publishes vault workflow events to NATS.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/yield-vault/internal/config"
	"github/chapool/yield-vault/internal/util"
	"github/chapool/yield-vault/internal/vault"
)

const connectTimeout = 10 * time.Second

// Message is the JSON payload published for every event.
type Message struct {
	Type        vault.EventType `json:"type"`
	Workflow    vault.Kind      `json:"workflow,omitempty"`
	TxKind      vault.TxKind    `json:"txKind,omitempty"`
	PendingID   string          `json:"pendingId,omitempty"`
	TxHash      string          `json:"txHash,omitempty"`
	Amount      string          `json:"amount,omitempty"`
	ChainID     int64           `json:"chainId,omitempty"`
	BlockNumber uint64          `json:"blockNumber,omitempty"`
	Error       string          `json:"error,omitempty"`
	At          time.Time       `json:"at"`
}

func NewMessage(e vault.Event) Message {
	m := Message{
		Type:        e.Type,
		Workflow:    e.Workflow,
		TxKind:      e.TxKind,
		PendingID:   e.PendingID,
		ChainID:     e.ChainID,
		BlockNumber: e.BlockNumber,
		At:          e.At,
	}
	if e.TxHash != (common.Hash{}) {
		m.TxHash = e.TxHash.Hex()
	}
	if !e.Amount.IsZero() {
		m.Amount = e.Amount.String()
	}
	if e.Err != nil {
		m.Error = e.Err.Error()
	}
	return m
}

// Subject returns "<prefix>.<event type>".
func Subject(prefix string, t vault.EventType) string {
	return prefix + "." + string(t)
}

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher is a vault.Sink publishing to NATS. Snapshot updates are not
// published, they are too frequent to be useful downstream.
type Publisher struct {
	conn   Conn
	prefix string
}

func NewPublisher(conn Conn, prefix string) *Publisher {
	return &Publisher{conn: conn, prefix: prefix}
}

// Connect dials NATS with reconnects enabled forever.
func Connect(cfg config.NATS) (*nats.Conn, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name("yield-vault"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to NATS")
	}

	return conn, nil
}

func (p *Publisher) Report(ctx context.Context, e vault.Event) {
	if e.Type == vault.EventSnapshotUpdated {
		return
	}

	data, err := json.Marshal(NewMessage(e))
	if err != nil {
		util.LogFromContext(ctx).Error().Err(err).Msg("Failed to marshal event")
		return
	}

	subject := Subject(p.prefix, e.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("Failed to publish event")
	}
}
