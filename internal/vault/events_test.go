package vault_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github/chapool/yield-vault/internal/vault"
)

func TestFanout(t *testing.T) {
	var got []vault.EventType
	record := vault.SinkFunc(func(_ context.Context, e vault.Event) {
		got = append(got, e.Type)
	})

	fanout := vault.NewFanout(vault.LogSink{}, record)
	fanout.Report(t.Context(), vault.Event{Type: vault.EventTxSubmitted})

	fanout.Add(record)
	fanout.Report(t.Context(), vault.Event{Type: vault.EventTxConfirmed})

	assert.Equal(t, []vault.EventType{vault.EventTxSubmitted, vault.EventTxConfirmed, vault.EventTxConfirmed}, got)
}

func TestSinksSkipsNil(t *testing.T) {
	calls := 0
	sinks := vault.Sinks{nil, vault.SinkFunc(func(context.Context, vault.Event) { calls++ })}
	sinks.Report(t.Context(), vault.Event{Type: vault.EventReadFailure})
	assert.Equal(t, 1, calls)
}
