package gate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github/chapool/yield-vault/internal/vault"
	"github/chapool/yield-vault/internal/vault/gate"
)

func snapshot(allowance, balance, shares uint64) *vault.Snapshot {
	return &vault.Snapshot{
		Allowance:         vault.AmountFromUint64(allowance),
		UnderlyingBalance: vault.AmountFromUint64(balance),
		VaultShareBalance: vault.AmountFromUint64(shares),
	}
}

func TestDepositActRule(t *testing.T) {
	values := []uint64{0, 1, 10, 50, 100, 1000}

	for _, allowance := range values {
		for _, balance := range values {
			for _, amount := range values {
				d := gate.Evaluate(gate.Input{
					Kind:     vault.KindDeposit,
					Snapshot: snapshot(allowance, balance, 0),
					Amount:   vault.AmountFromUint64(amount),
				})

				want := !(allowance < amount && balance < amount)
				assert.Equal(t, want, d.ActEnabled, "allowance=%d balance=%d amount=%d", allowance, balance, amount)
			}
		}
	}
}

func TestDepositScenarios(t *testing.T) {
	// allowance 0, balance 100, amount 50
	d := gate.Evaluate(gate.Input{Kind: vault.KindDeposit, Snapshot: snapshot(0, 100, 0), Amount: vault.AmountFromUint64(50)})
	assert.True(t, d.ActEnabled)
	assert.True(t, d.ApproveEnabled)

	// allowance 0, balance 10, amount 50
	d = gate.Evaluate(gate.Input{Kind: vault.KindDeposit, Snapshot: snapshot(0, 10, 0), Amount: vault.AmountFromUint64(50)})
	assert.False(t, d.ActEnabled)
}

func TestDepositApproveEnabled(t *testing.T) {
	s := snapshot(30, 100, 0)
	amount := vault.AmountFromUint64(10)

	assert.False(t, gate.Evaluate(gate.Input{Kind: vault.KindDeposit, Snapshot: s, Amount: amount}).ApproveEnabled)
	assert.True(t, gate.Evaluate(gate.Input{Kind: vault.KindDeposit, Snapshot: s, Amount: amount, Edited: true}).ApproveEnabled)
	assert.True(t, gate.Evaluate(gate.Input{Kind: vault.KindDeposit, Snapshot: snapshot(0, 100, 0), Amount: amount}).ApproveEnabled)
}

func TestRedeem(t *testing.T) {
	d := gate.Evaluate(gate.Input{Kind: vault.KindRedeem, Snapshot: snapshot(0, 0, 0), Amount: vault.AmountFromUint64(500)})
	assert.Equal(t, gate.Decision{ActEnabled: true}, d)
}

func TestNoSnapshotDisablesEverything(t *testing.T) {
	for _, kind := range []vault.Kind{vault.KindDeposit, vault.KindRedeem} {
		d := gate.Evaluate(gate.Input{Kind: kind, Amount: vault.AmountFromUint64(1), Edited: true})
		assert.Equal(t, gate.Decision{}, d, string(kind))
	}

	assert.False(t, gate.CanApprove(nil, vault.Amount{}))
	assert.False(t, gate.DepositAllowed(nil, vault.Amount{}))
	assert.True(t, gate.MaxAmount(vault.KindDeposit, nil).IsZero())
}

func TestCanApprove(t *testing.T) {
	s := snapshot(0, 100, 0)
	assert.True(t, gate.CanApprove(s, vault.AmountFromUint64(100)))
	assert.True(t, gate.CanApprove(s, vault.AmountFromUint64(0)))
	assert.False(t, gate.CanApprove(s, vault.AmountFromUint64(101)))
}

func TestMaxAmount(t *testing.T) {
	s := snapshot(5, 100, 200)
	assert.Equal(t, "100", gate.MaxAmount(vault.KindDeposit, s).String())
	assert.Equal(t, "200", gate.MaxAmount(vault.KindRedeem, s).String())
}
