// Package gate derives which workflow actions are enabled from the latest
// chain snapshot and the requested amount.
package gate

import (
	"github/chapool/yield-vault/internal/vault"
)

// Decision is the enablement of the two workflow actions.
type Decision struct {
	ApproveEnabled bool `json:"approveEnabled"`
	ActEnabled     bool `json:"actEnabled"`
}

// Input is everything the gate looks at.
type Input struct {
	Kind     vault.Kind
	Snapshot *vault.Snapshot
	Amount   vault.Amount
	// Edited is true once the user typed into the amount field during the current open cycle.
	Edited bool
}

// Evaluate returns the enablement for in. A nil snapshot means nothing has
// been read yet and disables both actions.
func Evaluate(in Input) Decision {
	if in.Snapshot == nil {
		return Decision{}
	}

	switch in.Kind {
	case vault.KindDeposit:
		return Decision{
			ApproveEnabled: in.Edited || in.Snapshot.Allowance.IsZero(),
			ActEnabled:     DepositAllowed(in.Snapshot, in.Amount),
		}
	case vault.KindRedeem:
		// shares are burned by the vault itself, no allowance involved
		return Decision{ActEnabled: true}
	default:
		return Decision{}
	}
}

// DepositAllowed blocks a deposit only when neither the allowance nor the
// underlying balance covers amount.
func DepositAllowed(snapshot *vault.Snapshot, amount vault.Amount) bool {
	if snapshot == nil {
		return false
	}
	return !(snapshot.Allowance.LessThan(amount) && snapshot.UnderlyingBalance.LessThan(amount))
}

// CanApprove reports whether an approval for amount may be submitted.
func CanApprove(snapshot *vault.Snapshot, amount vault.Amount) bool {
	if snapshot == nil {
		return false
	}
	return amount.Cmp(snapshot.UnderlyingBalance) <= 0
}

// MaxAmount is the amount selected by the "max" action.
func MaxAmount(kind vault.Kind, snapshot *vault.Snapshot) vault.Amount {
	if snapshot == nil {
		return vault.Amount{}
	}
	if kind == vault.KindRedeem {
		return snapshot.VaultShareBalance
	}
	return snapshot.UnderlyingBalance
}
