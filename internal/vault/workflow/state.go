package workflow

import (
	"github/chapool/yield-vault/internal/vault"
	"github/chapool/yield-vault/internal/vault/orchestrator"
)

type Phase string

const (
	PhaseIdle                   Phase = "idle"
	PhaseAwaitingApproveConfirm Phase = "awaiting_approve_confirm"
	PhaseAwaitingActConfirm     Phase = "awaiting_act_confirm"
)

// State is what a display layer renders for one workflow.
type State struct {
	Kind            vault.Kind                       `json:"kind"`
	Open            bool                             `json:"open"`
	Phase           Phase                            `json:"phase"`
	Submitting      bool                             `json:"submitting"`
	RequestedAmount vault.Amount                     `json:"requestedAmount"`
	ApproveEnabled  bool                             `json:"approveEnabled"`
	ActEnabled      bool                             `json:"actEnabled"`
	Pending         *orchestrator.PendingTransaction `json:"pending,omitempty"`
	LastFailure     *vault.Failure                   `json:"lastFailure,omitempty"`
	Snapshot        *vault.Snapshot                  `json:"snapshot,omitempty"`
	// Version increases with every change.
	Version uint64 `json:"version"`
}

// Connected reports whether a snapshot has been read yet.
func (s State) Connected() bool {
	return s.Snapshot != nil
}
