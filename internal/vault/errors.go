package vault

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrTransactionPending  = errors.New("a transaction is already pending")
	ErrWorkflowClosed      = errors.New("workflow is not open")
	ErrNoSnapshot          = errors.New("no chain snapshot available")
	ErrExceedsBalance      = errors.New("amount exceeds underlying balance")
	ErrApprovalNotRequired = errors.New("approval is not required for this workflow")
	ErrActionDisabled      = errors.New("action is disabled")
	ErrTransactionReverted = errors.New("transaction reverted")
)

// FailureKind classifies errors reported by the core.
type FailureKind string

const (
	// ReadFailure means the read provider failed; the previous snapshot stays authoritative.
	ReadFailure FailureKind = "read_failure"
	// SubmissionRejected means nothing was broadcast; the user may retry.
	SubmissionRejected FailureKind = "submission_rejected"
	// ConfirmationFailure means a broadcast transaction reverted or never confirmed.
	ConfirmationFailure FailureKind = "confirmation_failure"
)

// Failure wraps an error with its kind and the operation that produced it.
type Failure struct {
	Kind FailureKind
	Op   string
	Err  error
}

// NewFailure returns a *Failure. Existing failures are not wrapped twice.
func NewFailure(kind FailureKind, op string, err error) *Failure {
	var f *Failure
	if errors.As(err, &f) && f.Kind == kind {
		return f
	}
	return &Failure{Kind: kind, Op: op, Err: err}
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Kind, f.Op)
	}
	return fmt.Sprintf("%s: %s: %v", f.Kind, f.Op, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Is matches another *Failure of the same kind, so errors.Is(err, &Failure{Kind: ReadFailure}) works.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return t.Kind == f.Kind && t.Err == nil
}

// MarshalJSON renders the failure for API consumers.
func (f *Failure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}

	return json.Marshal(struct {
		Kind    FailureKind `json:"kind"`
		Op      string      `json:"op"`
		Message string      `json:"message"`
	}{f.Kind, f.Op, msg})
}

// KindOf returns the failure kind carried by err, if any.
func KindOf(err error) (FailureKind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}
