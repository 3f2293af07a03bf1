package httperrors

import (
	"net/http"

	"github.com/pkg/errors"
	"github/chapool/yield-vault/internal/vault"
)

// FromVault maps errors of the vault workflows to HTTP errors. Unknown errors
// are returned unchanged and end up as 500.
func FromVault(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, vault.ErrWorkflowClosed):
		return ErrConflictWorkflowClosed.Wrap(err)
	case errors.Is(err, vault.ErrTransactionPending):
		return ErrConflictTransactionPending.Wrap(err)
	case errors.Is(err, vault.ErrActionDisabled):
		return ErrConflictActionDisabled.Wrap(err)
	case errors.Is(err, vault.ErrApprovalNotRequired):
		return ErrBadRequestApprovalNotNeeded.Wrap(err)
	case errors.Is(err, vault.ErrNoSnapshot):
		return ErrServiceUnavailableNotConnected.Wrap(err)
	}

	kind, ok := vault.KindOf(err)
	if !ok {
		return err
	}

	switch kind {
	case vault.SubmissionRejected:
		return NewHTTPErrorWithDetail(http.StatusUnprocessableEntity, HTTPErrorTypeSubmissionRejected, "Transaction was not submitted.", err.Error()).Wrap(err)
	case vault.ReadFailure:
		return NewHTTPErrorWithDetail(http.StatusBadGateway, HTTPErrorTypeReadFailure, "Failed to read chain state.", err.Error()).Wrap(err)
	default:
		return err
	}
}
