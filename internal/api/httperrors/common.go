package httperrors

import (
	"net/http"
)

const (
	HTTPErrorTypeGeneric            = "generic"
	HTTPErrorTypeUnknownWorkflow    = "UNKNOWN_WORKFLOW"
	HTTPErrorTypeWorkflowClosed     = "WORKFLOW_CLOSED"
	HTTPErrorTypeTransactionPending = "TRANSACTION_PENDING"
	HTTPErrorTypeNotConnected       = "NOT_CONNECTED"
	HTTPErrorTypeApprovalNotNeeded  = "APPROVAL_NOT_REQUIRED"
	HTTPErrorTypeActionDisabled     = "ACTION_DISABLED"
	HTTPErrorTypeSubmissionRejected = "SUBMISSION_REJECTED"
	HTTPErrorTypeReadFailure        = "READ_FAILURE"
	HTTPErrorTypeLedgerDisabled     = "LEDGER_DISABLED"
	HTTPErrorTypeInvalidAmount      = "INVALID_AMOUNT"
	HTTPErrorTypeInvalidAPIKey      = "INVALID_API_KEY"
)

var (
	ErrBadRequestInvalidAmount        = NewHTTPError(http.StatusBadRequest, HTTPErrorTypeInvalidAmount, "Amount must be a string of base units.")
	ErrNotFoundUnknownWorkflow        = NewHTTPError(http.StatusNotFound, HTTPErrorTypeUnknownWorkflow, "Unknown workflow.")
	ErrConflictWorkflowClosed         = NewHTTPError(http.StatusConflict, HTTPErrorTypeWorkflowClosed, "Workflow is not open.")
	ErrConflictTransactionPending     = NewHTTPError(http.StatusConflict, HTTPErrorTypeTransactionPending, "A transaction is already pending.")
	ErrConflictActionDisabled         = NewHTTPError(http.StatusConflict, HTTPErrorTypeActionDisabled, "Action is disabled.")
	ErrBadRequestApprovalNotNeeded    = NewHTTPError(http.StatusBadRequest, HTTPErrorTypeApprovalNotNeeded, "Approval is not required for this workflow.")
	ErrServiceUnavailableNotConnected = NewHTTPError(http.StatusServiceUnavailable, HTTPErrorTypeNotConnected, "Not connected.")
	ErrUnauthorizedInvalidAPIKey      = NewHTTPError(http.StatusUnauthorized, HTTPErrorTypeInvalidAPIKey, "Missing or invalid API key.")
	ErrNotFoundLedgerDisabled         = NewHTTPError(http.StatusNotFound, HTTPErrorTypeLedgerDisabled, "Transaction ledger is disabled.")
)
