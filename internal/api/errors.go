package api

import (
	"errors"
	"fmt"
)

// FailureCode categorizes sync failures. Codes drive the propagation
// policy: which failures may retry, which abort with the outbox intact,
// and which must never trigger local cleanup.
type FailureCode string

const (
	// CodePermissionDenied: the agent is not authorized to upload.
	CodePermissionDenied FailureCode = "PERMISSION_DENIED"

	// CodeAlreadyUsedToday: the daily upload allowance is spent.
	CodeAlreadyUsedToday FailureCode = "ALREADY_USED_TODAY"

	// CodeNetworkTimeout: the request deadline expired before any
	// response arrived.
	CodeNetworkTimeout FailureCode = "NETWORK_TIMEOUT"

	// CodeNetworkUnreachable: the server could not be reached at all.
	CodeNetworkUnreachable FailureCode = "NETWORK_UNREACHABLE"

	// CodeValidationRejected: the server rejected the payload shape or
	// values (4xx-class).
	CodeValidationRejected FailureCode = "VALIDATION_REJECTED"

	// CodeServerError: the server failed processing (5xx-class).
	CodeServerError FailureCode = "SERVER_ERROR"

	// CodeUnknownOutcome: the call was cut off after submission with
	// the server's state indeterminate. The batch may or may not have
	// been applied; local cleanup must not happen.
	CodeUnknownOutcome FailureCode = "UNKNOWN_OUTCOME"
)

// SyncError is a typed sync failure.
type SyncError struct {
	Code    FailureCode
	Message string
	Status  int // HTTP status when applicable, else 0
	Err     error
}

func (e *SyncError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (http %d)", e.Code, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewSyncError creates a SyncError with the given code and message.
func NewSyncError(code FailureCode, message string) *SyncError {
	return &SyncError{Code: code, Message: message}
}

// CodeOf extracts the failure code from an error chain, or "" if the
// error is not a SyncError.
func CodeOf(err error) FailureCode {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// Retryable reports whether retrying the call is safe and potentially
// useful. Network failures and unknown outcomes are retryable because
// the batch submission is idempotent; validation and server-side
// rejections are not retried automatically, and permission failures
// abort the attempt.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodeNetworkTimeout, CodeNetworkUnreachable, CodeUnknownOutcome:
		return true
	default:
		return false
	}
}
