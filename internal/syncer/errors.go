package syncer

import (
	"errors"
	"fmt"
)

// FlowErrorCode categorizes local reconciliation-flow failures. These
// are resolved locally by re-running preflight; they never indicate
// data loss.
type FlowErrorCode string

const (
	// ErrCodeEmptyBatch indicates nothing syncable is pending for the
	// session's agent.
	ErrCodeEmptyBatch FlowErrorCode = "EMPTY_BATCH"

	// ErrCodeStaleSnapshot indicates the outbox changed between
	// preflight and confirmation (or the session switched agents).
	ErrCodeStaleSnapshot FlowErrorCode = "STALE_SNAPSHOT"

	// ErrCodeAlreadyDownloaded indicates the agent's working set was
	// already downloaded today.
	ErrCodeAlreadyDownloaded FlowErrorCode = "ALREADY_DOWNLOADED_TODAY"

	// ErrCodeRejected indicates a local validation failure on enqueue
	// (non-positive amount, unknown loan, wrong owner).
	ErrCodeRejected FlowErrorCode = "REJECTED"
)

// FlowError is a local flow failure with a stable code.
type FlowError struct {
	Code    FlowErrorCode
	Message string
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewFlowError creates a FlowError.
func NewFlowError(code FlowErrorCode, format string, args ...any) *FlowError {
	return &FlowError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsEmptyBatch reports whether err is an empty-batch failure.
// Uses errors.As to handle wrapped errors.
func IsEmptyBatch(err error) bool {
	var fe *FlowError
	return errors.As(err, &fe) && fe.Code == ErrCodeEmptyBatch
}

// IsStaleSnapshot reports whether err is a stale-snapshot failure.
func IsStaleSnapshot(err error) bool {
	var fe *FlowError
	return errors.As(err, &fe) && fe.Code == ErrCodeStaleSnapshot
}

// IsAlreadyDownloaded reports whether err is a repeat-download failure.
func IsAlreadyDownloaded(err error) bool {
	var fe *FlowError
	return errors.As(err, &fe) && fe.Code == ErrCodeAlreadyDownloaded
}
