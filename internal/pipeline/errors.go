package pipeline

import (
	"errors"
	"fmt"

	"github.com/HENNGE/lambda-container-example/internal/reconcile"
)

// BatchErrorCode categorizes batch failures.
type BatchErrorCode string

const (
	// ErrCodeMissingConfig indicates a downstream is not configured. It is
	// detected before the batch is reconciled.
	ErrCodeMissingConfig BatchErrorCode = "MISSING_CONFIG"

	// ErrCodeApplyFailed indicates the downstream rejected some operations.
	ErrCodeApplyFailed BatchErrorCode = "APPLY_FAILED"

	// ErrCodeApplyError indicates the downstream could not be reached or
	// the apply aborted.
	ErrCodeApplyError BatchErrorCode = "APPLY_ERROR"
)

// BatchError is a failed batch. The whole batch should be retried; every
// operation is idempotent.
type BatchError struct {
	Code    BatchErrorCode
	Message string
	BatchID string

	// Failed lists operations a downstream reported as not applied.
	Failed []reconcile.FailedOperation

	Err error
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.BatchID != "" {
		msg += fmt.Sprintf(" (batch=%s)", e.BatchID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *BatchError) Unwrap() error {
	return e.Err
}

// CodeOf returns the BatchErrorCode of err, or "" if err is not a
// *BatchError. Uses errors.As to handle wrapped errors.
func CodeOf(err error) BatchErrorCode {
	var be *BatchError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// IsMissingConfig returns true if err reports a missing downstream
// configuration.
func IsMissingConfig(err error) bool {
	return CodeOf(err) == ErrCodeMissingConfig
}

// IsApplyFailure returns true if the downstream failed to apply the batch.
func IsApplyFailure(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeApplyFailed || code == ErrCodeApplyError
}

// ErrorType returns the code, as reported to the Lambda runtime.
func (e *BatchError) ErrorType() string {
	return string(e.Code)
}
