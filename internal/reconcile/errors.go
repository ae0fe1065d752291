package reconcile

import (
	"errors"
	"fmt"
)

// RejectCode categorizes why a record was dropped.
type RejectCode string

const (
	// ErrCodeBadViewType indicates the stream does not carry both images.
	ErrCodeBadViewType RejectCode = "BAD_VIEW_TYPE"

	// ErrCodeMissingOrigin indicates the record has no source ARN.
	ErrCodeMissingOrigin RejectCode = "MISSING_ORIGIN"

	// ErrCodeMissingKey indicates a key component is missing or empty.
	ErrCodeMissingKey RejectCode = "MISSING_KEY"

	// ErrCodeInvalidKey indicates a key component contains KeySeparator,
	// so its object ID would be ambiguous.
	ErrCodeInvalidKey RejectCode = "INVALID_KEY"

	// ErrCodeUnknownEvent indicates an event name other than
	// INSERT, MODIFY or REMOVE.
	ErrCodeUnknownEvent RejectCode = "UNKNOWN_EVENT"

	// ErrCodeMapping indicates the entity mapper could not build a snapshot.
	ErrCodeMapping RejectCode = "MAPPING_FAILED"

	// ErrCodeImageMismatch indicates the images present do not match the
	// event kind. Upstream visibility gap or bug, never fatal.
	ErrCodeImageMismatch RejectCode = "IMAGE_MISMATCH"

	// ErrCodeRule indicates an exclusion rule failed to evaluate.
	ErrCodeRule RejectCode = "RULE_FAILED"

	// ErrCodeExcludedOrigin indicates the origin matched an exclusion rule.
	ErrCodeExcludedOrigin RejectCode = "EXCLUDED_ORIGIN"

	// ErrCodeExcludedKey indicates the key matched an exclusion rule.
	ErrCodeExcludedKey RejectCode = "EXCLUDED_KEY"
)

// Rejection explains why the validator dropped a record. Rejections never
// abort a batch.
type Rejection struct {
	Code    RejectCode
	Message string

	// EventID is the record's stream event ID, if any.
	EventID string

	// Key is set once both key components were read.
	Key EntityKey

	// Err is the underlying cause (mapper or rule error), if any.
	Err error
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	msg := fmt.Sprintf("%s: %s", r.Code, r.Message)
	if r.Key.Valid() {
		msg += fmt.Sprintf(" (key=%s)", r.Key)
	}
	if r.Err != nil {
		msg += ": " + r.Err.Error()
	}
	return msg
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

// Excluded reports whether the record was filtered by configuration rather
// than being malformed.
func (r *Rejection) Excluded() bool {
	return r.Code == ErrCodeExcludedOrigin || r.Code == ErrCodeExcludedKey
}

// IsExcluded returns true if err is a Rejection caused by an exclusion
// rule. Uses errors.As to handle wrapped errors.
func IsExcluded(err error) bool {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Excluded()
	}
	return false
}

// IsMalformed returns true if err is a Rejection for malformed input.
func IsMalformed(err error) bool {
	var r *Rejection
	if errors.As(err, &r) {
		return !r.Excluded()
	}
	return false
}

func reject(code RejectCode, eventID, message string) *Rejection {
	return &Rejection{Code: code, EventID: eventID, Message: message}
}
