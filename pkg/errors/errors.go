// Package errors carries the bridge's coded error type. Codes classify
// failures for logging and retry decisions; retryability is exposed through
// the IsRetryable contract the retry package consumes.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = NewError("VALIDATION_ERROR", "validation failed")
	ErrInternal           = NewError("INTERNAL_ERROR", "internal error")
	ErrTimeout            = NewError("TIMEOUT", "operation timed out")
	ErrServiceUnavailable = NewError("SERVICE_UNAVAILABLE", "service unavailable")
)

type Error struct {
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	retryable *bool
}

func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

func (e *Error) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		if detailMsg, ok := e.Details["message"].(string); ok && detailMsg != "" {
			msg = detailMsg
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether retrying the failed operation can help.
// Validation failures never clear up on retry; everything else defaults to
// retryable unless explicitly marked fatal.
func (e *Error) IsRetryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	if e.Cause != nil {
		var classifier interface{ IsRetryable() bool }
		if errors.As(e.Cause, &classifier) {
			return classifier.IsRetryable()
		}
	}
	return e.Code != ErrValidation.Code
}

// WithCause and WithDetail derive a new error and never mutate the receiver.
// The sentinels are shared process-wide, so the Details map is copied, not
// aliased: writes through a derived error must not reach the sentinel or
// sibling derivations.
func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Details = copyDetails(e.Details)
	err.Cause = cause
	return &err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := *e
	err.Details = copyDetails(e.Details)
	err.Details[key] = value
	return &err
}

func copyDetails(details map[string]interface{}) map[string]interface{} {
	copied := make(map[string]interface{}, len(details))
	for k, v := range details {
		copied[k] = v
	}
	return copied
}

func (e *Error) AsRetryable() *Error {
	err := *e
	retryable := true
	err.retryable = &retryable
	return &err
}

func (e *Error) AsFatal() *Error {
	err := *e
	retryable := false
	err.retryable = &retryable
	return &err
}

func Wrap(err error, appErr *Error) *Error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

func IsValidation(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == ErrValidation.Code
	}
	return false
}
