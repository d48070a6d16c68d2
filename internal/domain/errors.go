package domain

import (
	"context"
	"errors"
	"fmt"
)

// LookupError wraps source failures with a normalized kind
type LookupError struct {
	Kind      LookupErrorKind
	Source    SourceName
	Message   string
	Status    int // HTTP status when Kind is http_error
	Err       error
	Retryable bool
}

// Error implements the error interface
func (e *LookupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source %s [%s]: %s: %v", e.Source, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("source %s [%s]: %s", e.Source, e.Kind, e.Message)
}

// Unwrap supports error unwrapping
func (e *LookupError) Unwrap() error {
	return e.Err
}

// NewLookupError creates a lookup error. Timeouts, connection failures and
// unavailable sources are retryable.
func NewLookupError(kind LookupErrorKind, source SourceName, message string, err error) *LookupError {
	return &LookupError{
		Kind:    kind,
		Source:  source,
		Message: message,
		Err:     err,
		Retryable: kind == LookupErrorTimeout ||
			kind == LookupErrorConnection ||
			kind == LookupErrorUnavailable,
	}
}

// NewHTTPError creates an http_error. 5xx and 429 are retryable.
func NewHTTPError(source SourceName, status int) *LookupError {
	return &LookupError{
		Kind:      LookupErrorHTTP,
		Source:    source,
		Message:   fmt.Sprintf("HTTP %d", status),
		Status:    status,
		Retryable: status >= 500 || status == 429,
	}
}

// IsRetryable reports whether an error is worth retrying
func IsRetryable(err error) bool {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Retryable
	}
	return false
}

// KindOf extracts the lookup error kind from an error
func KindOf(err error) LookupErrorKind {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return LookupErrorTimeout
	}
	return LookupErrorInternal
}

// ResultFromError converts a failed lookup into the Err variant of SourceResult
func ResultFromError(err error) SourceResult {
	var le *LookupError
	if errors.As(err, &le) {
		return ErrResult(le.Kind, le.Message)
	}
	return ErrResult(KindOf(err), err.Error())
}
