// Package apperr defines the portal's error taxonomy. Validation errors
// never reach the network layer; request errors carry the backend's
// human-readable reason; partial-success errors keep the created report
// id so callers can retry only the missing step.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAuthExpired is the process-wide signal that the bearer credential
// is invalid or expired. Handled once, centrally, regardless of which
// operation tripped it.
var ErrAuthExpired = errors.New("credential invalid or expired")

// ValidationError is detected client-side before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validation builds a ValidationError from a format string.
func Validation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// RequestError is a network or backend rejection. Reason holds the
// backend-supplied detail when available, else a generic fallback.
type RequestError struct {
	Status int
	Reason string
	Err    error
}

func (e *RequestError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "request failed"
}

func (e *RequestError) Unwrap() error { return e.Err }

// Conflict reports whether the backend rejected the call because the
// target record already exists.
func (e *RequestError) Conflict() bool {
	return e.Status == http.StatusBadRequest || e.Status == http.StatusConflict
}

// Request builds a RequestError with a backend reason.
func Request(status int, reason string) *RequestError {
	return &RequestError{Status: status, Reason: reason}
}

// Transport wraps a transport-level failure with a generic reason.
func Transport(err error) *RequestError {
	return &RequestError{Reason: "request failed", Err: err}
}

// PartialSuccessError means the report was created but the follow-up
// photo upload failed. Distinguished from a total failure so the caller
// can offer a retry scoped to the upload alone.
type PartialSuccessError struct {
	ReportID int64
	Upload   error
}

func (e *PartialSuccessError) Error() string {
	return fmt.Sprintf("report %d created but photo upload failed: %v", e.ReportID, e.Upload)
}

func (e *PartialSuccessError) Unwrap() error { return e.Upload }

// IsValidation reports whether err is client-detected.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// HTTPStatus maps an error to the status the portal surfaces it with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrAuthExpired):
		return http.StatusUnauthorized
	case IsValidation(err):
		return http.StatusBadRequest
	default:
		var pe *PartialSuccessError
		if errors.As(err, &pe) {
			return http.StatusBadGateway
		}
		var re *RequestError
		if errors.As(err, &re) && re.Status >= 400 && re.Status < 600 {
			return re.Status
		}
		return http.StatusBadGateway
	}
}
