package generation

import (
	"errors"
	"fmt"
	"strings"
)

// authErrorMarker is the provider's message for calls made with an invalid
// or revoked API credential.
const authErrorMarker = "Requested entity was not found"

// ValidationError reports a malformed request. It is raised before any
// network call and is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid request: %s", e.Message)
}

// AuthError marks the invalid-or-missing-credential failure class. The
// retry wrapper reacts to it with a single re-prompt-and-retry cycle.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("credential rejected: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// EmptyResultError reports a remote call that succeeded but produced no
// usable output part.
type EmptyResultError struct {
	Message string
}

func (e *EmptyResultError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "model returned no usable output"
}

// JobFailureError is the terminal failure payload of a polled job.
type JobFailureError struct {
	Message string
}

func (e *JobFailureError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("generation job failed: %s", e.Message)
	}
	return "generation job failed"
}

// TimeoutError reports that a polled job exceeded the maximum wait ceiling.
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string {
	return e.Message
}

// IsValidationError reports whether err is a request validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAuthError reports whether err belongs to the invalid-credential class.
// The provider signals it with an "entity not found" message; errors
// already wrapped as *AuthError are recognized directly.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return true
	}
	return strings.Contains(err.Error(), authErrorMarker)
}

// IsEmptyResultError reports whether err marks a response with no usable part.
func IsEmptyResultError(err error) bool {
	var ee *EmptyResultError
	return errors.As(err, &ee)
}

// IsJobFailure reports whether err is a terminal remote job failure.
func IsJobFailure(err error) bool {
	var je *JobFailureError
	return errors.As(err, &je)
}

// IsTimeout reports whether err is a poll ceiling timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
