// Package apperr defines the sentinel error taxonomy shared by every
// service-layer component, and the envelope used to map them onto wire
// codes at the HTTP boundary. No component swallows another component's
// error; everything bubbles up to the entrypoint for mapping.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a wire-visible error code from spec.md §6.3.
type Code string

const (
	CodeAuthMissingHeaders              Code = "AUTH_MISSING_HEADERS"
	CodeAuthTimestampInvalid            Code = "AUTH_TIMESTAMP_INVALID"
	CodeAuthInvalidNonce                Code = "AUTH_INVALID_NONCE"
	CodeAuthReplayDetected              Code = "AUTH_REPLAY_DETECTED"
	CodeAuthInvalidDID                  Code = "AUTH_INVALID_DID"
	CodeAuthAgentNotFound               Code = "AUTH_AGENT_NOT_FOUND"
	CodeAuthSignatureInvalid            Code = "AUTH_SIGNATURE_INVALID"
	CodeAuthVerificationError           Code = "AUTH_VERIFICATION_ERROR"
	CodeAuthInvalidRegistrationSignature Code = "AUTH_INVALID_REGISTRATION_SIGNATURE"
	CodeValidationError                 Code = "VALIDATION_ERROR"
	CodeNotFound                        Code = "NOT_FOUND"
	CodeConflict                        Code = "CONFLICT"
	CodeForbidden                       Code = "FORBIDDEN"
	CodeRateLimitExceeded               Code = "RATE_LIMIT_EXCEEDED"
	CodeSpamDetected                    Code = "SPAM_DETECTED"
	CodeInternalError                   Code = "INTERNAL_ERROR"
)

// Error is a typed, wire-mappable application error.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an *Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds an *Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error that preserves cause for errors.Unwrap/Is/As.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// WithDetails attaches structured details and returns the same error.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// ValidationError wraps a field-specific validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %q: %s", e.Field, e.Message)
}

// NewValidation constructs a *ValidationError.
func NewValidation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Sentinel errors for conditions components can check with errors.Is.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrConflict      = errors.New("conflict")
	ErrForbidden     = errors.New("forbidden")
	ErrRateLimited   = errors.New("rate limited")
	ErrReplay        = errors.New("nonce replay detected")
)

// AsAppError extracts an *Error from err, if any, via errors.As.
func AsAppError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
