// Package errors defines the client-side error taxonomy shared by the
// pipeline, verification, refund, and gateway layers. Every failure that
// crosses a package boundary is a *ClientError carrying one of the codes
// below so callers can branch on category instead of string matching.
package errors

import (
	"errors"
	"fmt"
)

// Code classifies a client error.
type Code string

const (
	// CodeValidation indicates a malformed or missing required argument.
	// Never retried, surfaced to the caller.
	CodeValidation Code = "VALIDATION"

	// CodeNotFound indicates a missing event record or NFT token.
	// Terminal for the current verification attempt.
	CodeNotFound Code = "NOT_FOUND"

	// CodeMismatch indicates an NFT whose event reference does not match
	// the selected event.
	CodeMismatch Code = "MISMATCH"

	// CodeGateway indicates a transient chain gateway failure. The caller
	// may re-invoke the same operation; no automatic backoff here.
	CodeGateway Code = "GATEWAY"

	// CodeAlreadyRunning indicates the pipeline concurrency guard fired.
	// Rejected synchronously, never queued.
	CodeAlreadyRunning Code = "ALREADY_RUNNING"

	// CodeStorage indicates a content-store (pinning) failure.
	CodeStorage Code = "STORAGE"

	// CodeDatabase indicates a local ledger/journal failure.
	CodeDatabase Code = "DATABASE"
)

// ClientError is the error type produced by this module's components.
type ClientError struct {
	ErrCode Code
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.ErrCode, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.ErrCode, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether a caller may reasonably re-invoke the failed
// operation. Only gateway failures qualify; validation, not-found, and
// mismatch outcomes are terminal for the attempt.
func (e *ClientError) Retryable() bool {
	return e.ErrCode == CodeGateway
}

// New creates a ClientError with the given code and message.
func New(code Code, message string) *ClientError {
	return &ClientError{ErrCode: code, Message: message}
}

// Newf creates a ClientError with a formatted message.
func Newf(code Code, format string, args ...any) *ClientError {
	return &ClientError{ErrCode: code, Message: fmt.Sprintf(format, args...)}
}

// WrapAs wraps cause into a ClientError with the given code. Returns nil
// when cause is nil.
func WrapAs(cause error, code Code, message string) *ClientError {
	if cause == nil {
		return nil
	}
	return &ClientError{ErrCode: code, Message: message, Cause: cause}
}

// IsCode reports whether err is (or wraps) a ClientError with the code.
func IsCode(err error, code Code) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.ErrCode == code
	}
	return false
}

// CodeOf returns the code of err, or "" when err is not a ClientError.
func CodeOf(err error) Code {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.ErrCode
	}
	return ""
}

// Domain-specific constructors. These keep message shapes consistent across
// the engine, the CLI, and the notification sink.

// NewInvalidInput reports a malformed required argument.
func NewInvalidInput(what string) *ClientError {
	return Newf(CodeValidation, "invalid input: %s", what)
}

// NewNoEventSelected reports a verify call without an active event context.
func NewNoEventSelected() *ClientError {
	return New(CodeValidation, "no event selected")
}

// NewEventNotFound reports a registry record that is absent or nameless.
func NewEventNotFound(eventID string) *ClientError {
	return Newf(CodeNotFound, "event %s not found", eventID)
}

// NewTokenNotFound reports an NFT token id with no owner on chain.
func NewTokenNotFound(tokenID string) *ClientError {
	return Newf(CodeNotFound, "token %s not found", tokenID)
}

// NewWrongEvent reports an NFT that belongs to a different event than the
// one selected. Both ids are part of the message so the operator can see
// which event the ticket actually belongs to.
func NewWrongEvent(tokenID, tokenEventID, selectedEventID string) *ClientError {
	return Newf(CodeMismatch,
		"token %s belongs to event %s, not the selected event %s",
		tokenID, tokenEventID, selectedEventID)
}

// NewGatewayError wraps a chain gateway failure.
func NewGatewayError(operation string, cause error) *ClientError {
	return WrapAs(cause, CodeGateway, fmt.Sprintf("gateway %s failed", operation))
}

// NewAlreadyRunning reports a second Start while a pipeline run is active.
func NewAlreadyRunning() *ClientError {
	return New(CodeAlreadyRunning, "a pipeline run is already in progress")
}
