package event

import (
	"errors"
	"fmt"
)

// The error taxonomy, smallest to largest blast radius:
//
//   - ValidationError: the request never reached storage (missing command,
//     conflicting stream filters). Returned to the caller; no event exists,
//     so no hook fires.
//   - Not-found is an absence value, never an error: lookups return a boolean.
//   - HandlerError: a projection handler or payload migration failed. Caught
//     by the dispatcher, reported via hooks, never propagated as an error.
//   - Orphaned causation references are an integrity warning surfaced by the
//     orphan query, not an error type.
//   - BulkAbortError: an invalid event inside a bulk append. The whole batch
//     rolls back; this is the only hard failure that reaches the caller.

// ValidationError reports a request that failed validation before anything
// was persisted.
type ValidationError struct {
	// Field names the offending request field.
	Field string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for a request field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation returns true if the error is a validation error.
// Uses errors.As to handle wrapped errors.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// BulkAbortError reports that a bulk append was rolled back because one of
// its requests was invalid or a write failed. No rows from the batch persist.
type BulkAbortError struct {
	// Index is the zero-based position of the offending request.
	Index int

	// Command is the command of the offending request ("" when missing).
	Command string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *BulkAbortError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("bulk append aborted at event %d (%s): %v", e.Index, e.Command, e.Err)
	}
	return fmt.Sprintf("bulk append aborted at event %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying cause.
func (e *BulkAbortError) Unwrap() error {
	return e.Err
}

// NewBulkAbortError wraps the cause of a rolled-back bulk append.
func NewBulkAbortError(index int, command string, err error) *BulkAbortError {
	return &BulkAbortError{Index: index, Command: command, Err: err}
}

// IsBulkAbort returns true if the error is a bulk abort.
// Uses errors.As to handle wrapped errors.
func IsBulkAbort(err error) bool {
	var be *BulkAbortError
	return errors.As(err, &be)
}

// HandlerError carries the full context of a failed dispatch: the underlying
// error plus every field of the event whose handler (or payload migration)
// failed. It is delivered to the error hook and the projection's OnError
// lifecycle hook, and recorded on the dispatch result. It is never returned
// as a plain error from the dispatcher.
type HandlerError struct {
	Message       string         `json:"message"`
	Err           error          `json:"-"`
	Command       string         `json:"command"`
	Payload       map[string]any `json:"payload,omitempty"`
	Actor         string         `json:"actor,omitempty"`
	Origin        string         `json:"origin,omitempty"`
	ID            int64          `json:"id"`
	Version       int            `json:"version"`
	CorrelationID string         `json:"correlation_id"`
	CausationID   *int64         `json:"causation_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s (command=%s, id=%d): %v", e.Message, e.Command, e.ID, e.Err)
	}
	return fmt.Sprintf("%s (command=%s): %v", e.Message, e.Command, e.Err)
}

// Unwrap returns the underlying cause.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// NewHandlerError builds a HandlerError from the failed event and its cause.
func NewHandlerError(message string, ev Event, err error) *HandlerError {
	return &HandlerError{
		Message:       message,
		Err:           err,
		Command:       ev.Command,
		Payload:       ev.Payload,
		Actor:         ev.Actor,
		Origin:        ev.Origin,
		ID:            ev.ID,
		Version:       ev.Version,
		CorrelationID: ev.CorrelationID,
		CausationID:   ev.CausationID,
		Metadata:      ev.Metadata,
	}
}
