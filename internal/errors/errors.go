// Package errors provides centralized error definitions and error handling
// utilities for the stride codebase. It defines the pipeline's error
// taxonomy, sentinel errors, constructors with context wrapping, and
// classification helpers.
//
// The taxonomy mirrors how errors are contained at component boundaries:
//
//   - TransientIOError: a file is temporarily locked or missing; retried
//     with backoff and never surfaced as a failure.
//   - ParseError: malformed artifact content; logged, the previous good
//     snapshot is retained, and no event is emitted for that parse.
//   - ConflictError: a second active execution was requested for a project
//     that already has one; rejected synchronously.
//   - SpawnError: the external agent binary is missing or unexecutable;
//     surfaced immediately as a failed SessionExecution.
//   - StaleSubscriberError: a subscriber queue overflowed; the subscriber
//     is dropped, other subscribers are unaffected.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrNotFound indicates that a requested resource does not exist.
	ErrNotFound = New("not found")
	// ErrExecutionActive indicates a project already has a non-terminal execution.
	ErrExecutionActive = New("execution already active")
	// ErrExecutionTerminal indicates a transition was attempted on a terminal execution.
	ErrExecutionTerminal = New("execution already terminal")
	// ErrWatchUnavailable indicates the OS watch mechanism could not be initialized.
	ErrWatchUnavailable = New("watch unavailable")
	// ErrSubscriberClosed indicates an operation on an unsubscribed subscriber.
	ErrSubscriberClosed = New("subscriber closed")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// -----------------------------------------------------------------------------
// Taxonomy Errors
// -----------------------------------------------------------------------------

// TransientIOError represents a temporary filesystem failure (locked or
// not-yet-existing file). Always retryable.
type TransientIOError struct {
	baseError
	Path string
}

// NewTransientIOError creates a new TransientIOError for the given path.
func NewTransientIOError(message string, cause error) *TransientIOError {
	return &TransientIOError{
		baseError: baseError{message: message, cause: cause, retryable: true},
	}
}

// WithPath adds the affected path to the error context.
func (e *TransientIOError) WithPath(path string) *TransientIOError {
	e.Path = path
	return e
}

// Error returns the formatted error message.
func (e *TransientIOError) Error() string {
	prefix := "transient io error"
	if e.Path != "" {
		prefix = fmt.Sprintf("transient io error [path=%s]", e.Path)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *TransientIOError) Is(target error) bool {
	if _, ok := target.(*TransientIOError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ParseError represents malformed artifact content. The bad unit is skipped
// and normalization proceeds with the previously-known-good snapshot.
type ParseError struct {
	baseError
	Path string
	Line int
}

// NewParseError creates a new ParseError.
func NewParseError(message string, cause error) *ParseError {
	return &ParseError{
		baseError: baseError{message: message, cause: cause},
		Line:      -1,
	}
}

// WithPath adds the artifact path to the error context.
func (e *ParseError) WithPath(path string) *ParseError {
	e.Path = path
	return e
}

// WithLine adds the offending line number to the error context.
func (e *ParseError) WithLine(line int) *ParseError {
	e.Line = line
	return e
}

// Error returns the formatted error message.
func (e *ParseError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	if e.Line >= 0 {
		parts = append(parts, fmt.Sprintf("line=%d", e.Line))
	}

	prefix := "parse error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("parse error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ParseError) Is(target error) bool {
	if _, ok := target.(*ParseError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ConflictError represents an attempt to start a second active execution
// for a project. The caller must cancel or wait.
type ConflictError struct {
	baseError
	Project     string
	ExecutionID string
}

// NewConflictError creates a new ConflictError.
func NewConflictError(project, executionID string) *ConflictError {
	return &ConflictError{
		baseError: baseError{
			message: "project already has an active execution",
			cause:   ErrExecutionActive,
		},
		Project:     project,
		ExecutionID: executionID,
	}
}

// Error returns the formatted error message.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict error [project=%s, execution=%s]: %s",
		e.Project, e.ExecutionID, e.message)
}

// Is checks if this error matches the target.
func (e *ConflictError) Is(target error) bool {
	if _, ok := target.(*ConflictError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// SpawnError represents a failure to start the external agent process.
// It is surfaced as a failed SessionExecution with no session id.
type SpawnError struct {
	baseError
	Binary string
}

// NewSpawnError creates a new SpawnError.
func NewSpawnError(message string, cause error) *SpawnError {
	return &SpawnError{
		baseError: baseError{message: message, cause: cause},
	}
}

// WithBinary adds the agent binary path to the error context.
func (e *SpawnError) WithBinary(binary string) *SpawnError {
	e.Binary = binary
	return e
}

// Error returns the formatted error message.
func (e *SpawnError) Error() string {
	prefix := "spawn error"
	if e.Binary != "" {
		prefix = fmt.Sprintf("spawn error [binary=%s]", e.Binary)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *SpawnError) Is(target error) bool {
	if _, ok := target.(*SpawnError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// StaleSubscriberError is internal to the hub: a subscriber fell behind its
// bounded queue and was dropped. It is never surfaced to other subscribers.
type StaleSubscriberError struct {
	baseError
	SubscriberID string
	QueueSize    int
}

// NewStaleSubscriberError creates a new StaleSubscriberError.
func NewStaleSubscriberError(subscriberID string, queueSize int) *StaleSubscriberError {
	return &StaleSubscriberError{
		baseError:    baseError{message: "subscriber queue overflow"},
		SubscriberID: subscriberID,
		QueueSize:    queueSize,
	}
}

// Error returns the formatted error message.
func (e *StaleSubscriberError) Error() string {
	return fmt.Sprintf("stale subscriber [id=%s, queue=%d]: %s",
		e.SubscriberID, e.QueueSize, e.message)
}

// Is checks if this error matches the target.
func (e *StaleSubscriberError) Is(target error) bool {
	if _, ok := target.(*StaleSubscriberError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// NotFoundError represents a resource that could not be found.
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message: fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			cause:   ErrNotFound,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	return e.message
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// retryable is implemented by errors that know whether they are transient.
type retryable interface {
	IsRetryable() bool
}

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var r retryable
	if As(err, &r) {
		return r.IsRetryable()
	}
	return false
}

// IsTransientIO returns true if the error is a TransientIOError.
func IsTransientIO(err error) bool {
	var t *TransientIOError
	return As(err, &t)
}

// IsParse returns true if the error is a ParseError.
func IsParse(err error) bool {
	var p *ParseError
	return As(err, &p)
}

// IsConflict returns true if the error is a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return As(err, &c)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Newf formats a new error.
func Newf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
