// Package domain defines core types, interfaces, and errors for the
// statement worker.
package domain

import "fmt"

// NotFoundError indicates a job handle unknown to the ledger.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// InvalidJobError indicates a job record that cannot be executed,
// typically because it has no SQL text.
type InvalidJobError struct {
	Message string
}

func (e *InvalidJobError) Error() string { return e.Message }

// EngineError indicates the query engine failed before or during execution.
type EngineError struct {
	Message string
	Cause   error
}

func (e *EngineError) Error() string { return e.Message }
func (e *EngineError) Unwrap() error { return e.Cause }

// WriteError indicates an object-store write of a part or manifest failed.
type WriteError struct {
	Message string
	Cause   error
}

func (e *WriteError) Error() string { return e.Message }
func (e *WriteError) Unwrap() error { return e.Cause }

// LedgerError indicates a ledger read or update itself failed.
type LedgerError struct {
	Message string
	Cause   error
}

func (e *LedgerError) Error() string { return e.Message }
func (e *LedgerError) Unwrap() error { return e.Cause }

// ValidationError indicates invalid caller input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrInvalidJob creates an InvalidJobError with a formatted message.
func ErrInvalidJob(format string, args ...interface{}) *InvalidJobError {
	return &InvalidJobError{Message: fmt.Sprintf(format, args...)}
}

// ErrEngine wraps a query engine failure.
func ErrEngine(cause error, format string, args ...interface{}) *EngineError {
	return &EngineError{Message: fmt.Sprintf(format, args...) + ": " + cause.Error(), Cause: cause}
}

// ErrWrite wraps an object-store write failure.
func ErrWrite(cause error, format string, args ...interface{}) *WriteError {
	return &WriteError{Message: fmt.Sprintf(format, args...) + ": " + cause.Error(), Cause: cause}
}

// ErrLedger wraps a ledger read/update failure.
func ErrLedger(cause error, format string, args ...interface{}) *LedgerError {
	return &LedgerError{Message: fmt.Sprintf(format, args...) + ": " + cause.Error(), Cause: cause}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
