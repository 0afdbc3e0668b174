// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package poller

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrNilRejection is used in place of a nil error passed to [Rejected].
	ErrNilRejection = errors.New("poller: task rejected with a nil error")

	// ErrReentrantRun is returned when Run is called while the scheduler is
	// already running, including from within a task or continuation.
	ErrReentrantRun = errors.New("poller: scheduler is already running")

	// ErrStopped is the abort reason used by [Interval.Stop].
	ErrStopped = errors.New("poller: interval stopped")
)

// UnhandledRejectionError is the fatal fault returned by [Scheduler.Run] when
// a task is rejected without an error continuation registered.
type UnhandledRejectionError struct {
	// Task is the task that was rejected. It has already been removed from the
	// scheduler.
	Task Task
	// Cause is the error the task was rejected with.
	Cause error
}

// Error implements the error interface.
func (e *UnhandledRejectionError) Error() string {
	return fmt.Sprintf("poller: unhandled rejection: %v", e.Cause)
}

// Unwrap returns the rejection cause for use with [errors.Is] and [errors.As].
func (e *UnhandledRejectionError) Unwrap() error {
	return e.Cause
}

// PanicError wraps a value recovered from a panic, inside either a
// [Task.Poll] call or a continuation.
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("poller: task panicked: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is an error type.
//
// If the panic Value is not an error (e.g., a string or other type),
// returns nil.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ContinuationPanicError is the fatal fault returned by [Scheduler.Run] when
// a [Continuation] or [ErrorContinuation] panics.
type ContinuationPanicError struct {
	Task  Task
	Panic PanicError
}

// Error implements the error interface.
func (e *ContinuationPanicError) Error() string {
	return fmt.Sprintf("poller: continuation panicked: %v", e.Panic.Value)
}

// Unwrap returns the wrapped [PanicError].
func (e *ContinuationPanicError) Unwrap() error {
	return e.Panic
}
