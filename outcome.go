// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package poller

import (
	"fmt"
)

// State is the tri-state discriminant of an [Outcome].
type State uint8

const (
	// StatePending indicates the task has not finished, and must be polled
	// again.
	StatePending State = iota

	// StateDone indicates the task completed successfully, optionally with a
	// payload.
	StateDone

	// StateRejected indicates the task failed with an error.
	StateRejected
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateDone:
		return "Done"
	case StateRejected:
		return "Rejected"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Outcome is the result of a single poll.
//
// The zero value is Pending. Use [Pending], [Done] and [Rejected] to
// construct values. Done and Rejected are terminal: a task that has returned
// either must never be polled again.
type Outcome[T any] struct {
	value T
	err   error
	state State
}

// Pending returns an outcome indicating the task is still in progress.
func Pending[T any]() Outcome[T] {
	return Outcome[T]{}
}

// Done returns a terminal outcome, carrying the given payload.
func Done[T any](value T) Outcome[T] {
	return Outcome[T]{value: value, state: StateDone}
}

// Rejected returns a terminal outcome, carrying the given error. A nil err is
// replaced by [ErrNilRejection].
func Rejected[T any](err error) Outcome[T] {
	if err == nil {
		err = ErrNilRejection
	}
	return Outcome[T]{err: err, state: StateRejected}
}

// State returns the discriminant.
func (o Outcome[T]) State() State { return o.state }

// IsPending reports whether the outcome is [StatePending].
func (o Outcome[T]) IsPending() bool { return o.state == StatePending }

// IsTerminal reports whether the outcome is either Done or Rejected.
func (o Outcome[T]) IsTerminal() bool { return o.state != StatePending }

// Value returns the payload, and true, if the outcome is Done.
func (o Outcome[T]) Value() (T, bool) {
	if o.state != StateDone {
		var zero T
		return zero, false
	}
	return o.value, true
}

// Err returns the rejection error, or nil if the outcome is not Rejected.
func (o Outcome[T]) Err() error {
	if o.state != StateRejected {
		return nil
	}
	return o.err
}

// Any erases the payload type, producing the form consumed by the
// [Scheduler].
func (o Outcome[T]) Any() Outcome[any] {
	switch o.state {
	case StateDone:
		return Outcome[any]{value: o.value, state: StateDone}
	case StateRejected:
		return Outcome[any]{err: o.err, state: StateRejected}
	default:
		return Outcome[any]{}
	}
}

// String implements [fmt.Stringer].
func (o Outcome[T]) String() string {
	switch o.state {
	case StateDone:
		return fmt.Sprintf("Done(%v)", o.value)
	case StateRejected:
		return fmt.Sprintf("Rejected(%v)", o.err)
	default:
		return o.state.String()
	}
}
