// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package poller

import (
	"io"
)

type (
	// Task is a unit of cooperative progress, driven by repeated polling, by
	// a [Scheduler].
	//
	// Implementations must never block inside Poll. Operations that would
	// block must instead be attempted once, reporting Pending if they are not
	// ready. Embed [Base] to obtain the continuation registers and blocking
	// flag.
	Task interface {
		// Poll attempts to make progress. Once it returns a terminal outcome,
		// it will not be called again by the scheduler.
		Poll() Outcome[any]

		// Continuation returns the completion callback, or nil.
		Continuation() Continuation

		// ErrorContinuation returns the rejection callback, or nil.
		ErrorContinuation() ErrorContinuation

		// SetContinuation replaces the completion callback.
		SetContinuation(cb Continuation)

		// SetErrorContinuation replaces the rejection callback.
		SetErrorContinuation(cb ErrorContinuation)

		// ShouldBlock reports whether the scheduler must poll this task
		// exclusively, until it reaches a terminal outcome.
		ShouldBlock() bool

		// EnableBlocking requests blocking mode. Implementations that cannot
		// terminate on their own should ignore it.
		EnableBlocking()
	}

	// Continuation is invoked with the payload of a task that resolved Done.
	// It may return a follow-up task, which will be scheduled, or nil.
	Continuation func(payload any) Task

	// ErrorContinuation is invoked with the error of a task that was
	// Rejected. It may return a recovery task, which will be scheduled, or
	// nil.
	ErrorContinuation func(err error) Task
)

// Base implements the bookkeeping part of [Task]: single-slot continuation
// registers, and the blocking flag. It is intended to be embedded.
type Base struct {
	continuation      Continuation
	errorContinuation ErrorContinuation
	blocking          bool
}

// Continuation implements [Task.Continuation].
func (x *Base) Continuation() Continuation { return x.continuation }

// ErrorContinuation implements [Task.ErrorContinuation].
func (x *Base) ErrorContinuation() ErrorContinuation { return x.errorContinuation }

// SetContinuation implements [Task.SetContinuation].
func (x *Base) SetContinuation(cb Continuation) { x.continuation = cb }

// SetErrorContinuation implements [Task.SetErrorContinuation].
func (x *Base) SetErrorContinuation(cb ErrorContinuation) { x.errorContinuation = cb }

// ShouldBlock implements [Task.ShouldBlock].
func (x *Base) ShouldBlock() bool { return x.blocking }

// EnableBlocking implements [Task.EnableBlocking].
func (x *Base) EnableBlocking() { x.blocking = true }

// Then registers cb as the completion callback of t, replacing any existing
// one, and returns t.
func Then(t Task, cb Continuation) Task {
	if t != nil {
		t.SetContinuation(cb)
	}
	return t
}

// Catch registers cb as the rejection callback of t, replacing any existing
// one, and returns t.
func Catch(t Task, cb ErrorContinuation) Task {
	if t != nil {
		t.SetErrorContinuation(cb)
	}
	return t
}

// Block enables blocking mode on t, and returns t.
func Block(t Task) Task {
	if t != nil {
		t.EnableBlocking()
	}
	return t
}

// WithAbort wraps t such that it is rejected with an [*AbortError] as soon as
// signal is aborted, checked at the top of each poll. If t implements
// [io.Closer], it is closed when the abort is observed.
//
// The continuation registers and blocking flag are those of t.
func WithAbort(t Task, signal *AbortSignal) Task {
	if t == nil || signal == nil {
		return t
	}
	return &abortableTask{Task: t, signal: signal}
}

type abortableTask struct {
	Task
	signal *AbortSignal
}

func (x *abortableTask) Poll() Outcome[any] {
	if err := x.signal.Err(); err != nil {
		if c, ok := x.Task.(io.Closer); ok {
			_ = c.Close()
		}
		return Rejected[any](err)
	}
	return x.Task.Poll()
}
