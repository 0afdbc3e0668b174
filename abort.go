// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package poller

import (
	"errors"
	"sync"
	"time"
)

// AbortSignal is the cancellation token observed by tasks. Tasks provided by
// this package check it at the top of each poll, and reject with an
// [*AbortError] once it has been aborted.
//
// Thread Safety:
// AbortSignal is safe for concurrent access from multiple goroutines, which
// allows a scheduler to be cancelled from outside its Run goroutine.
//
// Usage:
//
//	controller := poller.NewAbortController()
//	interval := poller.NewInterval(tick, time.Second, poller.WithSignal(controller.Signal()))
//	sched.Schedule(interval)
//
//	// later, possibly from another goroutine
//	controller.Abort("shutting down")
type AbortSignal struct {
	handlers []func(reason any)
	reason   any
	mu       sync.RWMutex
	aborted  bool
}

func newAbortSignal() *AbortSignal {
	return &AbortSignal{}
}

// Aborted returns true if the signal has been aborted.
func (s *AbortSignal) Aborted() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aborted
}

// Reason returns the abort reason, or nil if not aborted.
func (s *AbortSignal) Reason() any {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

// Err returns an [*AbortError] if the signal has been aborted, otherwise
// nil. A nil signal is never aborted.
func (s *AbortSignal) Err() error {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.aborted {
		return &AbortError{Reason: s.reason}
	}
	return nil
}

// OnAbort registers a callback function to be invoked when the signal is
// aborted. If the signal is already aborted, the callback is invoked
// immediately, with the current abort reason.
//
// Callbacks run on the goroutine that called [AbortController.Abort], which
// is not necessarily the scheduler's goroutine.
func (s *AbortSignal) OnAbort(handler func(reason any)) {
	if s == nil || handler == nil {
		return
	}

	s.mu.Lock()
	if s.aborted {
		reason := s.reason
		s.mu.Unlock()
		handler(reason)
		return
	}

	s.handlers = append(s.handlers, handler)
	s.mu.Unlock()
}

func (s *AbortSignal) abort(reason any) {
	s.mu.Lock()

	if s.aborted {
		s.mu.Unlock()
		return
	}

	s.aborted = true
	s.reason = reason

	handlers := s.handlers
	s.handlers = nil
	s.mu.Unlock()

	for _, handler := range handlers {
		handler(reason)
	}
}

// AbortController owns an [AbortSignal], and is the only way to abort it.
type AbortController struct {
	signal *AbortSignal
}

// NewAbortController creates a new AbortController with a fresh AbortSignal.
func NewAbortController() *AbortController {
	return &AbortController{
		signal: newAbortSignal(),
	}
}

// Signal returns the AbortSignal associated with this controller.
func (c *AbortController) Signal() *AbortSignal {
	return c.signal
}

// Abort aborts the controller's signal with the given reason.
//
// If reason is nil, [ErrAborted] is used. Calling Abort multiple times has
// no additional effect, the original reason is retained.
func (c *AbortController) Abort(reason any) {
	if reason == nil {
		reason = ErrAborted
	}
	c.signal.abort(reason)
}

// ErrAborted is the default abort reason.
var ErrAborted = errors.New("poller: operation was aborted")

// AbortError is the rejection reason of a task that observed an aborted
// [AbortSignal].
//
// The [Scheduler] treats an unhandled AbortError as a cancellation, rather
// than a fatal fault.
type AbortError struct {
	// Reason contains the abort reason provided to AbortController.Abort().
	Reason any
}

// Error implements the error interface.
func (e *AbortError) Error() string {
	if e.Reason == nil {
		return "poller: aborted"
	}
	if s, ok := e.Reason.(string); ok {
		return "poller: aborted: " + s
	}
	if err, ok := e.Reason.(error); ok {
		return "poller: aborted: " + err.Error()
	}
	return "poller: aborted"
}

// Is implements errors.Is support for AbortError.
func (e *AbortError) Is(target error) bool {
	_, ok := target.(*AbortError)
	return ok
}

// Unwrap returns the underlying error if Reason is an error type.
func (e *AbortError) Unwrap() error {
	if err, ok := e.Reason.(error); ok {
		return err
	}
	return nil
}

// AbortTimeout creates an AbortController, and a [Timeout] task which will
// abort it once the duration has elapsed. The task must be scheduled for the
// timeout to take effect.
func AbortTimeout(d time.Duration, opts ...TimerOption) (*AbortController, *Timeout) {
	controller := NewAbortController()
	timeout := NewTimeout(func() {
		controller.Abort("timed out after " + d.String())
	}, d, opts...)
	return controller, timeout
}

// AbortAny creates a composite AbortSignal that aborts when ANY of the input
// signals abort, with the reason of the first. Nil signals are ignored.
func AbortAny(signals ...*AbortSignal) *AbortSignal {
	composite := newAbortSignal()

	for _, sig := range signals {
		if sig.Aborted() {
			composite.abort(sig.Reason())
			return composite
		}
	}

	for _, sig := range signals {
		sig.OnAbort(composite.abort)
	}

	return composite
}
