// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package poller

import (
	"time"

	"github.com/benbjohnson/clock"
)

type (
	// TimerOption configures a [Timeout] or [Interval].
	TimerOption interface {
		applyTimer(*timerOptions)
	}

	timerOptionImpl struct {
		applyTimerFunc func(*timerOptions)
	}

	timerOptions struct {
		clock  clock.Clock
		signal *AbortSignal
	}
)

func (x *timerOptionImpl) applyTimer(opts *timerOptions) {
	x.applyTimerFunc(opts)
}

// WithSignal configures a timer to observe an [AbortSignal]. Once aborted,
// the timer's next poll rejects with an [*AbortError], without invoking its
// action.
func WithSignal(signal *AbortSignal) TimerOption {
	return &timerOptionImpl{func(opts *timerOptions) {
		opts.signal = signal
	}}
}

func resolveTimerOptions(opts []TimerOption) *timerOptions {
	cfg := &timerOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyTimer(cfg)
	}
	if cfg.clock == nil {
		cfg.clock = clock.New()
	}
	return cfg
}

// Timeout is a one-shot timer task. It resolves Done(struct{}{}) on the
// first poll at which at least the configured duration has elapsed since
// construction, invoking its action exactly once. It never fires early; the
// latency above the floor is bounded by the scheduler's sweep rate.
type Timeout struct {
	Base
	clock  clock.Clock
	signal *AbortSignal
	action func()
	start  time.Time
	d      time.Duration
	fired  bool
}

var _ Task = (*Timeout)(nil)

// NewTimeout creates a [Timeout], which will invoke action (if non-nil) once
// d has elapsed. The reference instant is taken at construction, not when the
// task is scheduled.
func NewTimeout(action func(), d time.Duration, opts ...TimerOption) *Timeout {
	cfg := resolveTimerOptions(opts)
	return &Timeout{
		clock:  cfg.clock,
		signal: cfg.signal,
		action: action,
		start:  cfg.clock.Now(),
		d:      d,
	}
}

// Poll implements [Task.Poll].
func (x *Timeout) Poll() Outcome[any] {
	if x.fired {
		return Done[any](struct{}{})
	}
	if err := x.signal.Err(); err != nil {
		return Rejected[any](err)
	}
	if x.clock.Since(x.start) < x.d {
		return Pending[any]()
	}
	x.fired = true
	if x.action != nil {
		x.action()
	}
	return Done[any](struct{}{})
}

// Fired reports whether the action has been invoked.
func (x *Timeout) Fired() bool {
	return x.fired
}

// Interval is a recurring timer task. Each poll at which more than the
// configured period has elapsed since its reference instant resets the
// reference to the current time, then invokes the action. Successive periods
// therefore drift by the cost of a poll-and-invoke cycle.
//
// An Interval never resolves. It leaves the scheduler only when its
// [AbortSignal] is aborted, or [Interval.Stop] is called, at which point it
// rejects with an [*AbortError], which the scheduler treats as cancellation.
// Blocking mode is not supported, as it would never end.
type Interval struct {
	Base
	clock   clock.Clock
	signal  *AbortSignal
	stopped *AbortController
	action  func()
	ref     time.Time
	period  time.Duration
	fired   uint64
}

var _ Task = (*Interval)(nil)

// NewInterval creates an [Interval], which will invoke action every period.
func NewInterval(action func(), period time.Duration, opts ...TimerOption) *Interval {
	cfg := resolveTimerOptions(opts)
	stopped := NewAbortController()
	return &Interval{
		clock:   cfg.clock,
		signal:  AbortAny(cfg.signal, stopped.Signal()),
		stopped: stopped,
		action:  action,
		ref:     cfg.clock.Now(),
		period:  period,
	}
}

// Poll implements [Task.Poll]. It returns Pending until cancelled.
func (x *Interval) Poll() Outcome[any] {
	if err := x.signal.Err(); err != nil {
		return Rejected[any](err)
	}
	now := x.clock.Now()
	if now.Sub(x.ref) > x.period {
		x.ref = now
		x.fired++
		if x.action != nil {
			x.action()
		}
	}
	return Pending[any]()
}

// EnableBlocking is a no-op, see [Interval].
func (x *Interval) EnableBlocking() {}

// ShouldBlock always returns false.
func (x *Interval) ShouldBlock() bool { return false }

// Stop cancels the interval. The action will not be invoked again, and the
// next poll rejects with an [*AbortError] wrapping [ErrStopped]. It is safe to
// call from any goroutine, and more than once.
func (x *Interval) Stop() {
	x.stopped.Abort(ErrStopped)
}

// Fired returns the number of times the action has been invoked.
func (x *Interval) Fired() uint64 {
	return x.fired
}
