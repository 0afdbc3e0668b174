// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package poller

import (
	"context"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/joeycumines/logiface"
	"go.opentelemetry.io/otel/trace"
)

// Scheduler is the cooperative run loop. It exclusively owns every task
// passed to [Scheduler.Schedule], and drives them to completion from within
// [Scheduler.Run].
//
// A Scheduler is not safe for concurrent use. All methods, including
// Schedule, must be called either from the goroutine running Run (i.e. from
// within a task or continuation), or while the scheduler is not running.
type Scheduler struct {
	// active is the set of in-progress tasks, in sweep order
	active []Task

	logger        *logiface.Logger[logiface.Event]
	tracer        trace.Tracer
	clock         clock.Clock
	faultReporter func(err error)

	stats Stats

	running atomic.Bool
}

// New creates a scheduler with an empty active set.
func New(opts ...Option) (*Scheduler, error) {
	cfg, err := resolveSchedulerOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		logger:        cfg.logger,
		tracer:        cfg.tracer,
		clock:         cfg.clock,
		faultReporter: cfg.faultReporter,
	}, nil
}

// Schedule takes ownership of task, appending it to the active set. Nil
// tasks are ignored.
func (s *Scheduler) Schedule(task Task) {
	if task == nil {
		return
	}
	s.active = append(s.active, task)
	s.stats.Scheduled++
	s.logScheduled(task)
}

// IsIdle returns true if the active set is empty.
func (s *Scheduler) IsIdle() bool {
	return len(s.active) == 0
}

// Len returns the number of tasks in the active set.
func (s *Scheduler) Len() int {
	return len(s.active)
}

// Run sweeps the active set until it is empty, returning nil.
//
// Each sweep polls every task at least once, in set order. A task reporting
// [Task.ShouldBlock] is instead polled exclusively, until it reaches a
// terminal outcome. Terminal tasks are removed, by swapping the last task
// into their slot, and their continuation or error continuation is invoked,
// scheduling any task it returns.
//
// Run returns early, with a non-nil error, if:
//   - ctx is done, checked before each sweep and before each blocking poll,
//     in which case ctx.Err() is returned
//   - a task is rejected without an error continuation, in which case an
//     [*UnhandledRejectionError] is returned (rejections whose cause is
//     itself an [*AbortError] are dropped, instead, but errors that merely
//     wrap one are not)
//   - a continuation panics, in which case a [*ContinuationPanicError] is
//     returned
//   - the scheduler is already running, in which case [ErrReentrantRun] is
//     returned
//
// The offending task has been removed from the set, but all other tasks
// remain, and Run may be called again.
func (s *Scheduler) Run(ctx context.Context) (err error) {
	if !s.running.CompareAndSwap(false, true) {
		return ErrReentrantRun
	}
	defer s.running.Store(false)

	ctx, span := s.startRunSpan(ctx)
	start, before := s.clock.Now(), s.stats
	defer func() {
		s.endRunSpan(span, before, err)
		s.logRunEnd(s.clock.Since(start), err)
	}()

	done := ctx.Done()

	for !s.IsIdle() {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.stats.Sweeps++

		for i := 0; i < len(s.active); {
			task := s.active[i]

			if task.ShouldBlock() {
				outcome, err := s.await(ctx, done, task)
				if err != nil {
					return err
				}
				if err := s.complete(i, outcome); err != nil {
					return s.fault(err)
				}
				// slot i was refilled by the swap
				continue
			}

			if outcome := s.poll(task); outcome.IsTerminal() {
				if err := s.complete(i, outcome); err != nil {
					return s.fault(err)
				}
			}

			// WARNING: Advances even after a completion, which defers the task
			// swapped into slot i to the next sweep.
			i++
		}
	}

	return nil
}

// poll calls task.Poll, converting a panic into a rejection.
func (s *Scheduler) poll(task Task) (outcome Outcome[any]) {
	s.stats.Polls++
	defer func() {
		if r := recover(); r != nil {
			s.stats.Panics++
			err := PanicError{Value: r}
			s.logPanic(task, err)
			outcome = Rejected[any](err)
		}
	}()
	return task.Poll()
}

// await polls task, and only task, until it reaches a terminal outcome.
func (s *Scheduler) await(ctx context.Context, done <-chan struct{}, task Task) (Outcome[any], error) {
	span := s.startAwaitSpan(ctx, task)
	start := s.clock.Now()
	s.logAwaiting(task)
	var polls int64
	for {
		select {
		case <-done:
			err := ctx.Err()
			s.endAwaitSpan(span, polls, err)
			return Outcome[any]{}, err
		default:
		}

		polls++
		if outcome := s.poll(task); outcome.IsTerminal() {
			s.endAwaitSpan(span, polls, nil)
			s.logAwaited(task, polls, s.clock.Since(start))
			return outcome, nil
		}
	}
}

// remove performs an O(1) removal of index i, reordering the tail.
func (s *Scheduler) remove(i int) Task {
	last := len(s.active) - 1
	task := s.active[i]
	s.active[i] = s.active[last]
	s.active[last] = nil
	s.active = s.active[:last]
	return task
}

// complete handles a terminal outcome for the task at index i.
func (s *Scheduler) complete(i int, outcome Outcome[any]) error {
	task := s.remove(i)

	switch outcome.State() {
	case StateDone:
		s.stats.Completed++
		s.logCompleted(task)
		cb := task.Continuation()
		if cb == nil {
			return nil
		}
		value, _ := outcome.Value()
		next, err := s.invoke(task, func() Task { return cb(value) })
		if err != nil {
			return err
		}
		s.Schedule(next)

	case StateRejected:
		s.stats.Rejected++
		cause := outcome.Err()
		if cb := task.ErrorContinuation(); cb != nil {
			s.stats.Recovered++
			s.logRecovered(task, cause)
			next, err := s.invoke(task, func() Task { return cb(cause) })
			if err != nil {
				return err
			}
			s.Schedule(next)
			return nil
		}
		// only a top-level AbortError is a cancellation, anything wrapping one
		// (including a PanicError) is an ordinary unhandled rejection
		if _, ok := cause.(*AbortError); ok {
			s.stats.Cancelled++
			s.logCancelled(task, cause)
			return nil
		}
		s.logUnhandled(task, cause)
		return &UnhandledRejectionError{Task: task, Cause: cause}
	}

	return nil
}

// invoke calls a continuation, converting a panic into a fault.
func (s *Scheduler) invoke(task Task, fn func() Task) (next Task, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ContinuationPanicError{Task: task, Panic: PanicError{Value: r}}
		}
	}()
	return fn(), nil
}

func (s *Scheduler) fault(err error) error {
	if s.faultReporter != nil {
		s.faultReporter(err)
	}
	return err
}
