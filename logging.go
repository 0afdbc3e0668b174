// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package poller

import (
	"fmt"
	"time"
)

// Structured logging, via the (optional) logiface logger configured by
// WithLogger. Each helper checks the builder is enabled before computing any
// fields, to keep the disabled path free of allocations.

// TaskName returns the name used to identify a task in logs and spans. Tasks
// may implement [fmt.Stringer] to override the default, which is the dynamic
// type name.
func TaskName(task Task) string {
	if v, ok := task.(fmt.Stringer); ok {
		return v.String()
	}
	return fmt.Sprintf("%T", task)
}

func (s *Scheduler) logScheduled(task Task) {
	if b := s.logger.Trace(); b.Enabled() {
		b.Str("task", TaskName(task)).
			Int("active", len(s.active)).
			Log("poller: task scheduled")
	}
}

func (s *Scheduler) logCompleted(task Task) {
	if b := s.logger.Debug(); b.Enabled() {
		b.Str("task", TaskName(task)).
			Bool("continuation", task.Continuation() != nil).
			Log("poller: task completed")
	}
}

func (s *Scheduler) logRecovered(task Task, err error) {
	if b := s.logger.Info(); b.Enabled() {
		b.Str("task", TaskName(task)).
			Err(err).
			Log("poller: task rejected, invoking error continuation")
	}
}

func (s *Scheduler) logCancelled(task Task, err error) {
	if b := s.logger.Notice(); b.Enabled() {
		b.Str("task", TaskName(task)).
			Err(err).
			Log("poller: task cancelled")
	}
}

func (s *Scheduler) logUnhandled(task Task, err error) {
	if b := s.logger.Crit(); b.Enabled() {
		b.Str("task", TaskName(task)).
			Err(err).
			Log("poller: unhandled rejection")
	}
}

func (s *Scheduler) logPanic(task Task, err PanicError) {
	if b := s.logger.Err(); b.Enabled() {
		b.Str("task", TaskName(task)).
			Err(err).
			Log("poller: recovered panic in poll")
	}
}

func (s *Scheduler) logAwaiting(task Task) {
	if b := s.logger.Debug(); b.Enabled() {
		b.Str("task", TaskName(task)).
			Int("active", len(s.active)).
			Log("poller: blocking task started")
	}
}

func (s *Scheduler) logAwaited(task Task, polls int64, elapsed time.Duration) {
	if b := s.logger.Debug(); b.Enabled() {
		b.Str("task", TaskName(task)).
			Int64("polls", polls).
			Dur("elapsed", elapsed).
			Log("poller: blocking task settled")
	}
}

func (s *Scheduler) logRunEnd(elapsed time.Duration, err error) {
	if err != nil {
		if b := s.logger.Warning(); b.Enabled() {
			b.Err(err).
				Int("active", len(s.active)).
				Dur("elapsed", elapsed).
				Log("poller: run stopped")
		}
		return
	}
	if b := s.logger.Debug(); b.Enabled() {
		b.Dur("elapsed", elapsed).
			Uint64("sweeps", s.stats.Sweeps).
			Uint64("polls", s.stats.Polls).
			Log("poller: run finished")
	}
}
