// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package poller

// Stats is a snapshot of a scheduler's lifetime counters.
type Stats struct {
	// Sweeps is the number of passes over the active set.
	Sweeps uint64
	// Polls is the number of calls to Task.Poll, including blocking polls.
	Polls uint64
	// Scheduled is the number of tasks added, including by continuations.
	Scheduled uint64
	// Completed is the number of tasks that resolved Done.
	Completed uint64
	// Rejected is the number of tasks that were Rejected, for any reason.
	Rejected uint64
	// Recovered is the number of rejections passed to an error continuation.
	Recovered uint64
	// Cancelled is the number of unhandled rejections that were dropped
	// because their cause was an *AbortError (not merely wrapping one).
	Cancelled uint64
	// Panics is the number of panics recovered from Task.Poll.
	Panics uint64
	// Active is the size of the active set, at the time of the snapshot.
	Active int
}

// Stats returns a snapshot of the scheduler's counters. Like all other
// methods, it must not be called concurrently with Run, except from within
// a task or continuation.
func (s *Scheduler) Stats() Stats {
	stats := s.stats
	stats.Active = len(s.active)
	return stats
}
