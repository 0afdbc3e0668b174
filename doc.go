// Package poller provides a single-goroutine, poll-based cooperative task
// scheduler: a minimal "future" runtime.
//
// # Architecture
//
// A [Scheduler] owns a set of in-progress [Task] values. Each call to
// [Scheduler.Run] repeatedly sweeps that set, calling [Task.Poll] on every
// task, until the set is empty. A poll returns an [Outcome], which is one of:
//
//   - Pending: the task is not finished, poll it again later
//   - Done: the task finished with an (optional, typed) payload
//   - Rejected: the task failed with an error
//
// Terminal tasks are removed from the set in the same sweep step that
// observed the terminal outcome, and are never polled again. A task may carry
// a completion [Continuation] (then) and an [ErrorContinuation] (catch), each
// of which may return a follow-up task, which is scheduled on the same run.
//
// Tasks provided by this package:
//   - [Promise]: a generic task built from a step function plus owned data
//   - [Timeout]: resolves once a duration has elapsed (see [NewTimeout])
//   - [Interval]: perpetually invokes an action every period (see [NewInterval])
//
// The iotask subpackage provides a non-blocking TCP listener implemented as a
// Task.
//
// # Execution Model
//
// Everything runs on the goroutine that called [Scheduler.Run]. There is no
// preemption: a task that never returns from Poll starves every other task.
// Tasks must adapt blocking operations into "try once, report Pending"
// semantics.
//
// A task may opt in to blocking mode (see [Block]). When the scheduler
// encounters a blocking task it polls that task in a tight loop, ignoring all
// other tasks, until it reaches a terminal outcome. This emulates a
// synchronous await, and is intentionally unfair.
//
// No ordering is guaranteed between tasks. Completed tasks are removed by
// swapping with the tail of the set, and the task swapped into the vacated
// slot is first polled on the following sweep.
//
// # Error Handling
//
// A Rejected outcome is handed to the task's error continuation. If there is
// none, the rejection is unhandled, which is fatal: [Scheduler.Run] stops and
// returns an [*UnhandledRejectionError]. The one exception is cancellation,
// see [AbortController]: an unhandled [*AbortError] is logged and dropped.
//
// # Usage
//
//	sched, err := poller.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	n := 0
//	sched.Schedule(poller.Func(func() poller.Outcome[int] {
//	    if n++; n < 10 {
//	        return poller.Pending[int]()
//	    }
//	    return poller.Done(n)
//	}).Then(func(v int) poller.Task {
//	    fmt.Println("counted to", v)
//	    return nil
//	}))
//
//	if err := sched.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
package poller
