// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package poller

// Promise is the generic [Task]: a step function, invoked once per poll,
// with mutable access to auxiliary data owned by the promise.
//
// D is the type of the owned data (use struct{} for none), and T is the type
// of the payload the promise resolves with. The payload type is retained by
// [Promise.Then], which is the reason to prefer it over the untyped [Then].
//
// Example:
//
//	p := poller.NewPromise(0, func(n *int) poller.Outcome[string] {
//	    if *n++; *n < 3 {
//	        return poller.Pending[string]()
//	    }
//	    return poller.Done("three")
//	}).Then(func(s string) poller.Task {
//	    fmt.Println(s)
//	    return nil
//	})
type Promise[D, T any] struct {
	Base
	step func(data *D) Outcome[T]
	data D
}

var _ Task = (*Promise[struct{}, any])(nil)

// NewPromise creates a promise from a step function and its owned data. A
// nil step panics.
func NewPromise[D, T any](data D, step func(data *D) Outcome[T]) *Promise[D, T] {
	if step == nil {
		panic("poller: nil step function")
	}
	return &Promise[D, T]{step: step, data: data}
}

// Func creates a promise without owned data, for steps that capture their
// state by closure.
func Func[T any](step func() Outcome[T]) *Promise[struct{}, T] {
	if step == nil {
		panic("poller: nil step function")
	}
	return NewPromise(struct{}{}, func(*struct{}) Outcome[T] { return step() })
}

// Resolve creates a promise that resolves with value on its first poll.
func Resolve[T any](value T) *Promise[struct{}, T] {
	return Func(func() Outcome[T] { return Done(value) })
}

// Reject creates a promise that is rejected with err on its first poll.
func Reject[T any](err error) *Promise[struct{}, T] {
	return Func(func() Outcome[T] { return Rejected[T](err) })
}

// Poll implements [Task.Poll], invoking the step function.
func (x *Promise[D, T]) Poll() Outcome[any] {
	return x.step(&x.data).Any()
}

// Data returns a pointer to the owned data. It must only be used from the
// scheduler's goroutine, or before the promise is scheduled.
func (x *Promise[D, T]) Data() *D {
	return &x.data
}

// Then registers a typed completion callback, replacing any existing one.
// A nil fn clears the callback.
func (x *Promise[D, T]) Then(fn func(value T) Task) *Promise[D, T] {
	if fn == nil {
		x.SetContinuation(nil)
		return x
	}
	x.SetContinuation(func(payload any) Task {
		v, _ := payload.(T)
		return fn(v)
	})
	return x
}

// Catch registers the rejection callback, replacing any existing one.
func (x *Promise[D, T]) Catch(fn func(err error) Task) *Promise[D, T] {
	x.SetErrorContinuation(fn)
	return x
}

// Block enables blocking mode, see [Block].
func (x *Promise[D, T]) Block() *Promise[D, T] {
	x.EnableBlocking()
	return x
}
