// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package poller

import (
	"errors"

	"github.com/benbjohnson/clock"
	"github.com/joeycumines/logiface"
	"go.opentelemetry.io/otel/trace"
)

// schedulerOptions holds configuration options for Scheduler creation.
type schedulerOptions struct {
	logger        *logiface.Logger[logiface.Event]
	tracer        trace.Tracer
	clock         clock.Clock
	faultReporter func(err error)
}

// --- Scheduler Options ---

// Option configures a Scheduler instance.
type Option interface {
	applyScheduler(*schedulerOptions) error
}

// schedulerOptionImpl implements Option.
type schedulerOptionImpl struct {
	applySchedulerFunc func(*schedulerOptions) error
}

func (x *schedulerOptionImpl) applyScheduler(opts *schedulerOptions) error {
	return x.applySchedulerFunc(opts)
}

// WithLogger configures structured logging for the scheduler. A nil logger
// (the default) disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithTracer configures the tracer used for Run and blocking-await spans.
// Defaults to a tracer from the global otel TracerProvider.
func WithTracer(tracer trace.Tracer) Option {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		if tracer == nil {
			return errors.New("poller: nil tracer")
		}
		opts.tracer = tracer
		return nil
	}}
}

// WithFaultReporter configures a hook, which is invoked with every fatal
// fault (e.g. an [*UnhandledRejectionError]) before [Scheduler.Run] returns
// it.
func WithFaultReporter(fn func(err error)) Option {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.faultReporter = fn
		return nil
	}}
}

// ClockOption is returned by [WithClock], and may be used as either an
// [Option] or a [TimerOption].
type ClockOption struct {
	clock clock.Clock
}

var (
	_ Option      = ClockOption{}
	_ TimerOption = ClockOption{}
)

// WithClock configures the time source. As a [TimerOption], it determines
// when timers fire; as an [Option], it is used to measure durations for
// logging and tracing. Defaults to the system clock. Use [clock.NewMock] in
// tests.
func WithClock(clk clock.Clock) ClockOption {
	return ClockOption{clock: clk}
}

func (x ClockOption) applyScheduler(opts *schedulerOptions) error {
	if x.clock == nil {
		return errors.New("poller: nil clock")
	}
	opts.clock = x.clock
	return nil
}

func (x ClockOption) applyTimer(opts *timerOptions) {
	if x.clock != nil {
		opts.clock = x.clock
	}
}

// resolveSchedulerOptions applies Option instances to schedulerOptions.
func resolveSchedulerOptions(opts []Option) (*schedulerOptions, error) {
	cfg := &schedulerOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyScheduler(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.clock == nil {
		cfg.clock = clock.New()
	}
	if cfg.tracer == nil {
		cfg.tracer = defaultTracer()
	}
	return cfg, nil
}
