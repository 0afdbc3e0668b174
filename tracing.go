// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package poller

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/joeycumines/go-poller"

func defaultTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func (s *Scheduler) startRunSpan(ctx context.Context) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "poller.Scheduler.Run", trace.WithAttributes(
		attribute.Int("poller.active", len(s.active)),
	))
}

func (s *Scheduler) endRunSpan(span trace.Span, before Stats, err error) {
	span.SetAttributes(
		attribute.Int64("poller.sweeps", int64(s.stats.Sweeps-before.Sweeps)),
		attribute.Int64("poller.polls", int64(s.stats.Polls-before.Polls)),
		attribute.Int64("poller.completed", int64(s.stats.Completed-before.Completed)),
		attribute.Int64("poller.rejected", int64(s.stats.Rejected-before.Rejected)),
		attribute.Int("poller.remaining", len(s.active)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Scheduler) startAwaitSpan(ctx context.Context, task Task) trace.Span {
	if !trace.SpanFromContext(ctx).IsRecording() {
		return trace.SpanFromContext(ctx)
	}
	_, span := s.tracer.Start(ctx, "poller.Scheduler.await", trace.WithAttributes(
		attribute.String("poller.task", TaskName(task)),
	))
	return span
}

func (s *Scheduler) endAwaitSpan(span trace.Span, polls int64, err error) {
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.Int64("poller.polls", polls))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
