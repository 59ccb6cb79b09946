// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryflow

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gogama/retryflow/request"
)

type spanKey struct{}

// InstallTracer installs handlers into g which record each execution as
// an OpenTelemetry span started from tracer.
//
// The span is a child of any span in the execution's context, and the
// execution's context is replaced with one carrying the new span, so
// that a Sender sees it. Each attempt and each retry wait is recorded
// as a span event.
func InstallTracer(g *HandlerGroup, tracer trace.Tracer) {
	if g == nil {
		panic("retryflow: nil handler group")
	}
	if tracer == nil {
		panic("retryflow: nil tracer")
	}

	g.PushBack(BeforeExecutionStart, HandlerFunc(func(_ Event, e *request.Execution) {
		ctx, span := tracer.Start(e.Context(), "retryflow.execution",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("retryflow.flow_id", e.ID),
				attribute.String("http.request.method", e.Request.Method),
				attribute.String("url.full", e.Request.Target),
			),
		)
		e.SetContext(ctx)
		e.SetValue(spanKey{}, span)
	}))
	g.PushBack(AfterAttempt, HandlerFunc(func(_ Event, e *request.Execution) {
		span := spanOf(e)
		if span == nil {
			return
		}
		attrs := []attribute.KeyValue{attribute.Int("retryflow.attempt", e.Attempt)}
		if o := e.Outcome; o.IsError() {
			attrs = append(attrs,
				attribute.String("retryflow.error_kind", o.Kind.String()),
				attribute.String("error.message", o.Err.Error()),
			)
		} else {
			attrs = append(attrs, attribute.Int("http.response.status_code", o.StatusCode))
		}
		span.AddEvent("attempt", trace.WithAttributes(attrs...))
	}))
	g.PushBack(BeforeWait, HandlerFunc(func(_ Event, e *request.Execution) {
		if span := spanOf(e); span != nil {
			span.AddEvent("retry.wait", trace.WithAttributes(
				attribute.Int("retryflow.attempt", e.Attempt),
				attribute.Int64("retryflow.wait_ms", e.Wait.Milliseconds()),
			))
		}
	}))
	g.PushBack(AfterExecutionEnd, HandlerFunc(func(_ Event, e *request.Execution) {
		span := spanOf(e)
		if span == nil {
			return
		}
		span.SetAttributes(
			attribute.Int("retryflow.attempts", e.Attempt+1),
			attribute.Int("retryflow.attempt_timeouts", e.AttemptTimeouts),
		)
		if status := e.StatusCode(); status != 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", status))
		}
		if e.Err != nil {
			span.RecordError(e.Err)
			span.SetStatus(codes.Error, e.Err.Error())
		}
		span.End()
	}))
}

func spanOf(e *request.Execution) trace.Span {
	span, _ := e.Value(spanKey{}).(trace.Span)
	return span
}
