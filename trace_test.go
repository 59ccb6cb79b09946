// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryflow

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/gogama/retryflow/request"
	"github.com/gogama/retryflow/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestTracer(t *testing.T) (*tracetest.InMemoryExporter, trace.Tracer) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Failed to shutdown test tracer provider: %v", err)
		}
	})

	return exporter, tp.Tracer("retryflow-test")
}

func TestInstallTracer(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		_, tracer := setupTestTracer(t)
		assert.PanicsWithValue(t, "retryflow: nil handler group", func() {
			InstallTracer(nil, tracer)
		})
		assert.PanicsWithValue(t, "retryflow: nil tracer", func() {
			InstallTracer(&HandlerGroup{}, nil)
		})
	})
	t.Run("success after retry", func(t *testing.T) {
		exporter, tracer := setupTestTracer(t)
		var sent []trace.SpanContext
		inner := scripted(request.HTTPResponse(503, nil), request.HTTPResponse(200, nil))
		cl := &Client{
			Sender: SenderFunc(func(ctx context.Context, r *request.Request) *request.Outcome {
				sent = append(sent, trace.SpanContextFromContext(ctx))
				return inner.Send(ctx, r)
			}),
			Orchestrator: newOrchestrator(t, retry.Must(retry.MaxErrorResponses(1, 503)), retry.Must(retry.Constant(0))),
			Handlers:     &HandlerGroup{},
		}
		InstallTracer(cl.Handlers, tracer)

		e, err := cl.Do(context.Background(), getRequest("http://example.com/t"))
		require.NoError(t, err)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		span := spans[0]
		assert.Equal(t, "retryflow.execution", span.Name)
		assert.Equal(t, trace.SpanKindClient, span.SpanKind)
		assert.Equal(t, codes.Unset, span.Status.Code)
		var events []string
		for _, evt := range span.Events {
			events = append(events, evt.Name)
		}
		assert.Equal(t, []string{"attempt", "retry.wait", "attempt"}, events)
		assert.Contains(t, span.Attributes, attribute.String("retryflow.flow_id", e.ID))
		assert.Contains(t, span.Attributes, attribute.String("url.full", "http://example.com/t"))
		assert.Contains(t, span.Attributes, attribute.Int("retryflow.attempts", 2))
		assert.Contains(t, span.Attributes, attribute.Int("http.response.status_code", 200))

		require.Len(t, sent, 2)
		for _, sc := range sent {
			assert.Equal(t, span.SpanContext.TraceID(), sc.TraceID(), "attempt context carries the span")
		}
	})
	t.Run("failure", func(t *testing.T) {
		exporter, tracer := setupTestTracer(t)
		cl := &Client{
			Sender:       scripted(connectErr()),
			Orchestrator: newOrchestrator(t, retry.DontRetry, retry.Must(retry.Constant(0))),
			Handlers:     &HandlerGroup{},
		}
		InstallTracer(cl.Handlers, tracer)

		_, err := cl.Do(context.Background(), getRequest("http://example.com"))
		require.Error(t, err)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status.Code)
		require.Len(t, spans[0].Events, 2, "attempt event and recorded error")
		assert.Equal(t, "attempt", spans[0].Events[0].Name)
		assert.Contains(t, spans[0].Events[0].Attributes, attribute.String("retryflow.error_kind", "Connect"))
		assert.Equal(t, "exception", spans[0].Events[1].Name)
	})
}
