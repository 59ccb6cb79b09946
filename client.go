// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryflow

import (
	"context"
	"errors"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/gogama/retryflow/request"
	"github.com/gogama/retryflow/timeout"
	"github.com/gogama/retryflow/transient"
)

var emptyHandlers = HandlerGroup{}

// A Client is a send loop which drives a retry Flow for each logical
// request, sending attempts with a Sender. Its zero value is a valid
// configuration.
//
// The zero value client uses an HTTPSender wrapping http.DefaultClient
// (from net/http) as the sender, DefaultOrchestrator as the retry
// orchestrator, timeout.DefaultPolicy as the timeout policy, the real
// clock, and an empty handler group (no event handlers/plug-ins).
//
// Client is safe for concurrent use by multiple goroutines. Each call to
// Do begins a fresh Flow, so concurrent requests never share retry
// state.
//
// On top of the retry flow, Client adds the following features:
//
// • Client sets individual attempt timeouts using a customizable
// timeout policy, and reports an attempt which ran out of time with no
// more specific failure kind as a retryable read failure;
//
// • Client waits between attempts for the delay chosen by the retry
// schedule, stopping early if the context is cancelled; and
//
// • Client invokes user-provided handler functions at designated plug-in
// points within the attempt/retry loop, allowing new features such as
// logging, metrics, and tracing to be mixed in from outside the core.
type Client struct {
	// Sender specifies the mechanics of making one attempt.
	//
	// If Sender is nil, an HTTPSender using http.DefaultClient is used.
	Sender Sender
	// Orchestrator decides when to retry failed attempts and how long
	// to wait before retrying. Use Resolve to build one from a retry
	// count, a retry.Limiter, or a retry.Policy.
	//
	// If Orchestrator is nil, DefaultOrchestrator is used.
	Orchestrator *Orchestrator
	// TimeoutPolicy specifies how to set timeouts on individual
	// attempts.
	//
	// If TimeoutPolicy is nil, timeout.DefaultPolicy is used.
	TimeoutPolicy timeout.Policy
	// Handlers allows custom handler chains to be invoked when
	// designated events occur during an execution.
	//
	// If Handlers is nil, no custom handlers will be run.
	Handlers *HandlerGroup
	// Clock is used to time executions and the waits between attempts.
	//
	// If Clock is nil, the real clock is used.
	Clock quartz.Clock
}

// Do sends the logical request r, retrying according to the client's
// orchestrator, and returns the results.
//
// The result returned is the result of the final attempt made, as
// determined by the retry flow. When the retry limiter's budget runs
// out, the last real outcome is returned; there is no separate
// "retries exhausted" error.
//
// An error is returned if the final attempt ended in a transport error,
// or if ctx was cancelled or its deadline exceeded before the retry
// flow terminated. An HTTP response with a non-2XX status code in the
// final attempt does not result in an error.
//
// The returned Execution is never nil. If an error was returned, the Err
// field of the Execution always references the same error. The final
// outcome, if any attempt completed, is in the Outcome field.
func (c *Client) Do(ctx context.Context, r *request.Request) (*request.Execution, error) {
	e := &request.Execution{
		ID:      uuid.NewString(),
		Request: r,
	}
	e.SetContext(ctx)

	sender := c.sender()
	clock := c.clock()

	timeoutPolicy := c.TimeoutPolicy
	if timeoutPolicy == nil {
		timeoutPolicy = timeout.DefaultPolicy
	}

	orchestrator := c.Orchestrator
	if orchestrator == nil {
		orchestrator = DefaultOrchestrator
	}

	handlers := c.Handlers
	if handlers == nil {
		handlers = &emptyHandlers
	}
	handlers.run(BeforeExecutionStart, e)
	ctx = e.Context()
	e.Start = clock.Now()

	flow := orchestrator.Begin(r)
	for {
		next, err := flow.Next()
		if err != nil {
			e.Err = err
			break
		}
		sendAndReceive(ctx, next, e, sender, handlers, timeoutPolicy)

		if ctxErr := ctx.Err(); ctxErr != nil {
			executionDone(ctxErr, e, handlers)
			break
		}

		step, err := flow.Report(e.Outcome)
		if err != nil {
			e.Err = err
			break
		}
		if step.Done {
			break
		}

		if err = wait(ctx, clock, step.Delay, e, handlers); err != nil {
			executionDone(err, e, handlers)
			break
		}
		e.Attempt++
	}

	e.End = clock.Now()
	handlers.run(AfterExecutionEnd, e)
	return e, e.Err
}

func sendAndReceive(ctx context.Context, r *request.Request, e *request.Execution, sender Sender, handlers *HandlerGroup, timeoutPolicy timeout.Policy) {
	// The timeout policy reads the previous attempt's outcome, so it runs
	// before the outcome is cleared.
	attemptCtx, cancel := context.WithTimeout(ctx, timeoutPolicy.Timeout(e))
	defer cancel()
	e.Outcome = nil
	e.Err = nil
	handlers.run(BeforeAttempt, e)
	o := sender.Send(attemptCtx, r)
	if o == nil {
		panic("retryflow: sender returned nil outcome")
	}
	if o.IsError() && o.Kind == transient.Other && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		// Only the attempt deadline expired, so the server was too slow
		// to answer this one attempt. A classified failure such as a
		// write error keeps its kind.
		o = request.TransportError(transient.Read, o.Err)
	}
	e.Outcome = o
	e.Err = o.Err
	if e.Timeout() {
		e.AttemptTimeouts++
		handlers.run(AfterAttemptTimeout, e)
	}
	handlers.run(AfterAttempt, e)
}

func wait(ctx context.Context, clock quartz.Clock, d time.Duration, e *request.Execution, handlers *HandlerGroup) error {
	e.Wait = d
	if d <= 0 {
		handlers.run(BeforeWait, e)
		return ctx.Err()
	}
	timer := clock.NewTimer(d, "Client", "wait")
	defer timer.Stop()
	handlers.run(BeforeWait, e)
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func executionDone(err error, e *request.Execution, handlers *HandlerGroup) {
	e.Err = err
	if errors.Is(err, context.DeadlineExceeded) {
		handlers.run(AfterExecutionTimeout, e)
	}
}

// CloseIdleConnections invokes the same method on the client's
// underlying Sender.
//
// If the Sender has no CloseIdleConnections method, this method does
// nothing. The default sender forwards the call to http.DefaultClient.
func (c *Client) CloseIdleConnections() {
	if ic, ok := c.sender().(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (c *Client) sender() Sender {
	if c.Sender == nil {
		return &HTTPSender{}
	}

	return c.Sender
}

func (c *Client) clock() quartz.Clock {
	if c.Clock == nil {
		return quartz.NewReal()
	}

	return c.Clock
}
