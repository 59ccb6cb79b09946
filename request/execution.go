// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"net/http"
	"time"

	"github.com/gogama/retryflow/transient"
)

// An Execution represents the state of a single logical request being
// driven through a retry flow by a send loop.
//
// When a send loop such as retryflow.Client starts a logical request,
// an Execution is created for it. The Execution is updated as the
// execution progresses (for example when an attempt outcome becomes
// available, or when a wait is scheduled) and is ultimately returned as
// the result of the execution.
//
// Timeout policies and event handlers may set values on an Execution
// using its SetValue method and read them back using the Value method.
// However, they should treat the structure's exported field values as
// immutable and leave them unmodified, as the execution state is vital
// to the correct functioning of the send loop.
type Execution struct {
	// ID uniquely identifies the execution. It is assigned when the
	// execution starts and remains constant thereafter.
	ID string

	// Request is the request being sent. It is the same value on every
	// attempt, although retry limiters may have mutated its headers
	// between attempts.
	Request *Request

	// Start is the start time of the execution. It is assigned a
	// non-zero value when the execution starts, and this value remains
	// constant thereafter.
	Start time.Time

	// End is the end time of the execution. It contains the zero value
	// until the execution ends, when it is set to the current time.
	End time.Time

	// Attempt is the zero-based number of the current attempt. It is
	// zero on the initial attempt, one on the first retry, and so on.
	//
	// When the execution is ended, Attempt contains the zero-based
	// number of the last attempt made. So for example an execution that
	// ends after an initial attempt plus two retries will have an
	// attempt number of 2.
	Attempt int

	// AttemptTimeouts is the count of the number of times an attempt
	// timed out during the execution.
	AttemptTimeouts int

	// Outcome is the outcome of the most recent attempt. It is nil
	// before the first attempt completes and while an attempt is
	// underway.
	Outcome *Outcome

	// Err is the error from the most recent attempt, or the context
	// error if the execution was cancelled. It is nil if the most
	// recent attempt received an HTTP response.
	//
	// Once the execution has ended, Err will not change and has the
	// same value as the error returned by the send loop.
	Err error

	// Wait is the duration of the most recently scheduled wait before a
	// retry. It is zero until the first retry is scheduled.
	Wait time.Duration

	ctx  context.Context
	data context.Context
}

// Context returns the context the execution runs under. It is never
// nil: if no context was bound with SetContext, context.Background is
// returned.
func (e *Execution) Context() context.Context {
	if e.ctx == nil {
		return context.Background()
	}

	return e.ctx
}

// SetContext binds the context the execution runs under. Send loops
// call it when the execution starts. Event handlers which start child
// operations, such as trace spans, may replace it with a derived
// context.
func (e *Execution) SetContext(ctx context.Context) {
	if ctx == nil {
		panic("retryflow/request: nil context")
	}

	e.ctx = ctx
}

// StatusCode returns the status code of the HTTP response from the most
// recent attempt. If there is no HTTP response, 0 is returned.
func (e *Execution) StatusCode() int {
	if e.Outcome == nil {
		return 0
	}

	return e.Outcome.StatusCode
}

// Header returns the HTTP response headers from the most recent attempt.
// If there is no HTTP response, the nil header is returned.
//
// Note that a nil return value is always safe for read-only operations,
// since http.Header is a map type.
func (e *Execution) Header() http.Header {
	if e.Outcome == nil {
		var nilHeader http.Header
		return nilHeader
	}

	return e.Outcome.Header
}

// Duration returns the duration of the execution.
//
// If the execution has not yet started, the duration is zero. If the
// execution has Ended, the duration returned is equal to End minus
// Start. Otherwise, it is equal to the current time minus Start.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return time.Since(e.Start)
	}

	return e.End.Sub(e.Start)
}

// Started indicates whether the execution has started.
func (e *Execution) Started() bool {
	return e.Start != (time.Time{})
}

// Ended indicates whether the execution has ended.
func (e *Execution) Ended() bool {
	return e.End != (time.Time{})
}

// Timeout indicates whether Err currently contains a non-nil value
// which indicates a timeout.
func (e *Execution) Timeout() bool {
	return transient.IsTimeout(e.Err)
}

// SetValue allows event handlers to store arbitrary data in the
// execution.
//
// The key must follow the same rules as the key parameter in
// context.WithValue, namely it:
//
// • it may not be nil;
//
// • it must be comparable;
//
// • it should not be of type string or any other built-in type to avoid
// collisions between different event handlers putting data into the
// same execution.
func (e *Execution) SetValue(key, value interface{}) {
	ctx := e.data
	if ctx == nil {
		ctx = context.Background()
	}

	e.data = context.WithValue(ctx, key, value)
}

// Value returns the data value associated with this execution for key,
// or nil if there is no value associated with key.
func (e *Execution) Value(key interface{}) interface{} {
	ctx := e.data
	if ctx == nil {
		return nil
	}

	return ctx.Value(key)
}
