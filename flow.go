// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryflow

import (
	"time"

	"github.com/gogama/retryflow/request"
	"github.com/gogama/retryflow/retry"
)

// A State is the position of a Flow in its lifecycle.
type State int

const (
	// AwaitSend is the initial state. The send loop must call Next to
	// take the request to send.
	AwaitSend State = iota
	// AwaitOutcome means a request has been handed out and the flow is
	// waiting for the send loop to Report how the attempt ended.
	AwaitOutcome
	// Delaying means a retry has been authorized. The send loop should
	// wait for the Step's Delay and then call Next to take the request
	// to resend.
	Delaying
	// Terminated means the flow has ended. It is absorbing: every
	// further call returns a UsageError.
	Terminated
)

var stateNames = []string{
	"AwaitSend",
	"AwaitOutcome",
	"Delaying",
	"Terminated",
}

func (s State) String() string {
	if s < AwaitSend || int(s) >= len(stateNames) {
		return "State(?)"
	}
	return stateNames[s]
}

// A Step is the flow's response to a reported outcome.
type Step struct {
	// Done is true if the flow has terminated. Outcome is then the
	// final outcome of the logical request.
	Done bool
	// Outcome is the outcome which was just reported.
	Outcome *request.Outcome
	// Decision is the limiter decision which produced this step.
	Decision retry.Decision
	// Delay is how long to wait before the next attempt. It is only
	// meaningful when Done is false.
	Delay time.Duration
}

// A Flow drives the retries of one logical request. It is an explicit
// state machine which the send loop advances by alternating calls to
// Next and Report:
//
//	r, _ := f.Next()
//	for {
//		o := send(r)
//		step, _ := f.Report(o)
//		if step.Done {
//			return step.Outcome
//		}
//		sleep(step.Delay)
//		r, _ = f.Next()
//	}
//
// A Flow performs no I/O and owns no resources, so a send loop which is
// cancelled may simply stop driving it. A Flow must not be driven by
// more than one goroutine at a time.
type Flow struct {
	req      *request.Request
	limiter  retry.LimiterFlow
	schedule retry.ScheduleFlow
	state    State
	last     *request.Outcome
	attempts int
}

// Next returns the request to send for the next attempt. It is valid in
// state AwaitSend, where it returns the original request, and in state
// Delaying, where it returns the same request as possibly mutated by
// the retry limiter. Either way the flow moves to AwaitOutcome.
func (f *Flow) Next() (*request.Request, error) {
	if f.state != AwaitSend && f.state != Delaying {
		return nil, &UsageError{Op: "Next", State: f.state}
	}
	f.state = AwaitOutcome
	f.attempts++
	return f.req, nil
}

// Report hands the flow the outcome of the attempt started by the last
// call to Next. It is only valid in state AwaitOutcome, and o must be
// non-nil.
//
// The retry limiter decides on o. If it authorizes a retry, the flow
// moves to Delaying and the returned Step carries the delay produced by
// the retry schedule. Otherwise, including when the limiter passes, the
// flow terminates and the Step carries o as the final outcome.
func (f *Flow) Report(o *request.Outcome) (Step, error) {
	if f.state != AwaitOutcome {
		return Step{}, &UsageError{Op: "Report", State: f.state}
	}
	if o == nil {
		return Step{}, &UsageError{Op: "Report(nil)", State: f.state}
	}

	f.last = o
	d := f.limiter.Decide(o, f.req)
	if d != retry.Retry {
		f.state = Terminated
		return Step{Done: true, Outcome: o, Decision: d}, nil
	}

	if obs, ok := f.schedule.(retry.Observer); ok {
		obs.Observe(o)
	}
	delay := f.schedule.NextDelay()
	if delay < 0 {
		delay = 0
	}
	f.state = Delaying
	return Step{Outcome: o, Decision: d, Delay: delay}, nil
}

// State returns the flow's current state.
func (f *Flow) State() State {
	return f.state
}

// Outcome returns the most recently reported outcome, or nil if no
// outcome has been reported yet. Once the flow has terminated it is the
// final outcome.
func (f *Flow) Outcome() *request.Outcome {
	return f.last
}

// Attempts returns the number of requests handed out by Next.
func (f *Flow) Attempts() int {
	return f.attempts
}
