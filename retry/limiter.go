// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"github.com/gogama/retryflow/request"
)

// A Decision is a retry limiter's verdict on one attempt outcome.
type Decision int

const (
	// GiveUp means the limiter refuses any further attempt. The outcome
	// which produced it becomes the final outcome of the flow.
	GiveUp Decision = iota
	// Retry means the limiter authorizes another attempt.
	Retry
	// Pass means the outcome is outside what the limiter counts, so it
	// has no opinion. A retry flow treats a top-level Pass like GiveUp;
	// composite limiters use it to let a constituent with an opinion
	// decide.
	Pass
)

var decisionNames = []string{
	"GiveUp",
	"Retry",
	"Pass",
}

func (d Decision) String() string {
	if d < GiveUp || int(d) >= len(decisionNames) {
		return "Decision(?)"
	}
	return decisionNames[d]
}

// A Limiter decides whether failed attempts of a logical request may be
// retried.
//
// A Limiter is configuration: it holds only parameters fixed at
// construction, and must be safe for concurrent use by multiple
// goroutines. All per-request state lives in the LimiterFlow returned
// by Begin, which is called once at the start of each logical request.
//
// Use the built-in limiters DontRetry, MaxErrors, MaxErrorsIf, and
// MaxErrorResponses, compose them with And and Or, and decorate them
// with OnRetry, AttemptHeader, and IdempotencyKey; or implement your
// own Limiter.
type Limiter interface {
	Begin() LimiterFlow
}

// A LimiterFlow is the per-request state of a Limiter.
//
// Decide is called exactly once per completed attempt, in order, by a
// single goroutine. If it returns Retry, it may first mutate the
// request in place to change what the next attempt sends. Decide never
// fails: every outcome maps to a Decision.
//
// Once a LimiterFlow's retry budget is exhausted, it must never again
// return Retry.
type LimiterFlow interface {
	Decide(o *request.Outcome, r *request.Request) Decision
}

// The LimiterFunc type is an adapter to allow the use of ordinary
// functions as limiters. The function is called once per logical
// request to create the request's LimiterFlow.
type LimiterFunc func() LimiterFlow

// Begin calls f().
func (f LimiterFunc) Begin() LimiterFlow {
	return f()
}

// The DecideFunc type is an adapter to allow the use of ordinary
// functions as limiter flows.
type DecideFunc func(o *request.Outcome, r *request.Request) Decision

// Decide calls f(o, r).
func (f DecideFunc) Decide(o *request.Outcome, r *request.Request) Decision {
	return f(o, r)
}

// A Classifier reports whether a transport error outcome may be
// retried. It is only consulted for outcomes whose Err is non-nil.
type Classifier func(o *request.Outcome) bool

// DefaultClassifier retries transport errors whose kind is retryable
// according to package transient: connect and read failures.
var DefaultClassifier Classifier = (*request.Outcome).Retryable

// DontRetry is a limiter which gives up on the first outcome, whatever
// it is. It disables retries while sharing the same interface as other
// limiters.
var DontRetry Limiter = LimiterFunc(func() LimiterFlow {
	return DecideFunc(giveUp)
})

func giveUp(_ *request.Outcome, _ *request.Request) Decision {
	return GiveUp
}

// MaxErrors constructs a limiter which retries up to n retryable
// transport errors per logical request, as classified by
// DefaultClassifier.
//
// Each retryable transport error consumes one unit of the budget n. Once
// the budget is spent, or on a transport error which is not retryable
// (for example a write failure, after which the server may already be
// processing the request), the limiter gives up. HTTP response outcomes
// are outside what the limiter counts, so it passes on them.
//
// MaxErrors returns a *ConfigError if n is negative.
func MaxErrors(n int) (Limiter, error) {
	return MaxErrorsIf(n, DefaultClassifier)
}

// MaxErrorsIf is like MaxErrors but uses the classifier c to decide
// which transport errors are retryable.
func MaxErrorsIf(n int, c Classifier) (Limiter, error) {
	if err := nonNegative("MaxErrors.n", int64(n)); err != nil {
		return nil, err
	}
	if c == nil {
		panic("retryflow/retry: nil classifier")
	}
	return &maxErrors{n: n, retryable: c}, nil
}

type maxErrors struct {
	n         int
	retryable Classifier
}

func (l *maxErrors) Begin() LimiterFlow {
	return &errorBudget{remaining: l.n, retryable: l.retryable}
}

type errorBudget struct {
	remaining int
	retryable Classifier
}

func (f *errorBudget) Decide(o *request.Outcome, _ *request.Request) Decision {
	if o.IsResponse() {
		return Pass
	}
	if f.remaining <= 0 || !f.retryable(o) {
		return GiveUp
	}
	f.remaining--
	return Retry
}

// MaxErrorResponses constructs a limiter which retries up to n HTTP
// responses per logical request whose status code is one of
// statusCodes.
//
// Only requests with an idempotent method (GET, HEAD, PUT, DELETE,
// OPTIONS, TRACE) are retried. A listed status code received for a
// non-idempotent method makes the limiter give up without consuming
// budget, since repeating the request could repeat its side effects.
// Responses with other status codes, and transport errors, are outside
// what the limiter counts, so it passes on them.
//
// MaxErrorResponses returns a *ConfigError if n is negative or a status
// code is outside the range 100-599.
func MaxErrorResponses(n int, statusCodes ...int) (Limiter, error) {
	if err := nonNegative("MaxErrorResponses.n", int64(n)); err != nil {
		return nil, err
	}
	codes := make(map[int]bool, len(statusCodes))
	for _, s := range statusCodes {
		if s < 100 || s > 599 {
			return nil, &ConfigError{Field: "MaxErrorResponses.statusCodes", Value: s, Reason: "not an HTTP status code"}
		}
		codes[s] = true
	}
	return &maxErrorResponses{n: n, codes: codes}, nil
}

type maxErrorResponses struct {
	n     int
	codes map[int]bool
}

func (l *maxErrorResponses) Begin() LimiterFlow {
	return &responseBudget{remaining: l.n, codes: l.codes}
}

type responseBudget struct {
	remaining int
	codes     map[int]bool
}

func (f *responseBudget) Decide(o *request.Outcome, r *request.Request) Decision {
	if o.IsError() || !f.codes[o.StatusCode] {
		return Pass
	}
	if r == nil || !r.Idempotent() || f.remaining <= 0 {
		return GiveUp
	}
	f.remaining--
	return Retry
}

// And composes two limiters into a limiter which retries only while both
// would retry, and gives up as soon as either gives up.
//
// Both a and b see every outcome, a first, so their budgets stay in
// step, and any request mutation made by a is visible to b. A limiter
// which passes defers to the other: the composite retries if one
// constituent retries and the other passes, and passes if both pass.
func And(a, b Limiter) Limiter {
	return newComposite(and, a, b)
}

// Or composes two limiters into a limiter which retries while either
// would retry, and gives up only once both give up.
//
// As with And, both a and b see every outcome, a first. The composite
// passes only if both constituents pass.
func Or(a, b Limiter) Limiter {
	return newComposite(or, a, b)
}

type combiner func(x, y Decision) Decision

func and(x, y Decision) Decision {
	if x == GiveUp || y == GiveUp {
		return GiveUp
	}
	if x == Retry || y == Retry {
		return Retry
	}
	return Pass
}

func or(x, y Decision) Decision {
	if x == Retry || y == Retry {
		return Retry
	}
	if x == GiveUp || y == GiveUp {
		return GiveUp
	}
	return Pass
}

type composite struct {
	combine     combiner
	left, right Limiter
}

func newComposite(c combiner, a, b Limiter) Limiter {
	if a == nil || b == nil {
		panic("retryflow/retry: nil limiter")
	}
	return &composite{combine: c, left: a, right: b}
}

func (l *composite) Begin() LimiterFlow {
	return &compositeFlow{
		combine: l.combine,
		left:    l.left.Begin(),
		right:   l.right.Begin(),
	}
}

type compositeFlow struct {
	combine     combiner
	left, right LimiterFlow
}

func (f *compositeFlow) Decide(o *request.Outcome, r *request.Request) Decision {
	x := f.left.Decide(o, r)
	y := f.right.Decide(o, r)
	return f.combine(x, y)
}
