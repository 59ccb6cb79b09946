// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryflow

import (
	"fmt"

	"github.com/gogama/retryflow/request"
	"github.com/gogama/retryflow/retry"
)

// An Orchestrator couples one retry limiter with one retry schedule. It
// is configuration: immutable after construction and safe for
// concurrent use by multiple goroutines. Call Begin once per logical
// request to get a Flow with fresh retry state.
type Orchestrator struct {
	limiter  retry.Limiter
	schedule retry.Schedule
}

// DefaultOrchestrator is the orchestrator for retry.DefaultPolicy.
var DefaultOrchestrator = retry.Must(FromPolicy(retry.DefaultPolicy))

// New constructs an Orchestrator from a limiter and a schedule.
//
// New returns a *retry.ConfigError if either is nil.
func New(l retry.Limiter, s retry.Schedule) (*Orchestrator, error) {
	if l == nil {
		return nil, &retry.ConfigError{Field: "Orchestrator.limiter", Value: nil, Reason: "must not be nil"}
	}
	if s == nil {
		return nil, &retry.ConfigError{Field: "Orchestrator.schedule", Value: nil, Reason: "must not be nil"}
	}
	return &Orchestrator{limiter: l, schedule: s}, nil
}

// FromPolicy constructs an Orchestrator from a retry policy.
func FromPolicy(p retry.Policy) (*Orchestrator, error) {
	return New(p.Limiter, p.Schedule)
}

// Resolve constructs an Orchestrator from any of the accepted shorthand
// retry configurations:
//
//   - an int n, meaning retry.Times(n);
//   - a retry.Limiter, paired with retry.DefaultSchedule;
//   - a retry.Policy; or
//   - an *Orchestrator, which is returned unchanged.
//
// Resolve returns a *retry.ConfigError for a negative count, a nil
// value, or a value of any other type.
func Resolve(v interface{}) (*Orchestrator, error) {
	switch x := v.(type) {
	case *Orchestrator:
		if x == nil {
			break
		}
		return x, nil
	case retry.Policy:
		return FromPolicy(x)
	case retry.Limiter:
		return New(x, retry.DefaultSchedule)
	case int:
		p, err := retry.Times(x)
		if err != nil {
			return nil, err
		}
		return FromPolicy(p)
	}
	return nil, &retry.ConfigError{Field: "retry", Value: fmt.Sprintf("%T", v), Reason: "unsupported retry configuration type"}
}

// Limiter returns the orchestrator's retry limiter.
func (o *Orchestrator) Limiter() retry.Limiter {
	return o.limiter
}

// Schedule returns the orchestrator's retry schedule.
func (o *Orchestrator) Schedule() retry.Schedule {
	return o.schedule
}

// Begin starts a retry flow for the logical request r. The flow begins
// in state AwaitSend.
//
// The flow borrows r for its whole life: retry limiters may mutate r in
// place between attempts, and Next always hands back r itself.
func (o *Orchestrator) Begin(r *request.Request) *Flow {
	if r == nil {
		panic("retryflow: nil request")
	}
	return &Flow{
		req:      r,
		limiter:  o.limiter.Begin(),
		schedule: o.schedule.Begin(),
	}
}
