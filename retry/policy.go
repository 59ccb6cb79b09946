// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"time"
)

// A Policy pairs a Limiter, which decides whether to retry, with a
// Schedule, which decides how long to wait before each retry.
//
// Policies are configuration and are safe for concurrent use by
// multiple goroutines as long as their Limiter and Schedule are. Use
// one of the built-in policies, DefaultPolicy or Never, build one from
// a retry count with Times, or assemble one with NewPolicy.
type Policy struct {
	Limiter  Limiter
	Schedule Schedule
}

// DefaultTimes is the number of retries allowed by DefaultPolicy.
const DefaultTimes = 3

// DefaultFactor is the exponential backoff factor used by DefaultPolicy
// and by policies constructed with Times.
const DefaultFactor = 200 * time.Millisecond

// DefaultSchedule is the schedule used by policies constructed with
// Times: exponential backoff with factor DefaultFactor, so the delays
// are 0, 200ms, 400ms, 800ms, and so on.
var DefaultSchedule = Must(ExponentialBackoff(DefaultFactor))

// DefaultPolicy is a general-purpose retry policy suitable for common
// use cases. It retries up to DefaultTimes retryable transport errors
// (i.e. up to 4 total attempts) following DefaultSchedule.
var DefaultPolicy = Must(Times(DefaultTimes))

// Never is a policy that never retries. It is useful if you want to use
// the other features of retryflow.Client but do not want retries.
var Never = Policy{Limiter: DontRetry, Schedule: Must(Constant(0))}

// NewPolicy composes a Limiter and a Schedule into a retry Policy.
func NewPolicy(l Limiter, s Schedule) Policy {
	if l == nil {
		panic("retryflow/retry: nil limiter")
	}
	if s == nil {
		panic("retryflow/retry: nil schedule")
	}
	return Policy{Limiter: l, Schedule: s}
}

// Times constructs a policy from a plain retry count: MaxErrors(n)
// paired with DefaultSchedule. A count of zero yields a policy which
// never retries.
//
// Times returns a *ConfigError if n is negative.
func Times(n int) (Policy, error) {
	l, err := MaxErrors(n)
	if err != nil {
		return Policy{}, err
	}
	return Policy{Limiter: l, Schedule: DefaultSchedule}, nil
}
