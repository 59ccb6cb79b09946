// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"time"

	"github.com/gogama/retryflow"
	"github.com/gogama/retryflow/retry"
	"github.com/gogama/retryflow/timeout"
)

// Policy resolves the configured limiter and schedule into a retry
// policy.
func (c *Config) Policy() (retry.Policy, error) {
	l, err := c.limiter()
	if err != nil {
		return retry.Policy{}, err
	}

	s, err := c.Schedule.Build()
	if err != nil {
		return retry.Policy{}, err
	}

	return retry.NewPolicy(l, s), nil
}

// Orchestrator resolves the configured retry policy into an
// orchestrator.
func (c *Config) Orchestrator() (*retryflow.Orchestrator, error) {
	p, err := c.Policy()
	if err != nil {
		return nil, err
	}

	return retryflow.FromPolicy(p)
}

// TimeoutPolicy resolves the configured attempt timeouts.
func (c *Config) TimeoutPolicy() timeout.Policy {
	if len(c.Timeout.After) == 0 {
		return timeout.Fixed(c.Timeout.Usual)
	}

	return timeout.Adaptive(c.Timeout.Usual, c.Timeout.After...)
}

func (c *Config) limiter() (retry.Limiter, error) {
	if c.Limiter != nil {
		return c.Limiter.Build()
	}

	n := retry.DefaultTimes
	if c.Retries != nil {
		n = *c.Retries
	}

	return retry.MaxErrors(n)
}

// Build constructs the limiter tree rooted at l.
func (l *LimiterConfig) Build() (retry.Limiter, error) {
	var lim retry.Limiter
	var err error
	switch l.Type {
	case LimiterDontRetry:
		lim = retry.DontRetry
	case LimiterMaxErrors:
		lim, err = retry.MaxErrors(l.Max)
	case LimiterMaxErrorResponses:
		lim, err = retry.MaxErrorResponses(l.Max, l.StatusCodes...)
	case LimiterAnd, LimiterOr:
		if l.Left == nil || l.Right == nil {
			return nil, &retry.ConfigError{Field: "limiter", Value: l.Type, Reason: "requires left and right"}
		}
		left, err := l.Left.Build()
		if err != nil {
			return nil, err
		}
		right, err := l.Right.Build()
		if err != nil {
			return nil, err
		}
		if l.Type == LimiterAnd {
			lim = retry.And(left, right)
		} else {
			lim = retry.Or(left, right)
		}
	default:
		return nil, &retry.ConfigError{Field: "limiter.type", Value: l.Type, Reason: "unknown limiter type"}
	}
	if err != nil {
		return nil, err
	}

	if l.AttemptHeader != "" {
		if lim, err = retry.AttemptHeader(lim, l.AttemptHeader); err != nil {
			return nil, err
		}
	}
	if l.IdempotencyHeader != "" {
		if lim, err = retry.IdempotencyKey(lim, l.IdempotencyHeader); err != nil {
			return nil, err
		}
	}

	return lim, nil
}

// Build constructs the schedule described by s. Decorators apply in the
// order cap, jitter, Retry-After, so a Retry-After value is never
// jittered or capped except by MaxRetryAfter.
func (s *ScheduleConfig) Build() (retry.Schedule, error) {
	var sched retry.Schedule
	var err error
	switch s.Type {
	case ScheduleConstant:
		sched, err = retry.Constant(s.Delay)
	case ScheduleExponential:
		sched, err = retry.ExponentialBackoff(s.Factor)
	default:
		return nil, &retry.ConfigError{Field: "schedule.type", Value: s.Type, Reason: "unknown schedule type"}
	}
	if err != nil {
		return nil, err
	}

	if s.Max > 0 {
		if sched, err = retry.Capped(sched, s.Max); err != nil {
			return nil, err
		}
	}

	if s.Jitter {
		var seed interface{} = time.Now()
		if s.JitterSeed != nil {
			seed = *s.JitterSeed
		}
		sched = retry.Jitter(sched, seed)
	}

	var opts []retry.RetryAfterOption
	if s.MaxRetryAfter > 0 {
		opts = append(opts, retry.WithMaxRetryAfter(s.MaxRetryAfter))
	}
	switch s.RetryAfter {
	case "", RetryAfterIgnore:
	case RetryAfterOverride:
		sched, err = retry.RetryAfter(sched, retry.RetryAfterOverride, opts...)
	case RetryAfterFloor:
		sched, err = retry.RetryAfter(sched, retry.RetryAfterFloor, opts...)
	default:
		return nil, &retry.ConfigError{Field: "schedule.retry_after", Value: s.RetryAfter, Reason: "unknown Retry-After mode"}
	}
	if err != nil {
		return nil, err
	}

	return sched, nil
}
