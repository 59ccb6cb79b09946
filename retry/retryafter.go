// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"fmt"
	"time"

	"github.com/coder/quartz"

	"github.com/gogama/retryflow/request"
)

// A RetryAfterMode selects how a Retry-After response header combines
// with the delay computed by the underlying schedule.
type RetryAfterMode int

const (
	// RetryAfterOverride uses the Retry-After value instead of the
	// computed delay, even if it is shorter.
	RetryAfterOverride RetryAfterMode = iota + 1
	// RetryAfterFloor uses the larger of the Retry-After value and the
	// computed delay, so the server's request is honoured without ever
	// shortening the backoff.
	RetryAfterFloor
)

func (m RetryAfterMode) String() string {
	switch m {
	case RetryAfterOverride:
		return "override"
	case RetryAfterFloor:
		return "floor"
	default:
		return fmt.Sprintf("RetryAfterMode(%d)", int(m))
	}
}

// A RetryAfterOption configures the schedule returned by RetryAfter.
type RetryAfterOption func(*retryAfter)

// WithClock sets the clock used to convert HTTP-date Retry-After values
// into delays. The default is the real clock.
func WithClock(c quartz.Clock) RetryAfterOption {
	return func(s *retryAfter) {
		s.clock = c
	}
}

// WithMaxRetryAfter limits the Retry-After value honoured to max. Larger
// values are clamped to max. The default is no limit.
func WithMaxRetryAfter(max time.Duration) RetryAfterOption {
	return func(s *retryAfter) {
		s.max = max
	}
}

// RetryAfter decorates s so that a Retry-After header on the HTTP
// response which caused a retry adjusts the delay before that retry,
// according to mode. Outcomes without a valid Retry-After header leave
// the computed delay unchanged.
//
// The underlying schedule is advanced on every retry whether or not a
// Retry-After header is present, so its own progression is unaffected.
func RetryAfter(s Schedule, mode RetryAfterMode, opts ...RetryAfterOption) (Schedule, error) {
	if s == nil {
		panic("retryflow/retry: nil schedule")
	}
	if mode != RetryAfterOverride && mode != RetryAfterFloor {
		return nil, &ConfigError{Field: "RetryAfter.mode", Value: mode, Reason: "unknown mode"}
	}
	ra := &retryAfter{inner: s, mode: mode, clock: quartz.NewReal(), max: maxDuration}
	for _, opt := range opts {
		opt(ra)
	}
	if ra.clock == nil {
		panic("retryflow/retry: nil clock")
	}
	if err := nonNegative("RetryAfter.max", int64(ra.max)); err != nil {
		return nil, err
	}
	return ra, nil
}

type retryAfter struct {
	inner Schedule
	mode  RetryAfterMode
	clock quartz.Clock
	max   time.Duration
}

func (s *retryAfter) Begin() ScheduleFlow {
	return &retryAfterFlow{inner: s.inner.Begin(), parent: s}
}

type retryAfterFlow struct {
	inner  ScheduleFlow
	parent *retryAfter
	advice time.Duration
	ok     bool
}

func (f *retryAfterFlow) Observe(o *request.Outcome) {
	observe(f.inner, o)
	f.ok = false
	if o != nil && o.IsResponse() {
		f.advice, f.ok = request.RetryAfter(o.Header, f.parent.clock.Now())
		if f.advice > f.parent.max {
			f.advice = f.parent.max
		}
	}
}

func (f *retryAfterFlow) NextDelay() time.Duration {
	d := f.inner.NextDelay()
	if !f.ok {
		return d
	}
	f.ok = false
	if f.parent.mode == RetryAfterOverride || f.advice > d {
		return f.advice
	}
	return d
}
