// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"time"

	"github.com/gogama/retryflow/request"
)

// A Schedule specifies how long to wait before each retry of a logical
// request.
//
// A Schedule is never consulted about whether to retry, only about when.
// Like Limiter, it is configuration and must be safe for concurrent use
// by multiple goroutines; per-request state, such as an attempt counter,
// lives in the ScheduleFlow returned by Begin.
//
// This package provides the schedules Constant and ExponentialBackoff,
// and the decorators Capped, Jitter, and RetryAfter.
type Schedule interface {
	Begin() ScheduleFlow
}

// A ScheduleFlow produces the unbounded sequence of non-negative delays
// for one logical request. NextDelay is called once per authorized
// retry.
type ScheduleFlow interface {
	NextDelay() time.Duration
}

// An Observer is a ScheduleFlow which wants to see the outcome which
// caused each retry. A retry flow calls Observe with the outcome just
// before the corresponding call to NextDelay.
type Observer interface {
	Observe(o *request.Outcome)
}

// The ScheduleFunc type is an adapter to allow the use of ordinary
// functions as schedules.
type ScheduleFunc func() ScheduleFlow

// Begin calls f().
func (f ScheduleFunc) Begin() ScheduleFlow {
	return f()
}

// The DelayFunc type is an adapter to allow the use of ordinary
// functions as schedule flows.
type DelayFunc func() time.Duration

// NextDelay calls f().
func (f DelayFunc) NextDelay() time.Duration {
	return f()
}

// Constant constructs a schedule which always returns d.
//
// Constant returns a *ConfigError if d is negative.
func Constant(d time.Duration) (Schedule, error) {
	if err := nonNegative("Constant.d", int64(d)); err != nil {
		return nil, err
	}
	return constant(d), nil
}

type constant time.Duration

func (s constant) Begin() ScheduleFlow {
	return s
}

func (s constant) NextDelay() time.Duration {
	return time.Duration(s)
}

// ExponentialBackoff constructs a schedule whose first delay is zero,
// for an immediate retry, and whose nth delay for n >= 2 is
// factor * 2**(n-2). So with a factor of 200ms, the delays are 0, 200ms,
// 400ms, 800ms, 1.6s, and so on. Delays which would overflow saturate at
// the maximum time.Duration; use Capped to set a practical ceiling.
//
// ExponentialBackoff returns a *ConfigError if factor is negative.
func ExponentialBackoff(factor time.Duration) (Schedule, error) {
	if err := nonNegative("ExponentialBackoff.factor", int64(factor)); err != nil {
		return nil, err
	}
	return exponential(factor), nil
}

type exponential time.Duration

func (s exponential) Begin() ScheduleFlow {
	return &exponentialFlow{factor: time.Duration(s)}
}

type exponentialFlow struct {
	factor time.Duration
	n      int
}

func (f *exponentialFlow) NextDelay() time.Duration {
	f.n++
	if f.n == 1 || f.factor == 0 {
		return 0
	}
	shift := f.n - 2
	if shift > 62 || f.factor > maxDuration>>uint(shift) {
		return maxDuration
	}
	return f.factor << uint(shift)
}

// Capped decorates s so that no delay exceeds max.
//
// Capped returns a *ConfigError if max is negative.
func Capped(s Schedule, max time.Duration) (Schedule, error) {
	if s == nil {
		panic("retryflow/retry: nil schedule")
	}
	if err := nonNegative("Capped.max", int64(max)); err != nil {
		return nil, err
	}
	return ScheduleFunc(func() ScheduleFlow {
		return &cappedFlow{inner: s.Begin(), max: max}
	}), nil
}

type cappedFlow struct {
	inner ScheduleFlow
	max   time.Duration
}

func (f *cappedFlow) NextDelay() time.Duration {
	d := f.inner.NextDelay()
	if d > f.max {
		return f.max
	}
	return d
}

func (f *cappedFlow) Observe(o *request.Outcome) {
	observe(f.inner, o)
}

// observe forwards o to flow if it is an Observer.
func observe(flow ScheduleFlow, o *request.Outcome) {
	if obs, ok := flow.(Observer); ok {
		obs.Observe(o)
	}
}

const maxDuration = time.Duration(1<<63 - 1)
