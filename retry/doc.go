// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package retry provides flexible policies for deciding whether a failed
// HTTP request attempt should be retried, and how long to wait before
// retrying.
//
// The two halves of a retry policy are independent. A Limiter decides
// whether to retry after each attempt outcome, and a Schedule decides
// how long to wait before each retry. Neither holds per-request state:
// each logical request calls Begin to get a fresh LimiterFlow and
// ScheduleFlow, so one Limiter or Schedule can serve many concurrent
// requests.
//
// Both halves have constructors for common use cases, so that a useful
// policy can be quickly assembled:
//
//	errs := retry.Must(retry.MaxErrors(3))
//	busy := retry.Must(retry.MaxErrorResponses(5, 429, 503))
//	limiter := retry.Or(errs, busy)
//	schedule := retry.Must(retry.RetryAfter(
//		retry.Must(retry.ExponentialBackoff(200*time.Millisecond)),
//		retry.RetryAfterFloor))
//	policy := retry.NewPolicy(limiter, schedule)
//
// Invalid parameters, such as a negative retry count, are reported as a
// *ConfigError when the limiter or schedule is constructed, never while
// a request is being retried.
//
// If the built-in functionality is insufficient, fully custom limiters
// and schedules can be created via custom implementations of Limiter,
// LimiterFlow, Schedule, or ScheduleFlow, or with the function adapters
// LimiterFunc, DecideFunc, ScheduleFunc, and DelayFunc.
package retry
