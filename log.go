// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryflow

import (
	"github.com/rs/zerolog"

	"github.com/gogama/retryflow/request"
)

// InstallLogger installs handlers into g which write a structured log
// of each execution to l.
//
// Attempts are logged at debug level, except that attempts ending in a
// transport error are logged at warn level. Scheduled retry waits are
// logged at info level. The end of each execution is logged at info
// level, or error level if the execution ended in error.
//
// Every entry carries the execution ID in field "flow_id" and the
// zero-based attempt number in field "attempt".
func InstallLogger(g *HandlerGroup, l zerolog.Logger) {
	if g == nil {
		panic("retryflow: nil handler group")
	}

	g.PushBack(BeforeAttempt, HandlerFunc(func(_ Event, e *request.Execution) {
		withExecution(l.Debug(), e).
			Str("method", e.Request.Method).
			Str("target", e.Request.Target).
			Msg("attempt starting")
	}))
	g.PushBack(AfterAttempt, HandlerFunc(func(_ Event, e *request.Execution) {
		o := e.Outcome
		if o.IsError() {
			withExecution(l.Warn(), e).
				Err(o.Err).
				Stringer("error_kind", o.Kind).
				Bool("timeout", e.Timeout()).
				Msg("attempt failed")
			return
		}
		withExecution(l.Debug(), e).
			Int("status", o.StatusCode).
			Msg("attempt completed")
	}))
	g.PushBack(BeforeWait, HandlerFunc(func(_ Event, e *request.Execution) {
		withExecution(l.Info(), e).
			Dur("wait", e.Wait).
			Msg("retry scheduled")
	}))
	g.PushBack(AfterExecutionEnd, HandlerFunc(func(_ Event, e *request.Execution) {
		evt := l.Info()
		if e.Err != nil {
			evt = l.Error().Err(e.Err)
		}
		if status := e.StatusCode(); status != 0 {
			evt = evt.Int("status", status)
		}
		withExecution(evt, e).
			Int("attempts", e.Attempt+1).
			Int("attempt_timeouts", e.AttemptTimeouts).
			Dur("duration", e.End.Sub(e.Start)).
			Msg("execution ended")
	}))
}

func withExecution(evt *zerolog.Event, e *request.Execution) *zerolog.Event {
	return evt.Str("flow_id", e.ID).Int("attempt", e.Attempt)
}
