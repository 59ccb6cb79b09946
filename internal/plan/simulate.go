// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package plan dry-runs retry configurations: it drives a retry flow
// against a script of attempt outcomes without sending anything or
// sleeping, and reports what the flow decided.
package plan

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/gogama/retryflow"
	"github.com/gogama/retryflow/request"
	"github.com/gogama/retryflow/retry"
)

// MaxAttempts bounds a simulation, in case the configured limiter never
// gives up on the scripted outcomes.
const MaxAttempts = 1000

// Attempt reports one simulated attempt.
type Attempt struct {
	Attempt  int           `yaml:"attempt" json:"attempt"`
	Outcome  string        `yaml:"outcome" json:"outcome"`
	Decision string        `yaml:"decision" json:"decision"`
	Delay    time.Duration `yaml:"delay,omitempty" json:"delay,omitempty"`
	Elapsed  time.Duration `yaml:"elapsed" json:"elapsed"`
	Headers  []string      `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// Report is the result of a simulation.
type Report struct {
	Method     string        `yaml:"method" json:"method"`
	Attempts   []Attempt     `yaml:"attempts" json:"attempts"`
	Final      string        `yaml:"final" json:"final"`
	TotalDelay time.Duration `yaml:"total_delay" json:"total_delay"`
}

// Simulate drives one flow of o against script. Attempt i receives
// script[i], and the last scripted outcome repeats once the script runs
// out. Delays accumulate in the report's elapsed times rather than being
// waited out.
func Simulate(o *retryflow.Orchestrator, method string, script []*request.Outcome, logger zerolog.Logger) (*Report, error) {
	if len(script) == 0 {
		return nil, fmt.Errorf("empty outcome script")
	}

	r, err := request.New(method, "http://retryplan.invalid/", nil)
	if err != nil {
		return nil, err
	}

	report := &Report{Method: r.Method}
	flow := o.Begin(r)
	var elapsed time.Duration
	for i := 0; ; i++ {
		if i >= MaxAttempts {
			return report, fmt.Errorf("flow still retrying after %d attempts", MaxAttempts)
		}

		next, err := flow.Next()
		if err != nil {
			return report, err
		}
		headers := headerLines(next)

		outcome := script[min(i, len(script)-1)]
		step, err := flow.Report(outcome)
		if err != nil {
			return report, err
		}

		a := Attempt{
			Attempt:  i,
			Outcome:  outcome.String(),
			Decision: step.Decision.String(),
			Elapsed:  elapsed,
			Headers:  headers,
		}
		logger.Debug().
			Int("attempt", i).
			Str("outcome", a.Outcome).
			Stringer("decision", step.Decision).
			Dur("delay", step.Delay).
			Msg("attempt simulated")

		if step.Done {
			report.Attempts = append(report.Attempts, a)
			report.Final = step.Outcome.String()
			report.TotalDelay = elapsed
			return report, nil
		}

		a.Delay = step.Delay
		elapsed += step.Delay
		report.Attempts = append(report.Attempts, a)
	}
}

// Delays returns the first n delays of a fresh flow of s.
func Delays(s retry.Schedule, n int) []time.Duration {
	f := s.Begin()
	d := make([]time.Duration, n)
	for i := range d {
		d[i] = f.NextDelay()
	}
	return d
}

func headerLines(r *request.Request) []string {
	var lines []string
	for name, values := range r.Header {
		for _, v := range values {
			lines = append(lines, name+": "+v)
		}
	}
	sort.Strings(lines)
	return lines
}
