// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryflow

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogama/retryflow/request"
)

// Metrics is a set of Prometheus collectors which record Client
// executions. Construct it with NewMetrics and attach it to a handler
// group with Install.
type Metrics struct {
	// attempts counts attempts by outcome: an error kind, such as
	// "Connect", or an HTTP status code.
	attempts *prometheus.CounterVec
	// retries counts authorized retries.
	retries prometheus.Counter
	// waits observes retry wait durations in seconds.
	waits prometheus.Histogram
	// executions counts finished executions by result.
	executions *prometheus.CounterVec
}

// NewMetrics creates the retryflow collectors under the given metric
// namespace and registers them with reg. An empty namespace yields
// unprefixed metric names.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "retryflow",
				Name:      "attempts_total",
				Help:      "Total request attempts by outcome",
			},
			[]string{"outcome"},
		),
		retries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "retryflow",
				Name:      "retries_total",
				Help:      "Total retries authorized by the retry limiter",
			},
		),
		waits: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "retryflow",
				Name:      "wait_seconds",
				Help:      "Delay before each retry in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "retryflow",
				Name:      "executions_total",
				Help:      "Total executions by result",
			},
			[]string{"result"},
		),
	}
	for _, c := range []prometheus.Collector{m.attempts, m.retries, m.waits, m.executions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Install installs handlers into g which update m.
func (m *Metrics) Install(g *HandlerGroup) {
	if g == nil {
		panic("retryflow: nil handler group")
	}

	g.PushBack(AfterAttempt, HandlerFunc(func(_ Event, e *request.Execution) {
		m.attempts.WithLabelValues(outcomeLabel(e.Outcome)).Inc()
	}))
	g.PushBack(BeforeWait, HandlerFunc(func(_ Event, e *request.Execution) {
		m.retries.Inc()
		m.waits.Observe(e.Wait.Seconds())
	}))
	g.PushBack(AfterExecutionEnd, HandlerFunc(func(_ Event, e *request.Execution) {
		m.executions.WithLabelValues(resultLabel(e)).Inc()
	}))
}

func outcomeLabel(o *request.Outcome) string {
	if o.IsError() {
		return o.Kind.String()
	}
	return strconv.Itoa(o.StatusCode)
}

func resultLabel(e *request.Execution) string {
	switch {
	case e.Err != nil:
		return "error"
	case e.Attempt > 0:
		return "retried"
	default:
		return "first_attempt"
	}
}
