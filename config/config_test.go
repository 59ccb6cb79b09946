// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gogama/retryflow/request"
	"github.com/gogama/retryflow/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Nil(t, cfg.Retries)
	assert.Nil(t, cfg.Limiter)
	assert.Equal(t, ScheduleExponential, cfg.Schedule.Type)
	assert.Equal(t, retry.DefaultFactor, cfg.Schedule.Factor)
	assert.Equal(t, RetryAfterIgnore, cfg.Schedule.RetryAfter)
	assert.Equal(t, 5*time.Second, cfg.Timeout.Usual)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, retry.DefaultTimes, retries(t, p, connectErr))
	assert.Equal(t, []time.Duration{0, 200 * time.Millisecond, 400 * time.Millisecond}, delays(p.Schedule, 3))
	assert.Equal(t, 5*time.Second, cfg.TimeoutPolicy().Timeout(&request.Execution{}))
}

func TestParse(t *testing.T) {
	t.Run("retries shorthand", func(t *testing.T) {
		cfg, err := Parse([]byte("retries: 1\n"))
		require.NoError(t, err)
		p, err := cfg.Policy()
		require.NoError(t, err)
		assert.Equal(t, 1, retries(t, p, connectErr))
	})
	t.Run("zero retries", func(t *testing.T) {
		cfg, err := Parse([]byte("retries: 0\n"))
		require.NoError(t, err)
		p, err := cfg.Policy()
		require.NoError(t, err)
		assert.Equal(t, 0, retries(t, p, connectErr))
	})
	t.Run("limiter tree", func(t *testing.T) {
		doc := `
retries: 10
limiter:
  type: and
  attempt_header: X-Retry-Attempt
  left:
    type: max_errors
    max: 3
  right:
    type: max_error_responses
    max: 5
    status_codes: [502, 503]
schedule:
  type: constant
  delay: 1s
timeout:
  usual: 2s
  after: [4s, 8s]
log:
  level: debug
  pretty: true
`
		cfg, err := Parse([]byte(doc))
		require.NoError(t, err)
		require.NotNil(t, cfg.Limiter)
		assert.Equal(t, []int{502, 503}, cfg.Limiter.Right.StatusCodes)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.True(t, cfg.Log.Pretty)

		p, err := cfg.Policy()
		require.NoError(t, err)
		assert.Equal(t, 3, retries(t, p, connectErr), "limiter overrides retries")
		assert.Equal(t, 5, retries(t, p, request.HTTPResponse(503, nil)))
		assert.Equal(t, []time.Duration{time.Second, time.Second}, delays(p.Schedule, 2))

		r, err := request.New("GET", "http://example.com", nil)
		require.NoError(t, err)
		f := p.Limiter.Begin()
		require.Equal(t, retry.Retry, f.Decide(connectErr, r))
		assert.Equal(t, "1", r.Header.Get("X-Retry-Attempt"))

		tp := cfg.TimeoutPolicy()
		assert.Equal(t, 2*time.Second, tp.Timeout(&request.Execution{}))
		timedOut := &request.Execution{Err: timeoutErr{}, AttemptTimeouts: 1}
		assert.Equal(t, 4*time.Second, tp.Timeout(timedOut))
	})
	t.Run("schedule decorators", func(t *testing.T) {
		doc := `
schedule:
  type: exponential
  factor: 1s
  max: 3s
  jitter: true
  jitter_seed: 42
  retry_after: floor
  max_retry_after: 1m
`
		cfg, err := Parse([]byte(doc))
		require.NoError(t, err)
		p, err := cfg.Policy()
		require.NoError(t, err)
		first := delays(p.Schedule, 6)
		for _, d := range first {
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.Less(t, d, 3*time.Second)
		}

		cfg2, err := Parse([]byte(doc))
		require.NoError(t, err)
		p2, err := cfg2.Policy()
		require.NoError(t, err)
		assert.Equal(t, first, delays(p2.Schedule, 6), "seeded jitter is reproducible")
	})
	t.Run("retry after override", func(t *testing.T) {
		cfg, err := Parse([]byte("schedule:\n  retry_after: override\n"))
		require.NoError(t, err)
		p, err := cfg.Policy()
		require.NoError(t, err)
		f := p.Schedule.Begin()
		obs, ok := f.(retry.Observer)
		require.True(t, ok)
		obs.Observe(request.HTTPResponse(503, map[string][]string{"Retry-After": {"7"}}))
		assert.Equal(t, 7*time.Second, f.NextDelay())
	})
	t.Run("orchestrator", func(t *testing.T) {
		cfg, err := Parse([]byte("retries: 2\n"))
		require.NoError(t, err)
		o, err := cfg.Orchestrator()
		require.NoError(t, err)
		require.NotNil(t, o)
		assert.NotNil(t, o.Limiter())
		assert.NotNil(t, o.Schedule())
	})
}

func TestParseInvalid(t *testing.T) {
	testCases := []struct {
		name      string
		doc       string
		field     string
		validator bool
	}{
		{name: "negative retries", doc: "retries: -1", validator: true},
		{name: "unknown limiter", doc: "limiter:\n  type: sometimes", validator: true},
		{name: "missing limiter type", doc: "limiter:\n  max: 1", validator: true},
		{name: "negative max", doc: "limiter:\n  type: max_errors\n  max: -2", validator: true},
		{name: "bad status code", doc: "limiter:\n  type: max_error_responses\n  status_codes: [99]", validator: true},
		{name: "unknown schedule", doc: "schedule:\n  type: linear", validator: true},
		{name: "unknown retry after", doc: "schedule:\n  retry_after: always", validator: true},
		{name: "zero timeout", doc: "timeout:\n  usual: 0s", validator: true},
		{name: "negative after", doc: "timeout:\n  after: [-1s]", validator: true},
		{name: "bad log level", doc: "log:\n  level: chatty", validator: true},
		{name: "and without right", doc: "limiter:\n  type: and\n  left:\n    type: dont_retry", field: "limiter.right"},
		{name: "nested or without left", doc: "limiter:\n  type: and\n  left:\n    type: or\n    right:\n      type: dont_retry\n  right:\n    type: dont_retry", field: "limiter.left.left"},
		{name: "no status codes", doc: "limiter:\n  type: max_error_responses\n  max: 2", field: "limiter.status_codes"},
		{name: "branches on leaf", doc: "limiter:\n  type: max_errors\n  left:\n    type: dont_retry", field: "limiter"},
		{name: "bad attempt header", doc: "limiter:\n  type: max_errors\n  attempt_header: \"X Bad\"", field: "AttemptHeader.name"},
		{name: "bad idempotency header", doc: "limiter:\n  type: max_errors\n  idempotency_header: \"a:b\"", field: "IdempotencyKey.name"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			cfg, err := Parse([]byte(testCase.doc))
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
			if testCase.validator {
				var ve validator.ValidationErrors
				assert.ErrorAs(t, err, &ve)
				return
			}
			var ce *retry.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, testCase.field, ce.Field)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte("retries: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestLoad(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "retry.yaml")
		require.NoError(t, os.WriteFile(path, []byte("retries: 7\nschedule:\n  type: constant\n  delay: 250ms\n"), 0o600))
		cfg, err := Load(path)
		require.NoError(t, err)
		require.NotNil(t, cfg.Retries)
		assert.Equal(t, 7, *cfg.Retries)
		assert.Equal(t, 250*time.Millisecond, cfg.Schedule.Delay)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestFromMap(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"limiter": map[string]any{
			"type": "or",
			"left": map[string]any{"type": "max_errors", "max": 1},
			"right": map[string]any{
				"type":         "max_error_responses",
				"max":          2,
				"status_codes": []int{429},
			},
		},
		"schedule.type":  "constant",
		"schedule.delay": "10ms",
	})
	require.NoError(t, err)
	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, 1, retries(t, p, connectErr))
	assert.Equal(t, 2, retries(t, p, request.HTTPResponse(429, nil)))
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, delays(p.Schedule, 1))
}

// retries counts the retries p authorizes when every attempt ends in o.
func retries(t *testing.T, p retry.Policy, o *request.Outcome) int {
	r, err := request.New("GET", "http://example.com", nil)
	require.NoError(t, err)
	f := p.Limiter.Begin()
	n := 0
	for f.Decide(o, r) == retry.Retry {
		n++
		require.Less(t, n, 1000, "limiter never gave up")
	}
	return n
}

func delays(s retry.Schedule, n int) []time.Duration {
	f := s.Begin()
	d := make([]time.Duration, n)
	for i := range d {
		d[i] = f.NextDelay()
	}
	return d
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }

var connectErr = request.FromError(syscall.ECONNREFUSED)
