// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package plan

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/gogama/retryflow"
	"github.com/gogama/retryflow/config"
	"github.com/gogama/retryflow/request"
	"github.com/gogama/retryflow/retry"
	"github.com/gogama/retryflow/transient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutcome(t *testing.T) {
	testCases := []struct {
		in         string
		kind       transient.Kind
		status     int
		retryAfter string
	}{
		{in: "connect", kind: transient.Connect},
		{in: "READ", kind: transient.Read},
		{in: " write ", kind: transient.Write},
		{in: "other", kind: transient.Other},
		{in: "200", status: 200},
		{in: "503", status: 503},
		{in: "429:5", status: 429, retryAfter: "5"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.in, func(t *testing.T) {
			o, err := ParseOutcome(testCase.in)
			require.NoError(t, err)
			if testCase.status == 0 {
				require.True(t, o.IsError())
				assert.Equal(t, testCase.kind, o.Kind)
				return
			}
			require.True(t, o.IsResponse())
			assert.Equal(t, testCase.status, o.StatusCode)
			assert.Equal(t, testCase.retryAfter, o.Header.Get("Retry-After"))
		})
	}

	for _, bad := range []string{"", "timeout", "99", "600", "503:", "503:-1", "503:soon"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			o, err := ParseOutcome(bad)
			assert.Nil(t, o)
			assert.Error(t, err)
		})
	}
}

func TestParseOutcomes(t *testing.T) {
	_, err := ParseOutcomes(nil)
	assert.EqualError(t, err, "empty outcome script")
	_, err = ParseOutcomes([]string{"200", "bogus"})
	assert.Error(t, err)
	outcomes, err := ParseOutcomes([]string{"connect", "200"})
	require.NoError(t, err)
	assert.Len(t, outcomes, 2)
}

func TestSimulate(t *testing.T) {
	t.Run("retries then success", func(t *testing.T) {
		o := orchestrator(t,
			retry.Must(retry.AttemptHeader(retry.Or(retry.Must(retry.MaxErrors(3)), retry.Must(retry.MaxErrorResponses(3, 503))), "X-Retry-Attempt")),
			retry.Must(retry.ExponentialBackoff(100*time.Millisecond)))
		outcomes := script(t, "connect", "503", "200")

		report, err := Simulate(o, "GET", outcomes, zerolog.Nop())

		require.NoError(t, err)
		require.Len(t, report.Attempts, 3)
		assert.Equal(t, "GET", report.Method)
		assert.Equal(t, []string{"Retry", "Retry", "Pass"}, decisions(report))
		assert.Equal(t, time.Duration(0), report.Attempts[0].Delay)
		assert.Equal(t, 100*time.Millisecond, report.Attempts[1].Delay)
		assert.Equal(t, 100*time.Millisecond, report.Attempts[2].Elapsed)
		assert.Equal(t, 100*time.Millisecond, report.TotalDelay)
		assert.Empty(t, report.Attempts[0].Headers)
		assert.Equal(t, []string{"X-Retry-Attempt: 2"}, report.Attempts[2].Headers)
		assert.Equal(t, "HTTP 200", report.Final)
	})
	t.Run("last outcome repeats", func(t *testing.T) {
		o := orchestrator(t, retry.Must(retry.MaxErrors(4)), retry.Must(retry.Constant(time.Second)))

		report, err := Simulate(o, "PUT", script(t, "read"), zerolog.Nop())

		require.NoError(t, err)
		require.Len(t, report.Attempts, 5)
		assert.Equal(t, "GiveUp", report.Attempts[4].Decision)
		assert.Equal(t, 4*time.Second, report.TotalDelay)
	})
	t.Run("POST not retried", func(t *testing.T) {
		o := orchestrator(t, retry.Must(retry.MaxErrorResponses(4, 503)), retry.Must(retry.Constant(time.Second)))

		report, err := Simulate(o, "POST", script(t, "503"), zerolog.Nop())

		require.NoError(t, err)
		assert.Equal(t, []string{"GiveUp"}, decisions(report))
	})
	t.Run("retry after", func(t *testing.T) {
		o := orchestrator(t,
			retry.Must(retry.MaxErrorResponses(1, 429)),
			retry.Must(retry.RetryAfter(retry.Must(retry.Constant(time.Second)), retry.RetryAfterFloor)))

		report, err := Simulate(o, "GET", script(t, "429:30", "200"), zerolog.Nop())

		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, report.TotalDelay)
	})
	t.Run("never gives up", func(t *testing.T) {
		forever := retry.LimiterFunc(func() retry.LimiterFlow {
			return retry.DecideFunc(func(_ *request.Outcome, _ *request.Request) retry.Decision {
				return retry.Retry
			})
		})
		o := orchestrator(t, forever, retry.Must(retry.Constant(0)))

		report, err := Simulate(o, "GET", script(t, "200"), zerolog.Nop())

		assert.EqualError(t, err, "flow still retrying after 1000 attempts")
		assert.Len(t, report.Attempts, MaxAttempts)
	})
	t.Run("invalid", func(t *testing.T) {
		o := orchestrator(t, retry.DontRetry, retry.Must(retry.Constant(0)))
		_, err := Simulate(o, "GET", nil, zerolog.Nop())
		assert.Error(t, err)
		_, err = Simulate(o, "BAD METHOD", script(t, "200"), zerolog.Nop())
		assert.Error(t, err)
	})
}

func TestDelays(t *testing.T) {
	s := retry.Must(retry.Capped(retry.Must(retry.ExponentialBackoff(time.Second)), 3*time.Second))
	assert.Equal(t, []time.Duration{0, time.Second, 2 * time.Second, 3 * time.Second}, Delays(s, 4))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(config.LogConfig{Level: "warn"}, &buf)
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)

	buf.Reset()
	l = NewLogger(config.LogConfig{Level: "nonsense", Pretty: true}, &buf)
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
	l.Info().Msg("pretty")
	assert.Contains(t, buf.String(), "pretty")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "retryplan", cmd.Use)
	for _, name := range []string{"config", "output", "log-level"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["simulate"])
	assert.True(t, names["schedule"])
}

func TestSimulateCommand(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		out, err := execute(t, "simulate", "connect", "connect", "200")
		require.NoError(t, err)
		assert.Contains(t, out, "ATTEMPT")
		assert.Contains(t, out, "final: HTTP 200 after 3 attempt(s), 200ms total delay")
	})
	t.Run("yaml", func(t *testing.T) {
		out, err := execute(t, "simulate", "--output", "yaml", "-X", "DELETE", "503")
		require.NoError(t, err)
		var report struct {
			Method   string `yaml:"method"`
			Attempts []struct {
				Decision string `yaml:"decision"`
			} `yaml:"attempts"`
			Final string `yaml:"final"`
		}
		require.NoError(t, yaml.Unmarshal([]byte(out), &report))
		assert.Equal(t, "DELETE", report.Method)
		require.Len(t, report.Attempts, 1)
		assert.Equal(t, "Pass", report.Attempts[0].Decision, "default limiter only counts transport errors")
		assert.Equal(t, "HTTP 503", report.Final)
	})
	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "retry.yaml")
		doc := "limiter:\n  type: max_error_responses\n  max: 2\n  status_codes: [503]\nschedule:\n  type: constant\n  delay: 1s\n"
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
		out, err := execute(t, "--config", path, "simulate", "503")
		require.NoError(t, err)
		assert.Contains(t, out, "final: HTTP 503 after 3 attempt(s), 2s total delay")
	})
	t.Run("errors", func(t *testing.T) {
		_, err := execute(t, "simulate")
		assert.Error(t, err)
		_, err = execute(t, "simulate", "huh")
		assert.Error(t, err)
		_, err = execute(t, "--output", "xml", "simulate", "200")
		assert.Error(t, err)
		_, err = execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "simulate", "200")
		assert.Error(t, err)
	})
}

func TestScheduleCommand(t *testing.T) {
	out, err := execute(t, "schedule", "-n", "4")
	require.NoError(t, err)
	assert.Equal(t, "retry 1\t0s\nretry 2\t200ms\nretry 3\t400ms\nretry 4\t800ms\n", out)

	out, err = execute(t, "schedule", "-n", "2", "-o", "yaml")
	require.NoError(t, err)
	assert.Equal(t, "delays:\n  - 0s\n  - 200ms\n", out)

	_, err = execute(t, "schedule", "-n", "0")
	assert.Error(t, err)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func orchestrator(t *testing.T, l retry.Limiter, s retry.Schedule) *retryflow.Orchestrator {
	o, err := retryflow.New(l, s)
	require.NoError(t, err)
	return o
}

func script(t *testing.T, ss ...string) []*request.Outcome {
	outcomes, err := ParseOutcomes(ss)
	require.NoError(t, err)
	return outcomes
}

func decisions(report *Report) []string {
	var d []string
	for _, a := range report.Attempts {
		d = append(d, a.Decision)
	}
	return d
}
