// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package retryflow orchestrates retries of HTTP requests: it decides,
after each attempt, whether to send the request again and how long to
wait first.

The core is transport-agnostic. An Orchestrator couples a retry limiter
with a retry schedule (see package retry), and Begin starts a Flow for
one logical request. The caller drives the Flow as a state machine:

	flow := orchestrator.Begin(r)
	for {
		next, err := flow.Next()
		if err != nil {
			return err // UsageError: driven out of order
		}
		outcome := send(next) // any transport you like
		step, err := flow.Report(outcome)
		if err != nil {
			return err
		}
		if step.Done {
			return nil // step.Outcome is the final outcome
		}
		time.Sleep(step.Delay)
	}

A Flow never sleeps and never performs I/O. Each Flow carries its own
retry state, so one Orchestrator can serve any number of concurrent
requests.

For the common case, create a Client, which runs the loop above over
HTTP with per-attempt timeouts and an interruptible wait:

	client := &retryflow.Client{}
	r, err := request.New("PUT", "https://www.example.com/widgets/1", body)
	...
	r.Header.Set("Content-Type", "application/json")
	ex, err := client.Do(ctx, r)

For control over the client's retry decisions and timing, build an
orchestrator from components in package retry:

	limiter := retry.Or(
		retry.Must(retry.MaxErrors(3)),
		retry.Must(retry.MaxErrorResponses(5, 429, 503)))
	schedule := retry.Must(retry.ExponentialBackoff(250 * time.Millisecond))
	client := &retryflow.Client{
		Orchestrator: retry.Must(retryflow.New(limiter, schedule)),
	}

Function Resolve accepts the shorthand forms of retry configuration: a
retry count, a retry.Limiter, or a retry.Policy.

For control over the client's individual attempt timeouts, set a custom
timeout policy using package timeout:

	client := &retryflow.Client{
		TimeoutPolicy: timeout.Fixed(10*time.Second),
	}

To hook into the fine-grained details of the client's execution logic,
install a handler into the appropriate handler chain. InstallLogger,
InstallTracer, and Metrics.Install add structured logging, OpenTelemetry
spans, and Prometheus metrics in this way:

	handlers := &retryflow.HandlerGroup{}
	retryflow.InstallLogger(handlers, zerolog.New(os.Stderr))
	handlers.PushBack(retryflow.BeforeAttempt, retryflow.HandlerFunc(
		func(_ retryflow.Event, e *request.Execution) {
			fmt.Printf("Attempt %d to %s\n", e.Attempt, e.Request.Target)
		}))
	client := &retryflow.Client{
		Handlers: handlers,
	}

Client satisfies the Doer and IdleCloser interfaces, and their union
Executor. Inflate adapts any other Doer into an Executor.
*/
package retryflow
