// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"time"

	"github.com/gogama/retryflow/request"
)

// Policy chooses the deadline for each attempt of an execution. A send
// loop such as retryflow.Client calls Timeout once before every attempt,
// including the first, and bounds the attempt with the result.
//
// A Policy is shared by every execution of a client, so it must be safe
// for concurrent use and must keep no per-execution state outside e.
type Policy interface {
	// Timeout returns the deadline for the attempt about to start.
	//
	// When Timeout is called, e.Err and e.Outcome still describe the
	// previous attempt, and e.AttemptTimeouts counts the attempts of
	// this execution that ran out of time so far.
	Timeout(e *request.Execution) time.Duration
}

// DefaultPolicy gives every attempt 5 seconds.
var DefaultPolicy Policy = Fixed(5 * time.Second)

// Infinite never bounds an attempt. The execution context still applies.
var Infinite Policy = Fixed(1<<63 - 1)

// Fixed returns a policy giving every attempt the deadline d. It panics
// if d is not positive.
func Fixed(d time.Duration) Policy {
	return newPolicy(d)
}

// Adaptive returns a policy which uses usual until an attempt times out,
// then lengthens the next attempt's deadline. After the n-th timeout in
// an execution the next attempt gets after[n-1], or the last element of
// after once n exceeds its length. An attempt that follows a non-timeout
// failure goes back to usual.
//
// A short usual deadline cuts off one-off slow responses quickly, since
// the retry flow treats an attempt that ran out of time as a read
// failure and retries it. The longer after values keep a server that is
// slow across the board from turning every attempt into a timeout.
//
// For example, with
//
// 	p := Adaptive(200*time.Millisecond, time.Second, 10*time.Second)
//
// attempts normally get 200ms, the attempt after the first timeout gets
// 1s, and the attempt after any later timeout gets 10s.
//
// Adaptive panics if any value is not positive.
func Adaptive(usual time.Duration, after ...time.Duration) Policy {
	return newPolicy(usual, after...)
}

type policy []time.Duration

func newPolicy(usual time.Duration, after ...time.Duration) policy {
	p := make(policy, 1, 1+len(after))
	p[0] = usual
	p = append(p, after...)
	for _, d := range p {
		if d <= 0 {
			panic("retryflow/timeout: timeout must be positive")
		}
	}
	return p
}

func (p policy) Timeout(e *request.Execution) time.Duration {
	if !e.Timeout() {
		return p[0]
	}

	i := e.AttemptTimeouts
	if i > len(p)-1 {
		i = len(p) - 1
	}

	return p[i]
}
