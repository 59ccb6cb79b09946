// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math/rand"
	"sync"
	"time"

	"github.com/gogama/retryflow/request"
)

// Jitter decorates s with "Full Jitter": each delay d computed by s is
// replaced by a random duration between 0 (inclusive) and d (exclusive).
// Zero delays stay zero.
//
// The approach is described in:
// https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter.
//
// Parameter seed controls the random number generator. You may specify
// either a random number generator seed value (as a time.Time, int, or
// int64) or a random number generator (as a rand.Source or *rand.Rand).
// If a seed value is specified, it is used to seed a random number
// generator for calculating jitter. If a rand.Source is specified, it is
// used to calculate jitter. The generator is shared by every flow of the
// schedule, and access to it is serialized.
//
// The flows of a jittered schedule are not reproducible unless both the
// seed and the order in which concurrent flows draw delays are fixed.
func Jitter(s Schedule, seed interface{}) Schedule {
	if s == nil {
		panic("retryflow/retry: nil schedule")
	}
	r := seedToRand(seed)
	if r == nil {
		panic("retryflow/retry: nil jitter seed")
	}
	return &jitter{inner: s, rand: r}
}

type jitter struct {
	inner Schedule
	rand  *rand.Rand
	lock  sync.Mutex
}

func (s *jitter) Begin() ScheduleFlow {
	return &jitterFlow{inner: s.inner.Begin(), parent: s}
}

func (s *jitter) draw(ceil time.Duration) time.Duration {
	s.lock.Lock()
	defer s.lock.Unlock()
	return time.Duration(s.rand.Int63n(int64(ceil)))
}

type jitterFlow struct {
	inner  ScheduleFlow
	parent *jitter
}

func (f *jitterFlow) NextDelay() time.Duration {
	d := f.inner.NextDelay()
	if d <= 0 {
		return 0
	}
	return f.parent.draw(d)
}

func (f *jitterFlow) Observe(o *request.Outcome) {
	observe(f.inner, o)
}

func seedToRand(seed interface{}) *rand.Rand {
	var s rand.Source
	switch j := seed.(type) {
	case nil:
		return nil
	case time.Time:
		s = rand.NewSource(j.UnixNano())
	case int:
		s = rand.NewSource(int64(j))
	case int64:
		s = rand.NewSource(j)
	case *rand.Rand:
		if j == nil {
			panic("retryflow/retry: jitter seed may not be a typed nil")
		}
		return j
	case rand.Source:
		s = j
	default:
		panic("retryflow/retry: invalid jitter seed type")
	}
	return rand.New(s)
}
