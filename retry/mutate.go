// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/net/http/httpguts"

	"github.com/gogama/retryflow/request"
)

// A Mutator changes a request before it is retried. Parameter retry is
// the one-based number of the retry about to be made.
type Mutator func(r *request.Request, retry int)

// OnRetry decorates l so that m is applied to the request each time l
// authorizes a retry. Decisions other than Retry leave the request
// untouched.
func OnRetry(l Limiter, m Mutator) Limiter {
	if l == nil {
		panic("retryflow/retry: nil limiter")
	}
	if m == nil {
		panic("retryflow/retry: nil mutator")
	}
	return LimiterFunc(func() LimiterFlow {
		return &mutatingFlow{inner: l.Begin(), mutate: m}
	})
}

type mutatingFlow struct {
	inner   LimiterFlow
	mutate  Mutator
	retries int
}

func (f *mutatingFlow) Decide(o *request.Outcome, r *request.Request) Decision {
	d := f.inner.Decide(o, r)
	if d == Retry && r != nil {
		f.retries++
		if r.Header == nil {
			r.Header = make(http.Header)
		}
		f.mutate(r, f.retries)
	}
	return d
}

// AttemptHeader decorates l so that each retry it authorizes sets the
// request header name to the one-based retry number. The server can use
// it to tell retries from original requests.
//
// AttemptHeader returns a *ConfigError if name is not a valid header
// field name.
func AttemptHeader(l Limiter, name string) (Limiter, error) {
	if err := headerName("AttemptHeader.name", name); err != nil {
		return nil, err
	}
	return OnRetry(l, func(r *request.Request, retry int) {
		r.Header.Set(name, strconv.Itoa(retry))
	}), nil
}

// IdempotencyKey decorates l so that the first retry it authorizes adds
// a random UUID to the request header name, unless the request already
// carries that header. Every later retry of the same logical request
// reuses the key, letting the server recognize repeats of a request it
// may already have processed.
//
// IdempotencyKey returns a *ConfigError if name is not a valid header
// field name.
func IdempotencyKey(l Limiter, name string) (Limiter, error) {
	if err := headerName("IdempotencyKey.name", name); err != nil {
		return nil, err
	}
	return OnRetry(l, func(r *request.Request, _ int) {
		if r.Header.Get(name) == "" {
			r.Header.Set(name, uuid.NewString())
		}
	}), nil
}

func headerName(field, name string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return &ConfigError{Field: field, Value: strconv.Quote(name), Reason: "not a valid header field name"}
	}
	return nil
}
