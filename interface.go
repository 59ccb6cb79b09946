// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryflow

import (
	"context"

	"github.com/gogama/retryflow/request"
)

// Doer runs one logical request to completion, making as many attempts
// as its retry flow allows, and returns the execution record. The
// returned error is the final attempt's transport error, a context error
// if the execution was cut short, or nil.
//
// Client is the reference Doer.
type Doer interface {
	Do(ctx context.Context, r *request.Request) (*request.Execution, error)
}

// IdleCloser releases idle connections held by a transport. It must not
// interrupt attempts in flight.
type IdleCloser interface {
	CloseIdleConnections()
}

// Executor is a Doer whose idle connections can be released.
//
// Inflate turns any Doer into an Executor.
type Executor interface {
	Doer
	IdleCloser
}

// Inflate converts a non-nil Doer into an Executor. If d has no
// CloseIdleConnections method, the Executor's CloseIdleConnections does
// nothing.
func Inflate(d Doer) Executor {
	if d == nil {
		panic("retryflow: nil doer")
	}

	if e, ok := d.(Executor); ok {
		return e
	}

	return inflated{d}
}

type inflated struct {
	doer Doer
}

func (i inflated) Do(ctx context.Context, r *request.Request) (*request.Execution, error) {
	return i.doer.Do(ctx, r)
}

func (i inflated) CloseIdleConnections() {}
