// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryflow

import (
	"errors"
	"fmt"
)

// ErrUsage is the sentinel matched, via errors.Is, by every UsageError.
var ErrUsage = errors.New("retryflow: flow driven out of order")

// A UsageError reports that a Flow was driven out of order, for example
// by reporting an outcome before taking the request to send, reporting
// two outcomes for one send, or using the flow after it terminated.
//
// A UsageError indicates a bug in the send loop. It is never retried,
// and the flow's state is unchanged by the call which returned it.
type UsageError struct {
	// Op is the Flow method which was called out of order.
	Op string
	// State is the state the flow was in when Op was called.
	State State
}

func (err *UsageError) Error() string {
	return fmt.Sprintf("retryflow: %s called in state %s", err.Op, err.State)
}

// Unwrap returns ErrUsage.
func (err *UsageError) Unwrap() error {
	return ErrUsage
}
