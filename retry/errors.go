// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import "fmt"

// A ConfigError reports an invalid retry limiter or schedule parameter.
// It is returned by constructors when the limiter or schedule is built,
// never while a retry flow is running.
type ConfigError struct {
	// Field names the rejected parameter, for example "MaxErrors.n".
	Field string
	// Value is the rejected value.
	Value interface{}
	// Reason explains why the value was rejected.
	Reason string
}

func (err *ConfigError) Error() string {
	return fmt.Sprintf("retryflow/retry: invalid %s %v: %s", err.Field, err.Value, err.Reason)
}

// Must panics if err is non-nil, and otherwise returns v. It is intended
// for package-level variable initializations with constant parameters:
//
//	var limiter = retry.Must(retry.MaxErrors(3))
func Must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func nonNegative(field string, n int64) error {
	if n < 0 {
		return &ConfigError{Field: field, Value: n, Reason: "must not be negative"}
	}
	return nil
}
