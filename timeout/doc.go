// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout defines policies for setting the timeout on each
// attempt of a logical request, including on retries.
//
// The retry core itself never times anything out. Timeout policies are
// consulted by a send loop, such as retryflow.Client, which bounds each
// attempt with a context deadline. An attempt which ran out of time
// without a more specific failure kind is reported as a read failure,
// which MaxErrors limiters retry.
//
// A generic interface for timeout policies is provided, Policy, along
// with the policy generating functions Fixed and Adaptive and the
// built-in policies DefaultPolicy and Infinite.
package timeout
