// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient classifies transport errors from HTTP request
// attempts into a closed taxonomy of kinds: Connect, Read, Write, and
// Other. The kind determines whether a failed attempt may safely be
// retried, which is handy for writing retry limiters, and for other
// purposes such as bucketing error metrics.
//
// Package transient is extremely lightweight, as it depends only on
// standard library packages, so it doesn't bring any significant
// dependencies when imported as a standalone package.
package transient
