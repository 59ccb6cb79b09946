// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import "net/http"

var idempotent = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
}

// Idempotent reports whether method is one of the idempotent HTTP
// methods GET, HEAD, PUT, DELETE, OPTIONS, or TRACE. Repeating a request
// with an idempotent method has no side effects beyond those of the
// first request.
func Idempotent(method string) bool {
	return idempotent[method]
}
