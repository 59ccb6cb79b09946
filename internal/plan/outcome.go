// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package plan

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gogama/retryflow/request"
	"github.com/gogama/retryflow/transient"
)

var kinds = map[string]transient.Kind{
	"connect": transient.Connect,
	"read":    transient.Read,
	"write":   transient.Write,
	"other":   transient.Other,
}

// ParseOutcome parses one scripted attempt outcome. The accepted forms
// are a transport failure kind (connect, read, write, or other), an HTTP
// status code such as 503, or a status code with a Retry-After value in
// seconds such as 429:5.
func ParseOutcome(s string) (*request.Outcome, error) {
	s = strings.TrimSpace(s)
	if k, ok := kinds[strings.ToLower(s)]; ok {
		return request.TransportError(k, fmt.Errorf("simulated %s failure", strings.ToLower(s))), nil
	}

	code, retryAfter, hasRetryAfter := strings.Cut(s, ":")
	status, err := strconv.Atoi(code)
	if err != nil || status < 100 || status > 599 {
		return nil, fmt.Errorf("invalid outcome %q: want connect, read, write, other, or an HTTP status code", s)
	}

	var h http.Header
	if hasRetryAfter {
		if n, err := strconv.Atoi(retryAfter); err != nil || n < 0 {
			return nil, fmt.Errorf("invalid outcome %q: Retry-After must be a non-negative number of seconds", s)
		}
		h = http.Header{"Retry-After": {retryAfter}}
	}

	return request.HTTPResponse(status, h), nil
}

// ParseOutcomes parses a script of outcomes with ParseOutcome.
func ParseOutcomes(ss []string) ([]*request.Outcome, error) {
	if len(ss) == 0 {
		return nil, errors.New("empty outcome script")
	}

	outcomes := make([]*request.Outcome, len(ss))
	for i, s := range ss {
		o, err := ParseOutcome(s)
		if err != nil {
			return nil, err
		}
		outcomes[i] = o
	}

	return outcomes, nil
}
