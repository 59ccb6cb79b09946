// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/net/http/httpguts"
)

// A Request is an outbound HTTP request which may be sent more than once
// during a retry flow.
//
// The send loop that created the Request owns it. Retry limiters only
// borrow it while deciding on a single outcome, and may mutate its
// headers to influence the next attempt (for example, to add an
// idempotency key). The send loop must always send the Request handed
// back by the retry flow, never a copy taken before the decision.
type Request struct {
	// Method specifies the HTTP method (GET, POST, PUT, etc.).
	//
	// Method is case-sensitive. Only the upper-case spellings of the
	// idempotent methods are recognized as idempotent.
	Method string

	// Target identifies the request target, typically an absolute URL.
	// The retry core treats it as an opaque value used for logging and
	// metrics; only the HTTP adapter interprets it.
	Target string

	// Header contains the request header fields. Keys are canonicalized
	// by the http.Header methods, so lookups are case-insensitive, and a
	// key may hold multiple values.
	Header http.Header

	// Body is the complete, replayable request body. It is ignored if
	// the request has a streaming body.
	Body []byte

	stream *stream
}

// New returns a new Request given a method, target, and optional body.
//
// If method is empty, GET is assumed. The method must be a valid HTTP
// token.
//
// The body parameter may be nil (for an empty body), or may be any of
// the types supported by BodyBytes: string; []byte; io.Reader; and
// io.ReadCloser. Readers are fully buffered so the request can be
// replayed. To send a body which cannot be buffered, use NewStreaming.
func New(method, target string, body interface{}) (*Request, error) {
	method, err := checkMethod(method)
	if err != nil {
		return nil, err
	}
	b, err := BodyBytes(body)
	if err != nil {
		return nil, err
	}
	return &Request{
		Method: method,
		Target: target,
		Header: make(http.Header),
		Body:   b,
	}, nil
}

// NewStreaming returns a new Request whose body is read directly from r
// when the request is first converted with ToHTTP. Because a streaming
// body can only be read once, any later conversion fails with
// ErrBodyUnavailable, and the attempt which needed it cannot be retried.
func NewStreaming(method, target string, r io.Reader) (*Request, error) {
	req, err := New(method, target, nil)
	if err != nil {
		return nil, err
	}
	if r != nil {
		req.stream = &stream{r: r}
	}
	return req, nil
}

// Idempotent reports whether the request method is idempotent.
func (r *Request) Idempotent() bool {
	return Idempotent(r.Method)
}

// Streaming reports whether the request has a one-shot streaming body.
func (r *Request) Streaming() bool {
	return r.stream != nil
}

// Clone returns a deep copy of the request headers and body. A streaming
// body is shared with the clone, so only one of them can send it.
func (r *Request) Clone() *Request {
	r2 := new(Request)
	*r2 = *r
	r2.Header = r.Header.Clone()
	if r.Body != nil {
		r2.Body = append([]byte(nil), r.Body...)
	}
	return r2
}

// ToHTTP creates an HTTP request for one attempt of r, with its context
// set to ctx.
//
// The HTTP request shares the header map of r, so mutations made by a
// retry limiter are visible on the next conversion. If r has a
// streaming body which an earlier conversion already consumed, ToHTTP
// returns ErrBodyUnavailable.
func (r *Request) ToHTTP(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	var getBody func() (io.ReadCloser, error)
	if r.stream != nil {
		rc, err := r.stream.take()
		if err != nil {
			return nil, err
		}
		body = rc
	} else if len(r.Body) > 0 {
		b := r.Body
		body = bytes.NewReader(b)
		getBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		}
	}

	h, err := http.NewRequestWithContext(ctx, r.Method, r.Target, body)
	if err != nil {
		return nil, err
	}
	if r.Header != nil {
		h.Header = r.Header
	}
	if getBody != nil {
		h.GetBody = getBody
	}
	return h, nil
}

func checkMethod(method string) (string, error) {
	if method == "" {
		return http.MethodGet, nil
	}
	// A method is a token (RFC 7230 section 3.1.1), which is exactly the
	// grammar of a header field name.
	if !httpguts.ValidHeaderFieldName(method) {
		return "", fmt.Errorf("retryflow/request: invalid method %q", method)
	}
	return method, nil
}
