// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryflow

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gogama/retryflow/request"
)

// A Sender makes one attempt to send a request and reports how the
// attempt ended. Send never returns nil: transport failures are
// reported as error outcomes rather than Go errors, so the retry flow
// can classify them.
//
// Implementations must be safe for concurrent use by multiple
// goroutines.
type Sender interface {
	Send(ctx context.Context, r *request.Request) *request.Outcome
}

// The SenderFunc type is an adapter to allow the use of ordinary
// functions as senders.
type SenderFunc func(ctx context.Context, r *request.Request) *request.Outcome

// Send calls f(ctx, r).
func (f SenderFunc) Send(ctx context.Context, r *request.Request) *request.Outcome {
	return f(ctx, r)
}

// An HTTPDoer implements a Do method in the same manner as the GoLang
// standard library http.Client from the net/http package.
type HTTPDoer interface {
	// Do sends an HTTP request and returns an HTTP response following
	// policy (such as redirects, cookies, auth) configured on the
	// HTTPDoer.
	//
	// The Do method must follow the contract documented on the GoLang
	// standard library http.Client from the net/http package.
	Do(r *http.Request) (*http.Response, error)
}

// An HTTPSender is a Sender which sends requests with an HTTPDoer and
// reads and buffers each response body.
//
// Errors are wrapped in *url.Error, as http.Client does, and classified
// with request.FromError. An error reading the response body ends the
// attempt with an error outcome, usually a retryable read failure.
type HTTPSender struct {
	// Doer specifies the mechanics of sending HTTP requests and
	// receiving responses.
	//
	// If Doer is nil, http.DefaultClient from the standard net/http
	// package is used.
	Doer HTTPDoer
}

// Send converts r into an HTTP request bound to ctx, sends it, and
// buffers the response body.
func (s *HTTPSender) Send(ctx context.Context, r *request.Request) *request.Outcome {
	h, err := r.ToHTTP(ctx)
	if err != nil {
		return request.FromError(urlErrorWrap(r, err))
	}

	resp, err := s.doer().Do(h)
	if err != nil {
		return request.FromError(urlErrorWrap(r, err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return request.FromError(urlErrorWrap(r, err))
	}

	o := request.HTTPResponse(resp.StatusCode, resp.Header)
	o.Body = body
	return o
}

// CloseIdleConnections invokes the same method on the sender's
// underlying HTTPDoer.
//
// If the HTTPDoer has no CloseIdleConnections method, this method does
// nothing.
func (s *HTTPSender) CloseIdleConnections() {
	if ic, ok := s.doer().(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (s *HTTPSender) doer() HTTPDoer {
	if s.Doer == nil {
		return http.DefaultClient
	}

	return s.Doer
}

func urlErrorWrap(r *request.Request, err error) error {
	if _, ok := err.(*url.Error); ok {
		return err
	}

	return &url.Error{
		Op:  urlErrorOp(r.Method),
		URL: r.Target,
		Err: err,
	}
}

// urlErrorOp is lifted verbatim from net/http/client.go
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}
