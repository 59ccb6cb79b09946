// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the value types exchanged between a send loop
and a retry flow: Request (an outbound HTTP request which may be sent
several times), Outcome (the result of one attempt), and Execution (the
state of one logical request as driven by a send loop).

Create a request:

	r, err := request.New("GET", "https://example.com", nil)
	...

A Request is mutable. Retry limiters may change its headers between
attempts, so a send loop must always send the Request handed back by the
retry flow.

An Outcome is either a transport error or an HTTP response:

	o := request.FromError(err)                  // classified by package transient
	o := request.HTTPResponse(503, resp.Header)

A request body given to New is buffered so that it can be replayed on
every attempt. A body given to NewStreaming is sent once; converting the
request for a second attempt fails with ErrBodyUnavailable.

Execution is both the output type of retryflow.Client.Do and the input
type for callbacks invoked during an execution: timeout policies and
event handlers. You will typically not allocate Execution instances
yourself.
*/
package request
