// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gogama/retryflow/transient"
)

// An Outcome is the result of one request attempt. It is either a
// transport error, in which case Err is non-nil and Kind classifies it,
// or an HTTP response, in which case Err is nil and StatusCode and
// Header describe the response.
//
// Use the constructors TransportError, FromError, and HTTPResponse
// rather than assembling Outcome values by hand.
type Outcome struct {
	// Err is the transport error which ended the attempt, or nil if an
	// HTTP response was received.
	Err error

	// Kind classifies Err. It is only meaningful when Err is non-nil.
	Kind transient.Kind

	// StatusCode is the HTTP response status code. It is zero when the
	// attempt ended in a transport error.
	StatusCode int

	// Header contains the HTTP response header fields. It is nil when
	// the attempt ended in a transport error.
	Header http.Header

	// Body is the fully-buffered HTTP response body, if the sender read
	// one. The retry core never looks at it.
	Body []byte
}

// TransportError returns an Outcome for an attempt which failed with the
// given kind of transport error. If err is nil, a generic error naming
// the kind is substituted.
func TransportError(kind transient.Kind, err error) *Outcome {
	if err == nil {
		err = errors.New("retryflow/request: " + strings.ToLower(kind.String()) + " error")
	}
	return &Outcome{Err: err, Kind: kind}
}

// FromError returns an Outcome for an attempt which failed with err,
// classifying err using transient.Categorize. The error must be
// non-nil.
func FromError(err error) *Outcome {
	if err == nil {
		panic("retryflow/request: nil error")
	}
	return &Outcome{Err: err, Kind: transient.Categorize(err)}
}

// HTTPResponse returns an Outcome for an attempt which received an HTTP
// response with the given status code and header.
func HTTPResponse(statusCode int, header http.Header) *Outcome {
	return &Outcome{StatusCode: statusCode, Header: header}
}

// IsError reports whether the attempt ended in a transport error.
func (o *Outcome) IsError() bool {
	return o.Err != nil
}

// IsResponse reports whether the attempt received an HTTP response.
func (o *Outcome) IsResponse() bool {
	return o.Err == nil
}

// Retryable reports whether the outcome is a transport error of a
// retryable kind. HTTP responses are never retryable by this measure;
// retrying on response status codes is a matter of retry limiter
// policy.
func (o *Outcome) Retryable() bool {
	return o.Err != nil && o.Kind.Retryable()
}

func (o *Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s error: %v", o.Kind, o.Err)
	}
	return fmt.Sprintf("HTTP %d", o.StatusCode)
}
