// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"io"
)

const badBodyTypeMsg = "retryflow/request: invalid type (for body use nil, " +
	"string, []byte, io.Reader or io.ReadCloser)"

// ErrBodyUnavailable is the error reported when a request with a
// streaming body is converted for a second attempt. A streaming body can
// only be sent once, so the request cannot be replayed.
//
// The error categorizes as transient.Other, so no retry limiter will
// retry the attempt it caused.
var ErrBodyUnavailable = errors.New("retryflow/request: streaming body already consumed")

// BodyBytes converts a supported body type into a []byte suitable for
// use as a replayable Request body.
//
// Supported types are: nil, string, []byte, io.Reader and io.ReadCloser.
// Readers are read to the end. If the reader is an io.ReadCloser, it is
// closed after being read.
func BodyBytes(body interface{}) ([]byte, error) {
	switch x := body.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(x), nil
	case []byte:
		return x, nil
	case io.ReadCloser:
		b, err := io.ReadAll(x)
		if err != nil {
			return nil, err
		}
		err = x.Close()
		if err != nil {
			return nil, err
		}
		return b, nil
	case io.Reader:
		return BodyBytes(io.NopCloser(x))
	default:
		return nil, errors.New(badBodyTypeMsg)
	}
}

// stream is a one-shot request body.
type stream struct {
	r        io.Reader
	consumed bool
}

func (s *stream) take() (io.ReadCloser, error) {
	if s.consumed {
		return nil, ErrBodyUnavailable
	}
	s.consumed = true
	if rc, ok := s.r.(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(s.r), nil
}
