// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name    string
		method  string
		body    interface{}
		asserts func(t *testing.T, r *Request, err error)
	}{
		{
			name:   "blank method",
			method: "",
			asserts: func(t *testing.T, r *Request, err error) {
				require.NoError(t, err)
				assert.Equal(t, "GET", r.Method)
				assert.Nil(t, r.Body)
				assert.NotNil(t, r.Header)
			},
		},
		{
			name:   "extension method",
			method: "PURGE",
			body:   "foo",
			asserts: func(t *testing.T, r *Request, err error) {
				require.NoError(t, err)
				assert.Equal(t, "PURGE", r.Method)
				assert.Equal(t, []byte("foo"), r.Body)
			},
		},
		{
			name:   "buffered reader",
			method: "POST",
			body:   strings.NewReader("bar"),
			asserts: func(t *testing.T, r *Request, err error) {
				require.NoError(t, err)
				assert.Equal(t, []byte("bar"), r.Body)
				assert.False(t, r.Streaming())
			},
		},
		{
			name:   "invalid method",
			method: "GE T",
			asserts: func(t *testing.T, r *Request, err error) {
				assert.Nil(t, r)
				assert.EqualError(t, err, `retryflow/request: invalid method "GE T"`)
			},
		},
		{
			name:   "invalid body",
			method: "PUT",
			body:   1.5,
			asserts: func(t *testing.T, r *Request, err error) {
				assert.Nil(t, r)
				assert.EqualError(t, err, badBodyTypeMsg)
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			r, err := New(testCase.method, "http://example.com/test", testCase.body)
			testCase.asserts(t, r, err)
			if r != nil {
				assert.Equal(t, "http://example.com/test", r.Target)
			}
		})
	}
}

func TestRequest_Idempotent(t *testing.T) {
	for _, m := range []string{"GET", "HEAD", "PUT", "DELETE", "OPTIONS", "TRACE"} {
		r, err := New(m, "test", nil)
		require.NoError(t, err)
		assert.True(t, r.Idempotent(), m)
	}
	for _, m := range []string{"POST", "PATCH", "CONNECT", "get", "PURGE"} {
		r, err := New(m, "test", nil)
		require.NoError(t, err)
		assert.False(t, r.Idempotent(), m)
	}
}

func TestRequest_Clone(t *testing.T) {
	r, err := New("PUT", "test", "body")
	require.NoError(t, err)
	r.Header.Add("X-Foo", "a")
	r.Header.Add("X-Foo", "b")
	c := r.Clone()
	c.Header.Set("X-Foo", "c")
	c.Body[0] = 'B'
	assert.Equal(t, []string{"a", "b"}, r.Header.Values("x-foo"))
	assert.Equal(t, []string{"c"}, c.Header.Values("X-FOO"))
	assert.Equal(t, "body", string(r.Body))
}

func TestRequest_ToHTTP(t *testing.T) {
	t.Run("replayable body", func(t *testing.T) {
		r, err := New("PUT", "http://example.com/x", "foo")
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			h, err := r.ToHTTP(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "PUT", h.Method)
			assert.Equal(t, int64(3), h.ContentLength)
			b, err := io.ReadAll(h.Body)
			assert.NoError(t, err)
			assert.Equal(t, "foo", string(b))
			rc, err := h.GetBody()
			require.NoError(t, err)
			b, err = io.ReadAll(rc)
			assert.NoError(t, err)
			assert.Equal(t, "foo", string(b))
		}
	})
	t.Run("empty body", func(t *testing.T) {
		r, err := New("DELETE", "http://example.com/x", "")
		require.NoError(t, err)
		h, err := r.ToHTTP(context.Background())
		require.NoError(t, err)
		assert.Nil(t, h.Body)
		assert.Equal(t, int64(0), h.ContentLength)
	})
	t.Run("shared header", func(t *testing.T) {
		r, err := New("GET", "http://example.com/x", nil)
		require.NoError(t, err)
		h, err := r.ToHTTP(context.Background())
		require.NoError(t, err)
		r.Header.Set("Idempotency-Key", "k")
		assert.Equal(t, "k", h.Header.Get("Idempotency-Key"))
	})
	t.Run("context", func(t *testing.T) {
		r, err := New("GET", "http://example.com/x", nil)
		require.NoError(t, err)
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		h, err := r.ToHTTP(ctx)
		require.NoError(t, err)
		assert.Same(t, ctx, h.Context())
	})
	t.Run("streaming body", func(t *testing.T) {
		r, err := NewStreaming("POST", "http://example.com/x", strings.NewReader("once"))
		require.NoError(t, err)
		assert.True(t, r.Streaming())
		h, err := r.ToHTTP(context.Background())
		require.NoError(t, err)
		b, err := io.ReadAll(h.Body)
		assert.NoError(t, err)
		assert.Equal(t, "once", string(b))
		h, err = r.ToHTTP(context.Background())
		assert.Nil(t, h)
		assert.ErrorIs(t, err, ErrBodyUnavailable)
	})
	t.Run("bad target", func(t *testing.T) {
		r, err := New("GET", "http://[::1", nil)
		require.NoError(t, err)
		h, err := r.ToHTTP(context.Background())
		assert.Nil(t, h)
		assert.Error(t, err)
	})
}

func TestIdempotent(t *testing.T) {
	assert.True(t, Idempotent("OPTIONS"))
	assert.False(t, Idempotent("POST"))
	assert.False(t, Idempotent(""))
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2021, time.March, 1, 12, 0, 0, 0, time.UTC)
	testCases := []struct {
		name  string
		value string
		d     time.Duration
		ok    bool
	}{
		{"absent", "", 0, false},
		{"seconds", "120", 2 * time.Minute, true},
		{"zero seconds", "0", 0, true},
		{"padded seconds", " 7 ", 7 * time.Second, true},
		{"negative seconds", "-1", 0, false},
		{"huge seconds", "99999999999999999", maxDuration, true},
		{"future date", now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second, true},
		{"past date", now.Add(-time.Hour).Format(http.TimeFormat), 0, true},
		{"garbage", "soon", 0, false},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			h := http.Header{}
			if testCase.value != "" {
				h.Set("Retry-After", testCase.value)
			}
			d, ok := RetryAfter(h, now)
			assert.Equal(t, testCase.ok, ok)
			assert.Equal(t, testCase.d, d)
		})
	}
	t.Run("nil header", func(t *testing.T) {
		d, ok := RetryAfter(nil, now)
		assert.False(t, ok)
		assert.Equal(t, time.Duration(0), d)
	})
}
