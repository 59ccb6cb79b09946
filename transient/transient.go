// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// A Kind is the transport failure category of a particular error, as
// reported by function Categorize.
//
// The kinds form a closed taxonomy. Connect and Read failures imply the
// server has not acted on the request, so they are retryable. Write
// failures imply the server may already be processing a partially sent
// request, so they are never retryable. Every other error is Other, and
// is also never retryable.
type Kind int

const (
	// Other indicates any error which is not a recognized connect, read,
	// or write failure. This includes usage errors such as attempting to
	// resend a request whose streaming body has already been consumed,
	// and cancellation of the caller's context.
	Other Kind = iota
	// Connect indicates the connection to the remote host could not be
	// established: the connection was refused, the host could not be
	// resolved, or the dial timed out.
	//
	// Function Categorize returns Connect if the error or any of its
	// wrapped causes is syscall.ECONNREFUSED, a *net.DNSError, or a
	// *net.OpError whose operation is "dial".
	Connect
	// Read indicates the request was written but the response could not
	// be read: the remote host reset the connection, closed it early,
	// or did not answer before a timeout.
	//
	// Connection reset is not uncommon if, due to poor deployment
	// processes, a service on the remote host comes down prematurely.
	// As well it may happen in a variety of cases where the remote host
	// is a load balancer. For these reasons a read failure tends to
	// indicate a high probability of success on retry.
	Read
	// Write indicates the request could not be fully written. The remote
	// host may have received and begun acting on part of the request,
	// so a write failure is never retryable.
	//
	// Function Categorize returns Write if the error or any of its
	// wrapped causes is syscall.EPIPE, or a *net.OpError whose operation
	// is "write".
	Write
)

var kindNames = []string{
	"Other",
	"Connect",
	"Read",
	"Write",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if k < Other || int(k) >= len(kindNames) {
		return "Kind(?)"
	}

	return kindNames[k]
}

// Retryable reports whether a transport failure of this kind leaves the
// request safe to send again.
func (k Kind) Retryable() bool {
	return k == Connect || k == Read
}

// Categorize returns the transport failure kind of the given error. A
// nil error, and any error which cannot be attributed to connecting,
// reading, or writing, produce Other.
//
// In assessing the kind, Categorize looks at wrapped cause errors
// contained within err, not just err itself. Context cancellation and
// context deadline errors are always Other, since they mean the caller
// has given up rather than that the transport failed. Timeouts without
// any more specific operation information are treated as Read, because
// the standard HTTP client reports header and body read timeouts that
// way.
func Categorize(err error) Kind {
	if err == nil {
		return Other
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Other
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch opErr.Op {
		case "dial":
			return Connect
		case "write":
			return Write
		case "read":
			return Read
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Connect
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED:
			return Connect
		case syscall.ECONNRESET, syscall.ETIMEDOUT:
			return Read
		case syscall.EPIPE:
			return Write
		}
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return Read
	}

	if IsTimeout(err) {
		return Read
	}

	return Other
}

// Retryable reports whether err is a transport failure after which the
// request may safely be sent again. It is equivalent to
// Categorize(err).Retryable().
func Retryable(err error) bool {
	return Categorize(err).Retryable()
}

// IsTimeout reports whether err, or any of its wrapped causes, has a
// Timeout method which reports true.
//
// IsTimeout never checks whether an error has a Temporary method that
// returns true, as the semantics of Temporary aren't entirely clear.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	var hasTimeout hasTimeout
	if errors.As(err, &hasTimeout) && hasTimeout.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ETIMEDOUT)
}

type hasTimeout interface {
	Timeout() bool
}
