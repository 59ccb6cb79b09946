// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryflow

// An Event identifies the event type when installing or running a
// Handler. Install event handlers in a Client to extend it with custom
// functionality.
type Event int

const (
	// BeforeExecutionStart identifies the event that occurs before the
	// execution of a logical request starts.
	//
	// When Client fires BeforeExecutionStart, the execution is non-nil
	// and its ID, request, and context are set, but no other field has
	// been set.
	BeforeExecutionStart Event = iota
	// BeforeAttempt identifies the event that occurs before each
	// individual attempt during the execution.
	//
	// When Client fires BeforeAttempt, the execution's request field
	// holds the request that WILL BE sent after all BeforeAttempt
	// handlers have finished, and its outcome field is nil.
	//
	// BeforeAttempt handlers may change the request's headers, thus
	// changing what is sent. Because the same request is resent on each
	// retry, such changes persist into later attempts.
	BeforeAttempt
	// AfterAttemptTimeout identifies the event that occurs after an
	// attempt failed because of a timeout error.
	//
	// When Client fires AfterAttemptTimeout, the execution's error
	// field is set to the timeout error, and its attempt timeout counter
	// has been incremented.
	AfterAttemptTimeout
	// AfterAttempt identifies the event that occurs after an attempt is
	// concluded, regardless of whether it concluded successfully or not.
	//
	// When Client fires AfterAttempt, the execution's outcome field is
	// set, and its error field holds the outcome's error, if any.
	//
	// Note that AfterAttempt always fires on every attempt, and that it
	// runs before the retry flow is consulted for a retry decision.
	AfterAttempt
	// BeforeWait identifies the event that occurs after the retry flow
	// authorized a retry, and before the wait preceding that retry.
	//
	// When Client fires BeforeWait, the execution's wait field holds the
	// delay about to be waited, and its attempt field still holds the
	// number of the attempt which is being retried.
	BeforeWait
	// AfterExecutionTimeout identifies the event that occurs after the
	// deadline on the execution's context is exceeded. It may be
	// detected at the end of an attempt or during a wait.
	//
	// When Client fires AfterExecutionTimeout, the execution's error
	// field is set to the context deadline error.
	//
	// Note that AfterExecutionTimeout always occurs after AfterAttempt,
	// even if the execution timeout was detected at the same time as an
	// attempt timeout.
	AfterExecutionTimeout
	// AfterExecutionEnd identifies the event that occurs after the
	// execution ends.
	//
	// When Client fires AfterExecutionEnd, the execution is in the same
	// state it was in after the final attempt (and last AfterAttempt
	// event) EXCEPT that the end time is set to the time the execution
	// ended, and the error field may have been set to a context error.
	AfterExecutionEnd
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	// numEvents provides the total number of events types as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"BeforeExecutionStart",
	"BeforeAttempt",
	"AfterAttemptTimeout",
	"AfterAttempt",
	"BeforeWait",
	"AfterExecutionTimeout",
	"AfterExecutionEnd",
}

// Events returns a slice containing all events which can occur in an
// execution by Client, in the order in which they would occur.
func Events() []Event {
	return []Event{
		BeforeExecutionStart,
		BeforeAttempt,
		AfterAttemptTimeout,
		AfterAttempt,
		BeforeWait,
		AfterExecutionTimeout,
		AfterExecutionEnd,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}
