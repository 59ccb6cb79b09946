// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryflow

import (
	"github.com/gogama/retryflow/request"
)

// HandlerGroup holds one handler chain per Event. Client runs the chain
// for an event each time the event occurs during an execution, in the
// order the handlers were pushed. The zero value has no handlers.
//
// Handlers must be pushed before the group is installed in a Client;
// PushBack is not safe to call while executions are running.
type HandlerGroup struct {
	handlers [][]Handler
}

// PushBack appends h to the chain for evt. It panics if h is nil or evt
// is not one of the values returned by Events.
func (g *HandlerGroup) PushBack(evt Event, h Handler) {
	if h == nil {
		panic("retryflow: nil handler")
	}

	if evt < 0 || int(evt) >= numEvents {
		panic("retryflow: invalid event")
	}

	if g.handlers == nil {
		g.handlers = make([][]Handler, numEvents)
	}

	g.handlers[evt] = append(g.handlers[evt], h)
}

func (g *HandlerGroup) run(evt Event, e *request.Execution) {
	i := int(evt)
	if i < len(g.handlers) {
		run(g.handlers[i], evt, e)
	}
}

func run(chain []Handler, evt Event, e *request.Execution) {
	for _, h := range chain {
		h.Handle(evt, e)
	}
}

// Handler observes an execution at one of its plug-in points. A handler
// may read the execution, store values on it with SetValue, or replace
// its context with SetContext before the first attempt. It must not
// modify the Outcome field, which the retry flow has already seen or is
// about to see.
type Handler interface {
	Handle(Event, *request.Execution)
}

// HandlerFunc lets a plain function serve as a Handler.
type HandlerFunc func(Event, *request.Execution)

// Handle calls f(evt, e).
func (f HandlerFunc) Handle(evt Event, e *request.Execution) {
	f(evt, e)
}
