// convert.go turns Go errors into ErrorEvents.

package aisen

import (
	"fmt"
	"runtime/debug"
)

// maxChainDepth bounds error chain walking for cyclic or very deep chains.
const maxChainDepth = 32

// EventFromError builds an ErrorEvent describing err.
//
// The error chain is flattened into Exceptions, outermost first, following
// both Unwrap() error and Unwrap() []error. A PanicError among the walked links
// marks the event as a crash and supplies the panic stack; otherwise the
// current goroutine stack is recorded.
func EventFromError(err error) ErrorEvent {
	chain, panicErr := exceptionChain(err)
	event := ErrorEvent{
		Severity:   SeverityError,
		ErrorType:  typeName(err),
		Message:    errorMessage(err),
		Exceptions: chain,
	}

	if panicErr != nil {
		event.Severity = SeverityCrash
		event.ErrorType = "panic"
		event.StackTrace = string(panicErr.Stack)
	} else {
		event.StackTrace = string(debug.Stack())
	}

	return event
}

// exceptionChain walks err breadth-first and records each link once. It
// also returns the first *PanicError met on the way. The walk stops after
// maxChainDepth links, so self-referencing chains terminate.
func exceptionChain(err error) ([]Exception, *PanicError) {
	var (
		chain    []Exception
		panicErr *PanicError
	)
	queue := []error{err}
	for len(queue) > 0 && len(chain) < maxChainDepth {
		current := queue[0]
		queue = queue[1:]
		if current == nil {
			continue
		}

		chain = append(chain, Exception{
			Type:    typeName(current),
			Message: errorMessage(current),
		})
		if p, ok := current.(*PanicError); ok && panicErr == nil {
			panicErr = p
		}

		switch u := current.(type) {
		case interface{ Unwrap() error }:
			queue = append(queue, u.Unwrap())
		case interface{ Unwrap() []error }:
			queue = append(queue, u.Unwrap()...)
		}
	}
	return chain, panicErr
}

func typeName(err error) string {
	if err == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", err)
}

func errorMessage(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}
