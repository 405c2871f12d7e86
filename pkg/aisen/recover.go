package aisen

import (
	"context"
	"fmt"
	"runtime/debug"
)

// PanicError wraps a recovered panic value together with the stack of the
// panicking goroutine.
type PanicError struct {
	Value any
	Stack []byte
}

// NewPanicError captures the current stack for a recovered value.
// Call it from the deferred function that recovered.
func NewPanicError(recovered any) *PanicError {
	return &PanicError{
		Value: recovered,
		Stack: debug.Stack(),
	}
}

func (e *PanicError) Error() string {
	switch v := e.Value.(type) {
	case nil:
		return "panic: <nil>"
	case error:
		return "panic: " + v.Error()
	default:
		return fmt.Sprintf("panic: %v", v)
	}
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Recover is meant to be deferred directly:
//
//	defer aisen.Recover(ctx, collector)
//
// A panic is recorded to collector as a crash and not re-raised. The
// recovered value is returned, nil when nothing panicked.
func Recover(ctx context.Context, collector Collector) any {
	r := recover()
	if r != nil {
		NewHub(collector, nil).CaptureError(ctx, NewPanicError(r))
	}
	return r
}

// RecoverHub is Recover through the hub bound to ctx, so the event carries
// that hub's scope.
func RecoverHub(ctx context.Context) any {
	r := recover()
	if r != nil {
		CurrentHub(ctx).CaptureError(ctx, NewPanicError(r))
	}
	return r
}
