package aisen

import "context"

// Sink receives recorded events after scrubbing and fingerprinting.
// Implementations must be safe for concurrent use; the middleware records
// from every request goroutine.
type Sink interface {
	Write(ctx context.Context, event ErrorEvent) error

	// Flush blocks until buffered events are delivered or ctx ends.
	Flush(ctx context.Context) error

	// Close releases resources. Writes after Close should fail.
	Close() error
}

// SinkFunc adapts a function to a Sink with no buffering and nothing to close.
type SinkFunc func(ctx context.Context, event ErrorEvent) error

func (f SinkFunc) Write(ctx context.Context, event ErrorEvent) error {
	return f(ctx, event)
}

func (f SinkFunc) Flush(ctx context.Context) error { return nil }

func (f SinkFunc) Close() error { return nil }

// discard is the sink of a collector built without WithSink.
var discard = SinkFunc(func(context.Context, ErrorEvent) error { return nil })
