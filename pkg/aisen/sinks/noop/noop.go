// Package noop provides a sink that drops events. It stands in when reporting
// is configured without any destination.
package noop

import (
	"context"
	"sync/atomic"

	"github.com/strongdm/http-observe/pkg/aisen"
)

// Sink discards events and counts them.
type Sink struct {
	discarded atomic.Int64
}

// NewNoopSink returns an empty Sink.
func NewNoopSink() *Sink {
	return &Sink{}
}

func (s *Sink) Write(ctx context.Context, event aisen.ErrorEvent) error {
	s.discarded.Add(1)
	return nil
}

func (s *Sink) Flush(ctx context.Context) error { return nil }

func (s *Sink) Close() error { return nil }

// Discarded reports how many events were written.
func (s *Sink) Discarded() int64 {
	return s.discarded.Load()
}
