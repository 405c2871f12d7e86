// Package multi fans one event stream out to several sinks, e.g. a local
// store plus a remote collector.
package multi

import (
	"context"
	"errors"
	"fmt"

	"github.com/strongdm/http-observe/pkg/aisen"
)

type multiSink struct {
	sinks []aisen.Sink
}

// NewMultiSink writes every event to each of sinks in order. Nil sinks are
// skipped and nested multi sinks are flattened.
func NewMultiSink(sinks ...aisen.Sink) aisen.Sink {
	m := &multiSink{}
	for _, s := range sinks {
		switch s := s.(type) {
		case nil:
		case *multiSink:
			m.sinks = append(m.sinks, s.sinks...)
		default:
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// each calls fn for every sink. A failing sink does not stop the rest; the
// failures are joined and labelled with the sink's position.
func (m *multiSink) each(fn func(aisen.Sink) error) error {
	var errs []error
	for i, s := range m.sinks {
		if err := fn(s); err != nil {
			errs = append(errs, fmt.Errorf("sink %d (%T): %w", i, s, err))
		}
	}
	return errors.Join(errs...)
}

func (m *multiSink) Write(ctx context.Context, event aisen.ErrorEvent) error {
	return m.each(func(s aisen.Sink) error { return s.Write(ctx, event) })
}

func (m *multiSink) Flush(ctx context.Context) error {
	return m.each(func(s aisen.Sink) error { return s.Flush(ctx) })
}

func (m *multiSink) Close() error {
	return m.each(func(s aisen.Sink) error { return s.Close() })
}
