// Package async decouples capture from delivery. Events go into a bounded
// queue drained by one goroutine; when the queue is full the oldest event is
// dropped so a request never waits on a slow sink.
package async

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strongdm/http-observe/pkg/aisen"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("async sink is closed")

const (
	defaultQueueSize    = 1000
	defaultWriteTimeout = 5 * time.Second
	flushPollInterval   = 5 * time.Millisecond
)

// AsyncSinkOption configures the async sink.
type AsyncSinkOption func(*asyncSink)

// WithQueueSize sets the maximum number of queued events (default: 1000).
func WithQueueSize(size int) AsyncSinkOption {
	return func(s *asyncSink) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWriteTimeout bounds each write to the inner sink (default: 5s).
// Zero disables the bound.
func WithWriteTimeout(d time.Duration) AsyncSinkOption {
	return func(s *asyncSink) {
		if d >= 0 {
			s.writeTimeout = d
		}
	}
}

// WithOnDropped sets a callback invoked when events are dropped due to queue overflow.
func WithOnDropped(fn func(count int)) AsyncSinkOption {
	return func(s *asyncSink) {
		s.onDropped = fn
	}
}

// WithLogger reports inner sink failures. Without it they are discarded.
func WithLogger(logger *slog.Logger) AsyncSinkOption {
	return func(s *asyncSink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type asyncSink struct {
	inner        aisen.Sink
	queueSize    int
	writeTimeout time.Duration
	onDropped    func(count int)
	logger       *slog.Logger

	// mu guards closed and keeps Write from sending on a closed queue.
	mu      sync.RWMutex
	closed  bool
	queue   chan aisen.ErrorEvent
	stopped chan struct{}

	// pending counts events queued or being written.
	pending   atomic.Int64
	closeOnce sync.Once
	closeErr  error
}

// NewAsyncSink wraps inner with a bounded queue. Write returns without
// waiting for inner; Flush and Close wait for everything queued so far.
func NewAsyncSink(inner aisen.Sink, opts ...AsyncSinkOption) aisen.Sink {
	s := &asyncSink{
		inner:        inner,
		queueSize:    defaultQueueSize,
		writeTimeout: defaultWriteTimeout,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		stopped:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.queue = make(chan aisen.ErrorEvent, s.queueSize)

	go s.run()

	return s
}

func (s *asyncSink) run() {
	defer close(s.stopped)
	for event := range s.queue {
		s.deliver(event)
		s.pending.Add(-1)
	}
}

func (s *asyncSink) deliver(event aisen.ErrorEvent) {
	ctx := context.Background()
	if s.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
	}
	if err := s.inner.Write(ctx, event); err != nil {
		s.logger.Warn("error event delivery failed",
			slog.String("event_id", event.EventID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// Write enqueues event. A full queue loses its oldest event instead.
func (s *asyncSink) Write(ctx context.Context, event aisen.ErrorEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	s.pending.Add(1)
	select {
	case s.queue <- event:
		return nil
	default:
	}

	select {
	case <-s.queue:
		s.pending.Add(-1)
		s.dropped(1)
	default:
		// drained by run in the meantime
	}

	select {
	case s.queue <- event:
	default:
		s.pending.Add(-1)
		s.dropped(1)
	}
	return nil
}

func (s *asyncSink) dropped(n int) {
	if s.onDropped != nil {
		s.onDropped(n)
	}
}

// Flush waits until every event written before the call has reached inner,
// then flushes inner.
func (s *asyncSink) Flush(ctx context.Context) error {
	ticker := time.NewTicker(flushPollInterval)
	defer ticker.Stop()

	for s.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return s.inner.Flush(ctx)
}

// Close delivers the remaining queue and closes inner.
func (s *asyncSink) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()

		<-s.stopped
		s.closeErr = s.inner.Close()
	})
	return s.closeErr
}
