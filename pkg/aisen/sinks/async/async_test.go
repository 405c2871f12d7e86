package async

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strongdm/http-observe/pkg/aisen"
)

// slowSink records events, optionally sleeping before each one.
type slowSink struct {
	mu     sync.Mutex
	events []aisen.ErrorEvent
	delay  time.Duration
	closed bool
}

func (s *slowSink) Write(ctx context.Context, event aisen.ErrorEvent) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *slowSink) Flush(ctx context.Context) error { return nil }

func (s *slowSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *slowSink) getEvents() []aisen.ErrorEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]aisen.ErrorEvent(nil), s.events...)
}

func (s *slowSink) ids() []aisen.EventID {
	var ids []aisen.EventID
	for _, e := range s.getEvents() {
		ids = append(ids, e.EventID)
	}
	return ids
}

// gatedSink holds its first write until release is closed.
type gatedSink struct {
	slowSink
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedSink() *gatedSink {
	return &gatedSink{started: make(chan struct{}), release: make(chan struct{})}
}

func (s *gatedSink) Write(ctx context.Context, event aisen.ErrorEvent) error {
	s.once.Do(func() {
		close(s.started)
		<-s.release
	})
	return s.slowSink.Write(ctx, event)
}

func evt(i int) aisen.ErrorEvent {
	return aisen.ErrorEvent{EventID: aisen.EventID(fmt.Sprintf("evt-%d", i))}
}

func TestAsyncSink_WriteDoesNotWaitForInner(t *testing.T) {
	inner := newGatedSink()
	sink := NewAsyncSink(inner)

	done := make(chan error, 1)
	go func() { done <- sink.Write(context.Background(), evt(0)) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Write blocked on the inner sink")
	}

	close(inner.release)
	require.NoError(t, sink.Close())
	assert.Equal(t, []aisen.EventID{"evt-0"}, inner.ids())
}

func TestAsyncSink_DropsOldestWhenFull(t *testing.T) {
	inner := newGatedSink()
	var dropped atomic.Int32
	sink := NewAsyncSink(inner,
		WithQueueSize(2),
		WithOnDropped(func(n int) { dropped.Add(int32(n)) }),
	)

	require.NoError(t, sink.Write(context.Background(), evt(0)))
	<-inner.started // evt-0 is out of the queue and held by inner

	for i := 1; i <= 4; i++ {
		require.NoError(t, sink.Write(context.Background(), evt(i)))
	}

	close(inner.release)
	require.NoError(t, sink.Close())

	assert.Equal(t, int32(2), dropped.Load())
	assert.Equal(t, []aisen.EventID{"evt-0", "evt-3", "evt-4"}, inner.ids())
}

func TestAsyncSink_FlushDeliversEverything(t *testing.T) {
	inner := &slowSink{delay: time.Millisecond}
	sink := NewAsyncSink(inner, WithQueueSize(100))
	defer sink.Close()

	for i := range 10 {
		require.NoError(t, sink.Write(context.Background(), evt(i)))
	}
	require.NoError(t, sink.Flush(context.Background()))

	assert.Len(t, inner.getEvents(), 10)
}

func TestAsyncSink_CloseDrainsAndClosesInner(t *testing.T) {
	inner := &slowSink{}
	sink := NewAsyncSink(inner)

	for i := range 5 {
		require.NoError(t, sink.Write(context.Background(), evt(i)))
	}
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close(), "second Close is a no-op")

	assert.Len(t, inner.getEvents(), 5)
	inner.mu.Lock()
	defer inner.mu.Unlock()
	assert.True(t, inner.closed)
}

// failingSink records whether writes carried a deadline and always fails.
type failingSink struct {
	slowSink
	mu          sync.Mutex
	hadDeadline bool
}

func (s *failingSink) Write(ctx context.Context, event aisen.ErrorEvent) error {
	_, ok := ctx.Deadline()
	s.mu.Lock()
	s.hadDeadline = ok
	s.mu.Unlock()
	return errors.New("collector unreachable")
}

func TestAsyncSink_WriteAfterClose_ReturnsErrClosed(t *testing.T) {
	sink := NewAsyncSink(&slowSink{})
	require.NoError(t, sink.Close())

	err := sink.Write(context.Background(), aisen.ErrorEvent{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestAsyncSink_LogsInnerFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	inner := &failingSink{}
	sink := NewAsyncSink(inner, WithLogger(logger))

	require.NoError(t, sink.Write(context.Background(), aisen.ErrorEvent{EventID: "0123456789abcdef0123456789abcdef"}))
	require.NoError(t, sink.Close())

	out := buf.String()
	assert.Contains(t, out, "error event delivery failed")
	assert.Contains(t, out, "0123456789abcdef0123456789abcdef")
	assert.Contains(t, out, "collector unreachable")

	inner.mu.Lock()
	defer inner.mu.Unlock()
	assert.True(t, inner.hadDeadline, "inner write should be bounded by the write timeout")
}

func TestAsyncSink_WriteTimeoutZero_NoDeadline(t *testing.T) {
	inner := &failingSink{}
	sink := NewAsyncSink(inner, WithWriteTimeout(0))

	require.NoError(t, sink.Write(context.Background(), aisen.ErrorEvent{}))
	require.NoError(t, sink.Close())

	inner.mu.Lock()
	defer inner.mu.Unlock()
	assert.False(t, inner.hadDeadline)
}

func TestAsyncSink_Flush_HonorsContext(t *testing.T) {
	inner := &slowSink{delay: 200 * time.Millisecond}
	sink := NewAsyncSink(inner)
	defer sink.Close()

	require.NoError(t, sink.Write(context.Background(), aisen.ErrorEvent{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, sink.Flush(ctx), context.DeadlineExceeded)
}

func TestAsyncSink_ConcurrentWritesThenFlush(t *testing.T) {
	inner := &slowSink{}
	sink := NewAsyncSink(inner, WithQueueSize(1000))
	defer sink.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sink.Write(context.Background(), aisen.ErrorEvent{})
		}()
	}
	wg.Wait()

	require.NoError(t, sink.Flush(context.Background()))
	assert.Len(t, inner.getEvents(), 50)
}
