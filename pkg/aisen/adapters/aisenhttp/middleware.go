// middleware.go implements Middleware, which gives every request its own
// reporting hub and captures server errors returned by the handler chain.

package aisenhttp

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"github.com/strongdm/http-observe/pkg/aisen"
	"github.com/strongdm/http-observe/pkg/aisen/httpx"
)

// EventIDHeader is the response header that carries the captured event's ID.
const EventIDHeader = "X-Sentry-Event"

// Tags set on events captured by the middleware.
const (
	TagRoute      = aisen.TagRoute
	TagStatusCode = "http.status_code"
	TagTraceID    = "trace_id"
	TagSpanID     = "span_id"
)

// Option configures a Middleware.
type Option func(*Middleware)

// WithHub makes the middleware derive request hubs from hub instead of the
// default hub. A nil hub restores the default.
func WithHub(hub *aisen.Hub) Option {
	return func(m *Middleware) {
		m.hub = hub
	}
}

// WithDefaultHub makes the middleware derive request hubs from
// aisen.DefaultHub(). This is the default.
func WithDefaultHub() Option {
	return func(m *Middleware) {
		m.hub = nil
	}
}

// WithEmitHeader controls whether the ID of a captured event is written to
// the EventIDHeader response header. Off by default.
func WithEmitHeader(enabled bool) Option {
	return func(m *Middleware) {
		m.emitHeader = enabled
	}
}

// WithCaptureServerErrors controls whether 5xx errors are captured.
// On by default.
func WithCaptureServerErrors(enabled bool) Option {
	return func(m *Middleware) {
		m.captureServerErrors = enabled
	}
}

// WithRecoverPanics turns panics in the handler chain into 500 errors, which
// are then captured as crash events. Off by default, so panics propagate.
func WithRecoverPanics(enabled bool) Option {
	return func(m *Middleware) {
		m.recoverPanics = enabled
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Middleware) {
		m.logger = logger
	}
}

// WithErrorHandler sets the handler used by Handler and HandlerFunc to render
// errors. Defaults to httpx.DefaultErrorHandler.
func WithErrorHandler(eh httpx.ErrorHandler) Option {
	return func(m *Middleware) {
		m.errorHandler = eh
	}
}

// Middleware binds a fresh reporting hub to each request and reports server
// errors through it. It is immutable once built and safe for concurrent use.
type Middleware struct {
	hub                 *aisen.Hub
	emitHeader          bool
	captureServerErrors bool
	recoverPanics       bool
	logger              *slog.Logger
	errorHandler        httpx.ErrorHandler
}

// New creates a Middleware.
//
// Example:
//
//	mw := aisenhttp.New(aisenhttp.WithEmitHeader(true))
//	http.Handle("/orders/", mw.HandlerFunc(serveOrder))
func New(opts ...Option) *Middleware {
	m := &Middleware{
		captureServerErrors: true,
		logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
		errorHandler:        httpx.DefaultErrorHandler,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if m.errorHandler == nil {
		m.errorHandler = httpx.DefaultErrorHandler
	}
	return m
}

// Wrap returns a handler that runs next with a request-scoped hub bound to
// its context.
//
// If next returns an error with a 5xx status and a non-nil cause, the cause is
// captured through that hub and next's error is returned unchanged, so it
// renders exactly as it would without the middleware. Errors below 500, status-only errors and requests whose context is
// already done are passed through untouched.
func (m *Middleware) Wrap(next httpx.Handler) httpx.Handler {
	return httpx.HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		hub := m.parentHub().Clone()

		withPII := false
		if client := hub.Collector(); client != nil {
			withPII = client.Options().SendDefaultPII
		}

		transaction, snapshot := NewRequestSnapshot(r, withPII)
		hub.ConfigureScope(func(scope *aisen.Scope) {
			scope.SetTransaction(transaction)
			scope.AddEventProcessor(newRequestProcessor(snapshot))
		})

		ctx = aisen.WithHub(ctx, hub)
		err := m.serve(ctx, next, w, r.WithContext(ctx))
		if err == nil || !m.captureServerErrors || ctx.Err() != nil {
			return err
		}

		status, cause := httpx.TakeError(err)
		if !httpx.IsServerError(status) || cause == nil {
			return err
		}

		hub.ConfigureScope(func(scope *aisen.Scope) {
			existing := scope.Tags()
			for k, v := range captureTags(ctx, status) {
				if _, ok := existing[k]; !ok {
					scope.SetTag(k, v)
				}
			}
		})
		id := hub.CaptureError(ctx, cause)
		if id.IsZero() {
			return err
		}

		m.logger.Debug("captured server error",
			slog.String("event_id", id.String()),
			slog.Int("status", status),
			slog.String("transaction", transaction),
		)

		if m.emitHeader {
			w.Header().Set(EventIDHeader, id.String())
		}

		return err
	})
}

// Handler returns an http.Handler that serves next through Wrap and renders
// returned errors with the configured error handler.
func (m *Middleware) Handler(next httpx.Handler) http.Handler {
	return httpx.New(m.Wrap(next), m.errorHandler)
}

// HandlerFunc is Handler for a function.
func (m *Middleware) HandlerFunc(fn httpx.HandlerFunc) http.Handler {
	return m.Handler(fn)
}

func (m *Middleware) parentHub() *aisen.Hub {
	if m.hub != nil {
		return m.hub
	}
	return aisen.DefaultHub()
}

// serve calls next, converting a panic into a 500 error when recovery is on.
func (m *Middleware) serve(ctx context.Context, next httpx.Handler, w http.ResponseWriter, r *http.Request) (err error) {
	if m.recoverPanics {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				err = httpx.NewError(http.StatusInternalServerError, aisen.NewPanicError(v))
			}
		}()
	}
	return next.ServeHTTPContext(ctx, w, r)
}

// captureTags describes where the failure happened. The chi route pattern is
// complete once routing has finished, which is always the case here.
func captureTags(ctx context.Context, status int) map[string]string {
	tags := map[string]string{
		TagStatusCode: strconv.Itoa(status),
	}
	if rctx := chi.RouteContext(ctx); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			tags[TagRoute] = pattern
		}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		tags[TagTraceID] = sc.TraceID().String()
		tags[TagSpanID] = sc.SpanID().String()
	}
	return tags
}
