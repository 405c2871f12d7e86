// Package httpx provides an error-returning handler chain on top of net/http.
//
// Handlers return an error instead of writing failure responses themselves.
// An *Error carries the status code and the underlying failure, so middleware
// further up the chain can inspect both before the error is rendered.
package httpx

import (
	"context"
	"net/http"
)

// Handler is a handler that takes a context.Context as the first argument and
// reports failures by returning an error.
type Handler interface {
	ServeHTTPContext(context.Context, http.ResponseWriter, *http.Request) error
}

// The HandlerFunc type is an adapter to allow the use of ordinary functions as
// httpx handlers.
type HandlerFunc func(context.Context, http.ResponseWriter, *http.Request) error

// ServeHTTPContext calls f(ctx, w, r).
func (f HandlerFunc) ServeHTTPContext(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return f(ctx, w, r)
}

// Error is a failure with an HTTP status code. Err may be nil when the failure
// was signalled by status alone.
type Error struct {
	Code int
	Err  error
}

// NewError returns an Error with the given status and cause.
func NewError(code int, err error) *Error {
	return &Error{Code: code, Err: err}
}

// Status returns an Error that carries a status code and no payload.
func Status(code int) *Error {
	return &Error{Code: code}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return http.StatusText(e.Code)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// maxUnwrap bounds the search for an *Error so cyclic chains terminate.
const maxUnwrap = 32

// TakeError splits err into its status code and payload.
//
// An *Error within the first maxUnwrap links of the chain yields its Code and
// Err. Any other non-nil error is treated as a 500 whose payload is err
// itself. A nil err yields (200, nil).
func TakeError(err error) (int, error) {
	if err == nil {
		return http.StatusOK, nil
	}
	if httpErr := findError(err); httpErr != nil {
		return httpErr.Code, httpErr.Err
	}
	return http.StatusInternalServerError, err
}

// findError is errors.As for *Error with a bounded breadth-first walk.
func findError(err error) *Error {
	queue := []error{err}
	for seen := 0; len(queue) > 0 && seen < maxUnwrap; seen++ {
		current := queue[0]
		queue = queue[1:]
		switch e := current.(type) {
		case nil:
			continue
		case *Error:
			return e
		case interface{ Unwrap() error }:
			queue = append(queue, e.Unwrap())
		case interface{ Unwrap() []error }:
			queue = append(queue, e.Unwrap()...)
		}
	}
	return nil
}

// StatusCode returns the status code err would be rendered with.
func StatusCode(err error) int {
	code, _ := TakeError(err)
	return code
}

// IsServerError reports whether code is in the 5xx class.
func IsServerError(code int) bool {
	return code >= 500 && code <= 599
}

// ErrorHandler renders an error returned by a Handler.
type ErrorHandler func(error, http.ResponseWriter, *http.Request)

// DefaultErrorHandler responds with the error's status code and message.
func DefaultErrorHandler(err error, w http.ResponseWriter, r *http.Request) {
	code := StatusCode(err)
	http.Error(w, err.Error(), code)
}

// New returns an http.Handler that serves h and renders any returned error
// with eh. A nil eh uses DefaultErrorHandler.
func New(h Handler, eh ErrorHandler) http.Handler {
	if eh == nil {
		eh = DefaultErrorHandler
	}
	return &server{handler: h, errorHandler: eh}
}

type server struct {
	handler      Handler
	errorHandler ErrorHandler
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := s.handler.ServeHTTPContext(r.Context(), w, r); err != nil {
		s.errorHandler(err, w, r)
	}
}

// Adapt wraps a plain http.Handler. The returned Handler never fails.
func Adapt(h http.Handler) Handler {
	return HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		h.ServeHTTP(w, r.WithContext(ctx))
		return nil
	})
}
