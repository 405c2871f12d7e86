package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTakeError(t *testing.T) {
	cause := errors.New("db unavailable")

	tests := []struct {
		name        string
		err         error
		wantCode    int
		wantPayload error
	}{
		{"nil", nil, http.StatusOK, nil},
		{"plain error", cause, http.StatusInternalServerError, cause},
		{"http error", NewError(http.StatusServiceUnavailable, cause), http.StatusServiceUnavailable, cause},
		{"status only", Status(http.StatusBadGateway), http.StatusBadGateway, nil},
		{"wrapped http error", fmt.Errorf("handler: %w", NewError(http.StatusNotFound, cause)), http.StatusNotFound, cause},
		{"joined http error", errors.Join(errors.New("audit"), NewError(http.StatusConflict, cause)), http.StatusConflict, cause},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, payload := TakeError(tt.err)
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if payload != tt.wantPayload {
				t.Errorf("payload = %v, want %v", payload, tt.wantPayload)
			}
		})
	}
}

func TestError_Message(t *testing.T) {
	if got := Status(http.StatusBadGateway).Error(); got != "Bad Gateway" {
		t.Errorf("Status(502).Error() = %q, want %q", got, "Bad Gateway")
	}
	if got := NewError(500, errors.New("boom")).Error(); got != "boom" {
		t.Errorf("NewError(500, boom).Error() = %q, want boom", got)
	}
}

func TestIsServerError(t *testing.T) {
	for code, want := range map[int]bool{200: false, 404: false, 499: false, 500: true, 503: true, 599: true, 600: false} {
		if got := IsServerError(code); got != want {
			t.Errorf("IsServerError(%d) = %v, want %v", code, got, want)
		}
	}
}

func TestNew_RendersErrors(t *testing.T) {
	h := New(HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return NewError(http.StatusServiceUnavailable, errors.New("try later"))
	}), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if body := rec.Body.String(); body != "try later\n" {
		t.Errorf("body = %q, want %q", body, "try later\n")
	}
}

func TestNew_CustomErrorHandler(t *testing.T) {
	var handled error
	h := New(HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errors.New("boom")
	}), func(err error, w http.ResponseWriter, r *http.Request) {
		handled = err
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if handled == nil || handled.Error() != "boom" {
		t.Errorf("error handler got %v, want boom", handled)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
}

func TestAdapt(t *testing.T) {
	type ctxKey struct{}
	var seen any
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Context().Value(ctxKey{})
		w.WriteHeader(http.StatusAccepted)
	})

	ctx := context.WithValue(context.Background(), ctxKey{}, "bound")
	rec := httptest.NewRecorder()
	err := Adapt(inner).ServeHTTPContext(ctx, rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if err != nil {
		t.Fatalf("Adapt returned error: %v", err)
	}
	if seen != "bound" {
		t.Errorf("inner handler context value = %v, want bound", seen)
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
}

// loopError unwraps to itself.
type loopError struct{}

func (e *loopError) Error() string { return "loop" }
func (e *loopError) Unwrap() error { return e }

func TestTakeError_CyclicChain(t *testing.T) {
	err := &loopError{}

	done := make(chan int, 1)
	go func() {
		code, _ := TakeError(err)
		done <- code
	}()

	select {
	case code := <-done:
		if code != http.StatusInternalServerError {
			t.Errorf("code = %d, want %d", code, http.StatusInternalServerError)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("TakeError did not return for a cyclic error chain")
	}
}
