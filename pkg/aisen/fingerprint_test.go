package aisen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_Stability(t *testing.T) {
	event := ErrorEvent{
		EventID:     "evt-123",
		Timestamp:   time.Now(),
		Severity:    SeverityError,
		ErrorType:   "*net.OpError",
		Message:     "connection timed out",
		Transaction: "/orders/42",
		Request:     &RequestInfo{Method: "GET"},
		StackTrace: `goroutine 1 [running]:
main.doSomething()
	/app/main.go:42 +0x123
main.helper()
	/app/main.go:30 +0x456
main.main()
	/app/main.go:10 +0x789`,
	}

	fp1 := Fingerprint(event)
	fp2 := Fingerprint(event)

	if fp1 != fp2 {
		t.Errorf("Same event produced different fingerprints: %q vs %q", fp1, fp2)
	}

	// Should be 32 hex characters (16 bytes)
	if len(fp1) != 32 {
		t.Errorf("Fingerprint length = %d, want 32", len(fp1))
	}
}

func TestFingerprint_DifferentLineNumbers_SameFingerprint(t *testing.T) {
	event1 := ErrorEvent{
		ErrorType:   "panic",
		Transaction: "/orders",
		StackTrace: `goroutine 1 [running]:
main.doSomething()
	/app/main.go:42 +0x123
main.main()
	/app/main.go:10 +0x456`,
	}

	event2 := ErrorEvent{
		ErrorType:   "panic",
		Transaction: "/orders",
		StackTrace: `goroutine 1 [running]:
main.doSomething()
	/app/main.go:99 +0xabc
main.main()
	/app/main.go:55 +0xdef`,
	}

	fp1 := Fingerprint(event1)
	fp2 := Fingerprint(event2)

	if fp1 != fp2 {
		t.Errorf("Events differing only in line numbers should have same fingerprint: %q vs %q", fp1, fp2)
	}
}

func TestFingerprint_DifferentMemoryAddresses_SameFingerprint(t *testing.T) {
	event1 := ErrorEvent{
		ErrorType: "panic",
		StackTrace: `goroutine 1 [running]:
main.handler(0x1234abcd)
	/app/main.go:42 +0x100`,
	}

	event2 := ErrorEvent{
		ErrorType: "panic",
		StackTrace: `goroutine 1 [running]:
main.handler(0xdeadbeef)
	/app/main.go:42 +0x200`,
	}

	fp1 := Fingerprint(event1)
	fp2 := Fingerprint(event2)

	if fp1 != fp2 {
		t.Errorf("Events differing only in memory addresses should have same fingerprint: %q vs %q", fp1, fp2)
	}
}

func TestFingerprint_DifferentErrorChain_DifferentFingerprint(t *testing.T) {
	event1 := ErrorEvent{
		ErrorType:  "*fmt.wrapError",
		Exceptions: []Exception{{Type: "*fmt.wrapError"}, {Type: "*errors.errorString"}},
	}

	event2 := ErrorEvent{
		ErrorType:  "*fmt.wrapError",
		Exceptions: []Exception{{Type: "*fmt.wrapError"}, {Type: "*fs.PathError"}},
	}

	if Fingerprint(event1) == Fingerprint(event2) {
		t.Error("Events with different error chains should have different fingerprints")
	}
}

func TestFingerprint_DifferentTransaction_DifferentFingerprint(t *testing.T) {
	event1 := ErrorEvent{
		ErrorType:   "error",
		Transaction: "/orders",
	}

	event2 := ErrorEvent{
		ErrorType:   "error",
		Transaction: "/users",
	}

	if Fingerprint(event1) == Fingerprint(event2) {
		t.Error("Events with different transactions should have different fingerprints")
	}
}

func TestFingerprint_DifferentErrorType_DifferentFingerprint(t *testing.T) {
	event1 := ErrorEvent{
		ErrorType:   "timeout",
		Transaction: "/orders",
	}

	event2 := ErrorEvent{
		ErrorType:   "panic",
		Transaction: "/orders",
	}

	if Fingerprint(event1) == Fingerprint(event2) {
		t.Error("Events with different error types should have different fingerprints")
	}
}

func TestFingerprint_DifferentRequestMethod_DifferentFingerprint(t *testing.T) {
	event1 := ErrorEvent{
		ErrorType:   "error",
		Transaction: "/orders",
		Request:     &RequestInfo{Method: "GET"},
	}

	event2 := ErrorEvent{
		ErrorType:   "error",
		Transaction: "/orders",
		Request:     &RequestInfo{Method: "POST"},
	}

	if Fingerprint(event1) == Fingerprint(event2) {
		t.Error("Events with different request methods should have different fingerprints")
	}
}

func TestFingerprint_RequestURLIgnored(t *testing.T) {
	event1 := ErrorEvent{
		ErrorType:   "error",
		Transaction: "/orders",
		Request:     &RequestInfo{Method: "GET", URL: "http://example.com/orders?page=1"},
	}

	event2 := ErrorEvent{
		ErrorType:   "error",
		Transaction: "/orders",
		Request:     &RequestInfo{Method: "GET", URL: "http://example.com/orders?page=2"},
	}

	if Fingerprint(event1) != Fingerprint(event2) {
		t.Error("Events differing only in request URL should have same fingerprint")
	}
}

func TestFingerprint_EmptyEvent(t *testing.T) {
	event := ErrorEvent{}
	fp := Fingerprint(event)

	// Should still produce a valid fingerprint
	if len(fp) != 32 {
		t.Errorf("Fingerprint length = %d, want 32", len(fp))
	}
}

func TestFingerprint_MessageIgnored(t *testing.T) {
	// Messages often contain variable data, so they should not affect fingerprint
	event1 := ErrorEvent{
		ErrorType:   "error",
		Transaction: "/users/123",
		Message:     "Error for user 123",
	}

	event2 := ErrorEvent{
		ErrorType:   "error",
		Transaction: "/users/123",
		Message:     "Error for user 456",
	}

	fp1 := Fingerprint(event1)
	fp2 := Fingerprint(event2)

	if fp1 != fp2 {
		t.Errorf("Events differing only in message should have same fingerprint: %q vs %q", fp1, fp2)
	}
}

func TestNormalizeStackTrace(t *testing.T) {
	input := `goroutine 1 [running]:
main.doSomething(0x1234)
	/app/main.go:42 +0x123
pkg.helper()
	/app/pkg/helper.go:20 +0x456
runtime.main()
	/usr/local/go/src/runtime/proc.go:250 +0x789
another.function()
	/app/another.go:100 +0xabc`

	frames := normalizeStackTrace(input)

	// Should return first 3 function names
	if len(frames) != 3 {
		t.Errorf("normalizeStackTrace returned %d frames, want 3", len(frames))
	}

	expected := []string{"main.doSomething", "pkg.helper", "runtime.main"}
	for i, want := range expected {
		if i < len(frames) && frames[i] != want {
			t.Errorf("frame[%d] = %q, want %q", i, frames[i], want)
		}
	}
}

func TestFingerprint_RouteTagGroupsRequests(t *testing.T) {
	event1 := ErrorEvent{
		ErrorType:   "*errors.errorString",
		Transaction: "GET /orders/42",
		Tags:        map[string]string{TagRoute: "/orders/{id}"},
	}
	event2 := ErrorEvent{
		ErrorType:   "*errors.errorString",
		Transaction: "GET /orders/77",
		Tags:        map[string]string{TagRoute: "/orders/{id}"},
	}

	assert.Equal(t, Fingerprint(event1), Fingerprint(event2))
}

func TestNormalizeTransaction(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"GET /orders/42", "GET /orders/:id"},
		{"GET /orders/42/items/7", "GET /orders/:id/items/:id"},
		{"DELETE /users/550e8400-e29b-41d4-a716-446655440000", "DELETE /users/:id"},
		{"GET /objects/507f1f77bcf86cd799439011", "GET /objects/:id"},
		{"GET /orders/latest", "GET /orders/latest"},
		{"/orders/42", "/orders/:id"},
		{"job:nightly-report", "job:nightly-report"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeTransaction(tt.in))
		})
	}
}

func TestNormalizeStackTrace_MethodFrames(t *testing.T) {
	input := `goroutine 7 [running]:
panic({0x1029f40?, 0x14000114ea0?})
	/usr/local/go/src/runtime/panic.go:770 +0x124
main.(*handlers).crash(0x14000010018, {0x102a1f0, 0x140001a6000}, {0x102a2b8, 0x1400017e000}, 0x14000188000)
	/app/handlers.go:57 +0x2c
github.com/acme/shop/httpx.HandlerFunc.ServeHTTPContext(...)
	/app/httpx/httpx.go:20
created by net/http.(*Server).Serve in goroutine 1
	/usr/local/go/src/net/http/server.go:3285 +0x3f4`

	assert.Equal(t, []string{
		"main.(*handlers).crash",
		"github.com/acme/shop/httpx.HandlerFunc.ServeHTTPContext",
	}, normalizeStackTrace(input))
}
