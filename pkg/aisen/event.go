// event.go defines the canonical error event data structure for aisen.

package aisen

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity indicates the severity level of an error event.
type Severity string

const (
	// SeverityWarning indicates a non-fatal issue that may need attention.
	SeverityWarning Severity = "warning"

	// SeverityError indicates a recoverable error that caused an operation to fail.
	SeverityError Severity = "error"

	// SeverityCrash indicates an unrecoverable error such as a panic.
	SeverityCrash Severity = "crash"
)

// EventID identifies a submitted event. It is the 32 character lowercase hex
// rendering of a random UUID, without dashes.
type EventID string

// NewEventID returns a fresh random event identifier.
func NewEventID() EventID {
	return EventID(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// IsZero reports whether the identifier is unset.
func (id EventID) IsZero() bool {
	return id == ""
}

func (id EventID) String() string {
	return string(id)
}

// Header is a single request header entry. Repeated header names appear as
// separate entries.
type Header struct {
	Name  string
	Value string
}

// RequestInfo is an immutable view of the HTTP request an event happened in.
type RequestInfo struct {
	// URL is the absolute request URL including the query string.
	URL string

	// Method is the HTTP method.
	Method string

	// Headers holds the request headers in iteration order.
	Headers []Header

	// RemoteAddr is the peer address. Empty unless PII collection is enabled.
	RemoteAddr string
}

// Clone returns a copy that shares no mutable state with r.
func (r RequestInfo) Clone() RequestInfo {
	if r.Headers != nil {
		headers := make([]Header, len(r.Headers))
		copy(headers, r.Headers)
		r.Headers = headers
	}
	return r
}

// HeaderValues returns every value recorded for name, compared case-insensitively.
func (r RequestInfo) HeaderValues(name string) []string {
	var values []string
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			values = append(values, h.Value)
		}
	}
	return values
}

// SDKPackage names a library that contributed to an event.
type SDKPackage struct {
	Name    string
	Version string
}

// SDKInfo describes the client library that produced an event.
type SDKInfo struct {
	Name     string
	Version  string
	Packages []SDKPackage
}

// Clone returns a deep copy of s. A nil receiver returns nil.
func (s *SDKInfo) Clone() *SDKInfo {
	if s == nil {
		return nil
	}
	out := *s
	if s.Packages != nil {
		out.Packages = make([]SDKPackage, len(s.Packages))
		copy(out.Packages, s.Packages)
	}
	return &out
}

// Exception is one link in an error chain.
type Exception struct {
	// Type is the Go type of the error value, e.g. "*fs.PathError".
	Type string

	// Message is the error text of this link.
	Message string
}

// ErrorEvent is the canonical error representation.
// Identity, timestamp and fingerprint are populated by the collector before
// the event reaches a sink.
type ErrorEvent struct {
	// Identity fields

	// EventID is a unique identifier for this error event.
	EventID EventID

	// Timestamp is when the error occurred.
	Timestamp time.Time

	// Fingerprint is a hash for grouping similar errors.
	Fingerprint string

	// Error details

	// Severity indicates the error severity (warning, error, crash).
	Severity Severity

	// ErrorType categorizes the error (panic, or the Go type of the error).
	ErrorType string

	// Message is the human-readable error message.
	Message string

	// StackTrace is the optional scrubbed stack trace.
	StackTrace string

	// Exceptions is the unwrapped error chain, outermost first.
	Exceptions []Exception

	// Scope context

	// Transaction names the unit of work, e.g. the request path.
	Transaction string

	// Tags are indexed key-value pairs copied from the scope.
	Tags map[string]string

	// Request describes the HTTP request, if the event happened in one.
	Request *RequestInfo

	// SDK describes the libraries that produced the event.
	SDK *SDKInfo

	// ContextID is the optional cxdb context ID for linking to related history.
	// Uses pointer to distinguish "not set" from "zero value".
	ContextID *uint64

	// System state

	// SystemState captures system metrics at error time.
	SystemState *SystemState

	// Arbitrary metadata

	// Metadata contains scrubbed key-value pairs for additional context.
	Metadata map[string]string
}
