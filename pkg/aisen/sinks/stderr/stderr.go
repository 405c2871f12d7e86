// Package stderr prints error events as readable text, for local runs and
// debugging.
package stderr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/strongdm/http-observe/pkg/aisen"
)

// StderrSinkOption configures the stderr sink.
type StderrSinkOption func(*stderrSink)

// WithVerbose adds tags and the stack trace to each entry.
func WithVerbose() StderrSinkOption {
	return func(s *stderrSink) { s.verbose = true }
}

// WithNoColor disables ANSI colors even when stderr is a terminal.
func WithNoColor() StderrSinkOption {
	return func(s *stderrSink) { s.noColor = true }
}

// WithWriter sends output to w instead of os.Stderr.
func WithWriter(w io.Writer) StderrSinkOption {
	return func(s *stderrSink) { s.out = w }
}

type stderrSink struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	noColor bool
}

// NewStderrSink creates a sink that writes to stderr.
func NewStderrSink(opts ...StderrSinkOption) aisen.Sink {
	s := &stderrSink{out: os.Stderr}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const indent = "        "

// Write prints one entry:
//
//	[AISEN] 2025-01-26T15:04:05Z ERROR *errors.errorString in GET /orders/{id} [<event id>]
//	        Message: ...
func (s *stderrSink) Write(ctx context.Context, event aisen.ErrorEvent) error {
	var b bytes.Buffer

	b.WriteString("[AISEN] ")
	b.WriteString(event.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	b.WriteString(" ")
	b.WriteString(s.severityColor(event.Severity).Sprint(strings.ToUpper(string(event.Severity))))
	b.WriteString(" ")
	b.WriteString(event.ErrorType)
	if where := location(event); where != "" {
		b.WriteString(" in ")
		b.WriteString(where)
	}
	if !event.EventID.IsZero() {
		fmt.Fprintf(&b, " [%s]", event.EventID)
	}
	b.WriteString("\n")

	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s%s: %s\n", indent, name, value)
		}
	}
	field("Message", event.Message)
	field("Fingerprint", event.Fingerprint)
	if event.Request != nil {
		field("URL", event.Request.URL)
	}
	if event.ContextID != nil {
		field("Context", fmt.Sprint(*event.ContextID))
	}
	// Exceptions[0] is the error already named in the header line.
	for _, exc := range event.Exceptions[min(1, len(event.Exceptions)):] {
		field("Caused by", exc.Type+": "+exc.Message)
	}

	if s.verbose {
		if len(event.Tags) > 0 {
			keys := make([]string, 0, len(event.Tags))
			for k := range event.Tags {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			b.WriteString(indent + "Tags:\n")
			for _, k := range keys {
				fmt.Fprintf(&b, "%s  %s=%s\n", indent, k, event.Tags[k])
			}
		}
		if event.StackTrace != "" {
			b.WriteString(indent + "Stack trace:\n")
			for _, line := range strings.Split(event.StackTrace, "\n") {
				fmt.Fprintf(&b, "%s  %s\n", indent, line)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.out.Write(b.Bytes())
	return err
}

// location prefers "METHOD /route/{pattern}" and falls back to the transaction.
func location(event aisen.ErrorEvent) string {
	where := event.Transaction
	if route := event.Tags[aisen.TagRoute]; route != "" {
		where = route
	}
	if where == "" {
		return ""
	}
	if event.Request != nil && event.Request.Method != "" && !strings.HasPrefix(where, event.Request.Method+" ") {
		return event.Request.Method + " " + where
	}
	return where
}

func (s *stderrSink) severityColor(sev aisen.Severity) *color.Color {
	var c *color.Color
	switch sev {
	case aisen.SeverityCrash:
		c = color.New(color.FgRed, color.Bold)
	case aisen.SeverityError:
		c = color.New(color.FgRed)
	case aisen.SeverityWarning:
		c = color.New(color.FgYellow)
	default:
		c = color.New(color.Reset)
	}
	if s.noColor {
		c.DisableColor()
	}
	return c
}

func (s *stderrSink) Flush(ctx context.Context) error { return nil }

func (s *stderrSink) Close() error { return nil }
