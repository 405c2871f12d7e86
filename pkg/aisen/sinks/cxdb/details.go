package cxdb

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/strongdm/http-observe/pkg/aisen"
)

const maxTitleLen = 100

// title reads "GET /orders/42: *errors.errorString: load order 42: ...".
func title(event aisen.ErrorEvent) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{event.Transaction, event.ErrorType, event.Message} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	t := strings.Join(parts, ": ")
	if utf8.RuneCountInString(t) <= maxTitleLen {
		return t
	}
	runes := []rune(t)
	return string(runes[:maxTitleLen-3]) + "..."
}

type exceptionDetails struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type requestDetails struct {
	URL        string      `json:"url"`
	Method     string      `json:"method"`
	Headers    [][2]string `json:"headers,omitempty"`
	RemoteAddr string      `json:"remote_addr,omitempty"`
}

type sdkDetails struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Packages []string `json:"packages"`
}

type systemDetails struct {
	MemoryBytes    int64  `json:"memory_bytes"`
	GoroutineCount int    `json:"goroutine_count"`
	NumCPU         int    `json:"num_cpu"`
	GoVersion      string `json:"go_version"`
	UptimeMs       int64  `json:"uptime_ms"`
	HostName       string `json:"host_name"`
}

// eventDetails is the JSON body of the system item.
type eventDetails struct {
	EventID     string             `json:"event_id"`
	Severity    string             `json:"severity"`
	ErrorType   string             `json:"error_type"`
	Message     string             `json:"message"`
	Fingerprint string             `json:"fingerprint"`
	Transaction string             `json:"transaction"`
	StackTrace  string             `json:"stack_trace,omitempty"`
	Exceptions  []exceptionDetails `json:"exceptions,omitempty"`
	Request     *requestDetails    `json:"request,omitempty"`
	SDK         *sdkDetails        `json:"sdk,omitempty"`
	Tags        map[string]string  `json:"tags,omitempty"`
	ContextID   *uint64            `json:"context_id,omitempty"`
	SystemState *systemDetails     `json:"system_state,omitempty"`
	Metadata    map[string]string  `json:"metadata,omitempty"`
}

func details(event aisen.ErrorEvent) string {
	d := eventDetails{
		EventID:     event.EventID.String(),
		Severity:    string(event.Severity),
		ErrorType:   event.ErrorType,
		Message:     event.Message,
		Fingerprint: event.Fingerprint,
		Transaction: event.Transaction,
		StackTrace:  event.StackTrace,
		Tags:        event.Tags,
		ContextID:   event.ContextID,
		Metadata:    event.Metadata,
	}

	for _, exc := range event.Exceptions {
		d.Exceptions = append(d.Exceptions, exceptionDetails{Type: exc.Type, Message: exc.Message})
	}

	if r := event.Request; r != nil {
		d.Request = &requestDetails{URL: r.URL, Method: r.Method, RemoteAddr: r.RemoteAddr}
		for _, h := range r.Headers {
			d.Request.Headers = append(d.Request.Headers, [2]string{h.Name, h.Value})
		}
	}

	if sdk := event.SDK; sdk != nil {
		d.SDK = &sdkDetails{Name: sdk.Name, Version: sdk.Version, Packages: make([]string, 0, len(sdk.Packages))}
		for _, p := range sdk.Packages {
			d.SDK.Packages = append(d.SDK.Packages, p.Name+"@"+p.Version)
		}
	}

	if st := event.SystemState; st != nil {
		d.SystemState = &systemDetails{
			MemoryBytes:    st.MemoryBytes,
			GoroutineCount: st.GoroutineCount,
			NumCPU:         st.NumCPU,
			GoVersion:      st.GoVersion,
			UptimeMs:       st.UptimeMs,
			HostName:       st.HostName,
		}
	}

	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, "encode details: "+err.Error())
	}
	return string(b)
}
