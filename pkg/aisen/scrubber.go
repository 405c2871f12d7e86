package aisen

import (
	"net/url"
	"regexp"
	"strings"
)

// Redacted replaces any value the scrubber removes.
const Redacted = "[REDACTED]"

// ScrubberConfig controls what a Scrubber removes.
type ScrubberConfig struct {
	// HeaderAllowlist names headers that are never redacted, compared
	// case-insensitively.
	HeaderAllowlist []string

	// SensitiveKeys extends the built-in substrings that mark a header,
	// query parameter or metadata key as secret.
	SensitiveKeys []string

	MaxMessageSize       int
	MaxStackTraceSize    int
	MaxHeaderValueSize   int
	MaxMetadataValueSize int
	MaxURLSize           int

	// ScrubMessages applies the secret and PII patterns to error messages.
	ScrubMessages bool
}

// DefaultScrubberConfig returns production-safe defaults.
func DefaultScrubberConfig() ScrubberConfig {
	return ScrubberConfig{
		MaxMessageSize:       4096,
		MaxStackTraceSize:    32768,
		MaxHeaderValueSize:   8192,
		MaxMetadataValueSize: 1024,
		MaxURLSize:           8192,
		ScrubMessages:        true,
	}
}

var messageScrubPatterns = []*regexp.Regexp{
	// credentials in key=value or header form
	regexp.MustCompile(`(?i)(api[_-]?key|token)[=:\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)(authorization|bearer)[=:\s]+['"]?[\w\-\.]+['"]?[\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)(password|passwd|secret|credential)[=:\s]+['"]?[^\s'"",]+['"]?`),

	// well-known token shapes
	regexp.MustCompile(`(?i)sk-[a-zA-Z0-9_-]{20,}`),
	regexp.MustCompile(`(?i)gh[po]_[a-zA-Z0-9]{36}`),
	regexp.MustCompile(`(?i)github_pat_[a-zA-Z0-9_]{22,}`),
	regexp.MustCompile(`(?i)xox[baprs]-[a-zA-Z0-9\-]{10,}`),
	regexp.MustCompile(`(?i)eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),

	// connection strings with inline passwords, e.g. postgres://user:pw@host
	regexp.MustCompile(`(?i)\b([a-z][a-z0-9+.-]*://[^:/\s]+):[^@/\s]+@`),

	// PII
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),
}

var (
	pathNormalizationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/home/[^/]+/`),
		regexp.MustCompile(`/Users/[^/]+/`),
		regexp.MustCompile(`C:\\Users\\[^\\]+\\`),
		regexp.MustCompile(`/tmp/[^/]+/`),
	}
	addressPattern = regexp.MustCompile(`0x[0-9a-fA-F]+`)
)

// Substrings (lowercase) marking a key as secret.
var sensitiveKeyPatterns = []string{
	"token",
	"key",
	"secret",
	"password",
	"passwd",
	"credential",
	"auth",
	"cookie",
	"session",
	"signature",
}

// Scrubber redacts secrets and PII from events before they reach a sink.
type Scrubber struct {
	cfg       ScrubberConfig
	sensitive []string
}

// NewScrubber creates a scrubber with the given configuration.
func NewScrubber(cfg ScrubberConfig) *Scrubber {
	sensitive := append([]string(nil), sensitiveKeyPatterns...)
	for _, k := range cfg.SensitiveKeys {
		if k != "" {
			sensitive = append(sensitive, strings.ToLower(k))
		}
	}
	return &Scrubber{cfg: cfg, sensitive: sensitive}
}

// ScrubEvent returns a copy of event with every free-text and request field
// scrubbed. Shared slices and maps of the input are not modified.
func (s *Scrubber) ScrubEvent(event ErrorEvent) ErrorEvent {
	event.Message = s.ScrubMessage(event.Message)
	event.StackTrace = s.ScrubStackTrace(event.StackTrace)
	event.Metadata = s.ScrubMetadata(event.Metadata)

	if event.Exceptions != nil {
		exceptions := make([]Exception, len(event.Exceptions))
		for i, ex := range event.Exceptions {
			ex.Message = s.ScrubMessage(ex.Message)
			exceptions[i] = ex
		}
		event.Exceptions = exceptions
	}

	if event.Request != nil {
		req := s.ScrubRequest(*event.Request)
		event.Request = &req
	}
	return event
}

// ScrubMessage removes secret and PII patterns from msg and bounds its size.
func (s *Scrubber) ScrubMessage(msg string) string {
	if !s.cfg.ScrubMessages {
		return msg
	}

	msg = truncateWithMarker(msg, s.cfg.MaxMessageSize)
	for _, pattern := range messageScrubPatterns {
		msg = pattern.ReplaceAllString(msg, Redacted)
	}
	return msg
}

// ScrubMetadata redacts sensitive keys and bounds the remaining values.
func (s *Scrubber) ScrubMetadata(meta map[string]string) map[string]string {
	if meta == nil {
		return nil
	}

	result := make(map[string]string, len(meta))
	for key, value := range meta {
		if s.isSensitiveKey(key) {
			result[key] = Redacted
			continue
		}
		result[key] = truncateWithMarker(value, s.cfg.MaxMetadataValueSize)
	}
	return result
}

// ScrubStackTrace strips user directories and pointer values and bounds the
// trace size.
func (s *Scrubber) ScrubStackTrace(trace string) string {
	if trace == "" {
		return trace
	}

	for _, pattern := range pathNormalizationPatterns {
		trace = pattern.ReplaceAllString(trace, "/[PATH]/")
	}
	trace = addressPattern.ReplaceAllString(trace, "0x...")

	return truncateWithMarker(trace, s.cfg.MaxStackTraceSize)
}

// ScrubRequest scrubs the URL and headers of req. RemoteAddr is left alone;
// whether to collect it at all is decided by SendDefaultPII.
func (s *Scrubber) ScrubRequest(req RequestInfo) RequestInfo {
	req.URL = s.ScrubURL(req.URL)
	req.Headers = s.ScrubHeaders(req.Headers)
	return req
}

// ScrubURL redacts URL passwords and the values of sensitive query
// parameters. A URL that does not parse is replaced entirely.
func (s *Scrubber) ScrubURL(raw string) string {
	if raw == "" {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Redacted
	}

	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), Redacted)
	}

	if u.RawQuery != "" {
		q := u.Query()
		changed := false
		for key, values := range q {
			if !s.isSensitiveKey(key) {
				continue
			}
			for i := range values {
				values[i] = Redacted
			}
			changed = true
		}
		if changed {
			u.RawQuery = q.Encode()
		}
	}

	// url escapes the brackets of the placeholder
	out := strings.ReplaceAll(u.String(), url.QueryEscape(Redacted), Redacted)
	return truncateWithMarker(out, s.cfg.MaxURLSize)
}

// ScrubHeaders redacts values of sensitive request headers. Header order and
// repeated names are preserved. A nil slice is returned unchanged.
func (s *Scrubber) ScrubHeaders(headers []Header) []Header {
	if headers == nil {
		return nil
	}

	result := make([]Header, len(headers))
	for i, h := range headers {
		value := h.Value
		if !s.isAllowedHeader(h.Name) && s.isSensitiveKey(h.Name) {
			value = Redacted
		}
		result[i] = Header{Name: h.Name, Value: truncateWithMarker(value, s.cfg.MaxHeaderValueSize)}
	}
	return result
}

func (s *Scrubber) isAllowedHeader(name string) bool {
	for _, allowed := range s.cfg.HeaderAllowlist {
		if strings.EqualFold(allowed, name) {
			return true
		}
	}
	return false
}

func (s *Scrubber) isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, pattern := range s.sensitive {
		if strings.Contains(key, pattern) {
			return true
		}
	}
	return false
}

// truncateWithMarker cuts s to maxLen bytes, ending in a marker. A
// non-positive maxLen leaves s unbounded.
func truncateWithMarker(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	const marker = "...[TRUNCATED]"
	if maxLen <= len(marker) {
		return marker[:maxLen]
	}
	return s[:maxLen-len(marker)] + marker
}
