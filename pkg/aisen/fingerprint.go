package aisen

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// TagRoute holds the matched route pattern, e.g. "/orders/{id}". When set it
// replaces the transaction in the fingerprint.
const TagRoute = "route"

// maxFingerprintFrames is how many leading stack frames take part in grouping.
const maxFingerprintFrames = 3

// Fingerprint returns a 32 hex character key that groups events with the
// same cause in the same place. It hashes the error type, the route or
// normalised transaction, the request method, the Go types of the error
// chain and the first stack frames. Messages, URLs, line numbers and
// addresses do not take part.
func Fingerprint(event ErrorEvent) string {
	parts := []string{event.ErrorType, groupingName(event)}
	if event.Request != nil {
		parts = append(parts, event.Request.Method)
	} else {
		parts = append(parts, "")
	}
	for _, exc := range event.Exceptions {
		parts = append(parts, exc.Type)
	}
	parts = append(parts, normalizeStackTrace(event.StackTrace)...)

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:16])
}

var (
	// path segments that identify a resource rather than a route
	idSegmentPattern = regexp.MustCompile(`^(\d+|[0-9a-fA-F]{8}-?[0-9a-fA-F]{4}-?[0-9a-fA-F]{4}-?[0-9a-fA-F]{4}-?[0-9a-fA-F]{12}|[0-9a-fA-F]{24,})$`)

	addrPattern = regexp.MustCompile(`\+?0x[0-9a-fA-F]+`)
)

// groupingName prefers the route tag. Without one, numeric and hex ID
// segments of the transaction path become ":id".
func groupingName(event ErrorEvent) string {
	if route := event.Tags[TagRoute]; route != "" {
		return route
	}
	return normalizeTransaction(event.Transaction)
}

func normalizeTransaction(tx string) string {
	method, path, ok := strings.Cut(tx, " ")
	if !ok {
		method, path = "", tx
	}
	if !strings.Contains(path, "/") {
		return tx
	}

	segs := strings.Split(path, "/")
	for i, seg := range segs {
		if idSegmentPattern.MatchString(seg) {
			segs[i] = ":id"
		}
	}
	path = strings.Join(segs, "/")
	if method == "" {
		return path
	}
	return method + " " + path
}

// normalizeStackTrace returns the first function names of a goroutine dump
// without arguments, offsets or file lines.
func normalizeStackTrace(trace string) []string {
	if trace == "" {
		return nil
	}

	var frames []string
	for _, line := range strings.Split(trace, "\n") {
		if strings.HasPrefix(line, "\t") {
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "goroutine ") || strings.HasPrefix(line, "/") {
			continue
		}

		line = addrPattern.ReplaceAllString(line, "")
		if idx := strings.LastIndex(line, "("); idx > 0 {
			line = line[:idx]
		}

		// "created by ..." and other prose lines contain spaces
		name := strings.TrimSpace(line)
		if strings.Contains(name, ".") && !strings.ContainsAny(name, " \t") {
			frames = append(frames, name)
			if len(frames) == maxFingerprintFrames {
				break
			}
		}
	}
	return frames
}
