// request.go translates an inbound *http.Request into event data.

package aisenhttp

import (
	"net/http"
	"sort"

	"github.com/strongdm/http-observe/pkg/aisen"
)

// NewRequestSnapshot returns the transaction name for r and an immutable
// snapshot of its URL, method and headers.
//
// The transaction is the URL path without query or fragment. Headers are
// listed with Host first, then by canonical name; repeated values of one
// header keep their received order and are not merged. RemoteAddr is only
// recorded when includePII is true.
func NewRequestSnapshot(r *http.Request, includePII bool) (string, aisen.RequestInfo) {
	var transaction string
	if r.URL != nil {
		transaction = r.URL.Path
	}

	snapshot := aisen.RequestInfo{
		URL:     requestURL(r),
		Method:  r.Method,
		Headers: requestHeaders(r),
	}
	if includePII {
		snapshot.RemoteAddr = r.RemoteAddr
	}

	return transaction, snapshot
}

// requestURL rebuilds the absolute URL the client asked for.
func requestURL(r *http.Request) string {
	if r.URL == nil {
		return ""
	}
	if r.URL.IsAbs() {
		return r.URL.String()
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host
	if host == "" {
		host = r.URL.Host
	}

	target := r.RequestURI
	if target == "" {
		target = r.URL.RequestURI()
	}
	if host == "" {
		return target
	}
	return scheme + "://" + host + target
}

// requestHeaders flattens r.Header, which net/http keeps unordered. Go moves
// the Host header out of the map, so it is put back in front.
func requestHeaders(r *http.Request) []aisen.Header {
	names := make([]string, 0, len(r.Header))
	count := 0
	for name, values := range r.Header {
		names = append(names, name)
		count += len(values)
	}
	sort.Strings(names)

	headers := make([]aisen.Header, 0, count+1)
	if r.Host != "" && len(r.Header.Values("Host")) == 0 {
		headers = append(headers, aisen.Header{Name: "Host", Value: r.Host})
	}
	for _, name := range names {
		for _, value := range r.Header[name] {
			headers = append(headers, aisen.Header{Name: name, Value: value})
		}
	}
	return headers
}
