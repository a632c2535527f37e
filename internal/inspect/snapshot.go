package inspect

import (
	"net/http"
	"sort"
	"strings"
)

// Header is one received header line. Duplicated names yield several Headers.
type Header struct {
	Name  string
	Value string
}

// Snapshot is the request as received: method, target, headers and raw body bytes.
// Path is kept in its escaped form so the report shows what was sent; for
// CONNECT it holds the authority (host:port) target.
// It is built once per request and never modified afterwards.
type Snapshot struct {
	Method     string
	Path       string
	RawQuery   string
	RemoteAddr string
	Headers    []Header
	Body       []byte
}

// Capture builds a Snapshot from an inbound request and the body already read from it.
//
// net/http does not keep header wire order, so names are listed sorted with
// the values of a repeated name kept in received order. Host comes first since
// the server moves it out of the header map.
func Capture(r *http.Request, body []byte) Snapshot {
	names := make([]string, 0, len(r.Header))
	for name := range r.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	headers := make([]Header, 0, len(names)+1)
	if r.Host != "" {
		headers = append(headers, Header{Name: "Host", Value: r.Host})
	}
	for _, name := range names {
		for _, value := range r.Header[name] {
			headers = append(headers, Header{Name: name, Value: value})
		}
	}

	if body == nil {
		body = []byte{}
	}

	// CONNECT carries an authority-form target with no path.
	path := r.URL.EscapedPath()
	if path == "" && r.RequestURI != "" {
		path = r.RequestURI
	}

	return Snapshot{
		Method:     r.Method,
		Path:       path,
		RawQuery:   r.URL.RawQuery,
		RemoteAddr: r.RemoteAddr,
		Headers:    headers,
		Body:       body,
	}
}

// Target returns the path with its query string, as shown in reports.
func (s Snapshot) Target() string {
	path := s.Path
	if path == "" {
		path = "/"
	}
	if s.RawQuery == "" {
		return path
	}
	return path + "?" + s.RawQuery
}

// Lookup returns the first value of the named header, matching names case-insensitively.
func (s Snapshot) Lookup(name string) (string, bool) {
	for _, h := range s.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}
