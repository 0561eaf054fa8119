package types

import (
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// Response is the result of loading a resource through the browser
// session, either by navigation or by an in-session request.
type Response struct {
	// Status is the HTTP status code.
	Status int

	// Headers are the response HTTP headers.
	Headers http.Header

	// Body is the raw response body bytes.
	Body []byte

	// URL is the requested URL.
	URL string

	// FinalURL is the URL after any redirects.
	FinalURL string

	// Duration is how long the fetch took.
	Duration time.Duration
}

// ContentType returns the declared Content-Type header, lowercased.
func (r *Response) ContentType() string {
	return strings.ToLower(r.Headers.Get("Content-Type"))
}

// IsSuccess returns true if the response status is 2xx.
func (r *Response) IsSuccess() bool {
	return r.Status >= 200 && r.Status < 300
}

// IsBlocked reports whether the status indicates a WAF or access block.
func (r *Response) IsBlocked() bool {
	switch r.Status {
	case http.StatusUnauthorized, http.StatusForbidden,
		http.StatusUnavailableForLegalReasons, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// FetchResult is a successfully downloaded file. Ownership of Content
// transfers to the caller, which persists it.
type FetchResult struct {
	Content  []byte
	Filename string
	Headers  http.Header
}

// FilenameFromURL derives a local filename from a resource URL,
// stripping any query string.
func FilenameFromURL(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if name := path.Base(u.Path); name != "" && name != "." && name != "/" {
			return name
		}
	}
	trimmed := strings.SplitN(rawURL, "?", 2)[0]
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	return trimmed
}
