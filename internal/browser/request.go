package browser

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/Linghan9/epsteinFilePull/internal/types"
)

// newRequestClient builds the http.Client used for in-session resource
// GETs. Redirects are followed; compression is negotiated and handled
// here so brotli works too.
func newRequestClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			DisableCompression:  true,
		},
		Timeout: timeout,
	}
}

// Get fetches a resource with the browser session's cookies and user
// agent, without a full page navigation. The caller classifies the
// response; any status is returned as a Response, only transport-level
// failures produce an error.
func (s *Session) Get(ctx context.Context, url string) (*types.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: err, Retryable: false}
	}

	req.Header.Set("User-Agent", s.userAgent())
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	if cookie := s.cookieHeader(); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	start := time.Now()
	httpResp, err := s.client.Do(req)
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: err, Retryable: true}
	}
	defer httpResp.Body.Close()

	reader, err := decompressReader(httpResp, httpResp.Body)
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: err, Retryable: false}
	}

	if s.maxBodySize > 0 {
		reader = io.LimitReader(reader, s.maxBodySize+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: err, Retryable: true}
	}
	if s.maxBodySize > 0 && int64(len(body)) > s.maxBodySize {
		return nil, &types.FetchError{
			URL:       url,
			Err:       fmt.Errorf("body exceeds %d bytes", s.maxBodySize),
			Retryable: false,
		}
	}

	resp := &types.Response{
		Status:   httpResp.StatusCode,
		Headers:  httpResp.Header,
		Body:     body,
		URL:      url,
		FinalURL: httpResp.Request.URL.String(),
		Duration: time.Since(start),
	}

	s.logger.Debug("in-session fetch complete",
		"url", url,
		"status", resp.Status,
		"size", len(body),
		"duration", resp.Duration,
	)
	return resp, nil
}

// userAgent reads the live page's user agent so requests match the
// browser fingerprint (stealth patching may have changed it).
func (s *Session) userAgent() string {
	if s.page != nil {
		if ua, err := s.page.Eval(`() => navigator.userAgent`); err == nil && ua != "" {
			return ua
		}
	}
	return "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
}

// cookieHeader serializes the browser's cookies for the request. The
// gate verification cookie must ride along or the server re-serves the
// interstitial instead of the file.
func (s *Session) cookieHeader() string {
	if s.browser == nil {
		return ""
	}
	cookies, err := s.browser.GetCookies()
	if err != nil {
		return ""
	}
	header := ""
	for _, c := range cookies {
		if header != "" {
			header += "; "
		}
		header += c.Name + "=" + c.Value
	}
	return header
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}
