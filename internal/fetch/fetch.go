// Package fetch retrieves one binary resource through the authenticated
// browser session, with bounded retries and content-type validation.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Linghan9/epsteinFilePull/internal/browser"
	"github.com/Linghan9/epsteinFilePull/internal/retry"
	"github.com/Linghan9/epsteinFilePull/internal/types"
)

// allowedContentTypes is the media set the site legitimately serves.
// Matching is substring containment, so "application/pdf; charset=binary"
// still qualifies. Anything else is a hard failure, never silently saved.
var allowedContentTypes = []string{
	"application/pdf",
	"video/mp4",
	"video/webm",
	"video/mpeg",
	"m4a",
	"wav",
}

// GateClearer runs the gate-clearing probes against the live page. A
// challenge served in place of the file usually means the session lost
// its verified state; clicking through restores the cookies before the
// next attempt.
type GateClearer interface {
	ClickVerificationControls(page browser.Page, basename string) bool
	ClickAgeButtons(page browser.Page, basename string) bool
}

// Fetcher downloads single files via a session's request API. One
// Fetcher serves the whole run; the session making the request is passed
// per call because sessions are scoped to a single dataset.
type Fetcher struct {
	gates       GateClearer
	maxRetries  int
	backoffBase time.Duration
	sleep       retry.Sleeper
	logger      *slog.Logger
}

// New creates a Fetcher.
func New(gates GateClearer, maxRetries int, backoffBase time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		gates:       gates,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		logger:      logger.With("component", "file_fetcher"),
	}
}

// WithSleeper overrides the backoff sleeper. Used by tests.
func (f *Fetcher) WithSleeper(s retry.Sleeper) *Fetcher {
	f.sleep = s
	return f
}

// Fetch downloads url through the session. Terminal outcomes:
// types.ErrNotFound (404, file confirmed gone, never retried),
// types.ErrUnexpectedContentType (wrong media type even after
// gate-clearing), and types.ErrRetriesExhausted. Callers dead-letter
// terminal failures and move on; a single file never aborts the crawl.
func (f *Fetcher) Fetch(ctx context.Context, getter browser.Getter, page browser.Page, url string) (*types.FetchResult, error) {
	basename := types.FilenameFromURL(url)
	policy := retry.Policy{
		MaxAttempts: f.maxRetries,
		BackoffBase: f.backoffBase,
		Sleep:       f.sleep,
		Logger:      f.logger,
	}

	verificationAttempted := false
	for {
		resp, err := retry.Do(ctx, policy, func() (*types.Response, error) {
			return f.get(ctx, getter, url)
		}, func(err error) error {
			return f.recover(page, url, basename, err)
		})
		if err != nil {
			if errors.Is(err, types.ErrNotFound) || errors.Is(err, context.Canceled) {
				return nil, err
			}
			var fe *types.FetchError
			if errors.As(err, &fe) && !fe.IsRetryable() {
				return nil, err
			}
			return nil, fmt.Errorf("fetch %s: %w: %v", url, types.ErrRetriesExhausted, err)
		}

		contentType := resp.ContentType()
		if isAllowedContentType(contentType) {
			f.logger.Info("fetch succeeded",
				"url", url,
				"filename", basename,
				"size", len(resp.Body),
				"content_type", contentType,
			)
			return &types.FetchResult{
				Content:  resp.Body,
				Filename: basename,
				Headers:  resp.Headers,
			}, nil
		}

		if !verificationAttempted {
			// Clicking through a challenge can change session cookies,
			// so the same URL is worth one full re-fetch.
			f.logger.Debug("unexpected content type, attempting gate clearing", "url", url, "content_type", contentType)
			f.gates.ClickVerificationControls(page, basename)
			f.gates.ClickAgeButtons(page, basename)
			verificationAttempted = true
			continue
		}

		return nil, fmt.Errorf("content type %q for %s: %w", contentType, url, types.ErrUnexpectedContentType)
	}
}

// get performs one in-session GET, turning non-200 statuses into
// retryable errors so the retrier's recovery action sees them.
func (f *Fetcher) get(ctx context.Context, getter browser.Getter, url string) (*types.Response, error) {
	resp, err := getter.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, &types.FetchError{
			URL:        url,
			StatusCode: resp.Status,
			Err:        fmt.Errorf("non-200 status"),
			Retryable:  resp.Status != http.StatusNotFound,
		}
	}
	return resp, nil
}

// recover runs between attempts. A non-retryable failure is terminal
// and halts the loop: a 404 means the file is gone, anything else (bad
// request, oversized body) will not improve on retry. Retryable
// failures get one round of gate clearing before the next attempt.
func (f *Fetcher) recover(page browser.Page, url, basename string, err error) error {
	var fe *types.FetchError
	if errors.As(err, &fe) && !fe.IsRetryable() {
		if fe.StatusCode == http.StatusNotFound {
			f.logger.Info("file not found, not retrying", "url", url)
			return fmt.Errorf("%s: %w", url, types.ErrNotFound)
		}
		f.logger.Info("unretryable fetch failure", "url", url, "error", err)
		return err
	}

	f.logger.Debug("fetch attempt failed, running gate clearing", "url", url, "error", err)
	f.gates.ClickVerificationControls(page, basename)
	f.gates.ClickAgeButtons(page, basename)
	return nil
}

// isAllowedContentType checks declared type membership by substring.
func isAllowedContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	for _, allowed := range allowedContentTypes {
		if strings.Contains(ct, allowed) {
			return true
		}
	}
	return false
}
