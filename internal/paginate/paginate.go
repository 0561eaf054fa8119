// Package paginate advances through catalog pages, preferring direct
// navigation (so HTTP status is observable for block detection) over
// simulated clicks.
package paginate

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Linghan9/epsteinFilePull/internal/browser"
	"github.com/Linghan9/epsteinFilePull/internal/types"
)

// nextPageSel is the site's pagination-next anchor class.
const nextPageSel = "a.usa-pagination__next-page"

// blockMarkers appear in WAF interstitial bodies where no status code is
// observable (click-based navigation).
var blockMarkers = []string{"access denied", "errors.edgesuite.net"}

// Verifier re-runs gate verification after a block response.
type Verifier interface {
	Ensure(page browser.Page, basename string) bool
}

// Snapshotter receives debug snapshots around page advances.
type Snapshotter interface {
	WriteSnapshot(basename, event, html string)
}

// Walker locates and follows the next-page control.
type Walker struct {
	verifier    Verifier
	snaps       Snapshotter
	idleTimeout time.Duration
	logger      *slog.Logger
}

// NewWalker creates a Walker.
func NewWalker(verifier Verifier, snaps Snapshotter, idleTimeout time.Duration, logger *slog.Logger) *Walker {
	return &Walker{
		verifier:    verifier,
		snaps:       snaps,
		idleTimeout: idleTimeout,
		logger:      logger.With("component", "pagination_walker"),
	}
}

// Advance moves to the next catalog page. It returns true when a new
// page was reached and false when the dataset is exhausted or the site
// keeps blocking even after one re-verification and retry.
//
// The anchor-based path is always tried first. When no next-page control
// is rendered at all and datasetURL is non-empty, a page-numbered URL
// ({datasetURL}?page={n+1}) is constructed as a last resort, since the
// site does not always render pagination controls as anchors.
func (w *Walker) Advance(ctx context.Context, page browser.Page, datasetURL, basename string, pageNumber int) bool {
	w.snaps.WriteSnapshot(basename, fmt.Sprintf("start_find_next_page_from_page_%d", pageNumber), page.HTML())

	next, ok := w.findNext(page)
	if !ok {
		if datasetURL == "" {
			w.logger.Info("no next page control", "page", pageNumber)
			return false
		}
		return w.advanceByURL(ctx, page, datasetURL, basename, pageNumber)
	}

	target := ""
	if href, ok := next.Attribute("href"); ok && href != "" {
		target = resolveURL(page.URL(), href)
	}

	var resp *types.Response
	if target != "" {
		w.logger.Debug("navigating to next page", "url", target)
		r, err := page.Navigate(ctx, target)
		if err != nil {
			w.logger.Debug("direct navigation failed, falling back to click", "error", err)
			if err := next.Click(); err != nil {
				w.logger.Warn("next page click fallback failed", "error", err)
				return false
			}
			page.WaitIdle(w.idleTimeout)
		} else {
			resp = r
		}
	} else {
		// JS-driven control without an href; click is all we have, at
		// the cost of not observing the response status.
		if err := next.Click(); err != nil {
			w.logger.Warn("next page click failed", "error", err)
			return false
		}
		page.WaitIdle(w.idleTimeout)
	}

	w.snaps.WriteSnapshot(basename, fmt.Sprintf("page_%d", pageNumber+1), page.HTML())

	if !w.blocked(resp, page) {
		return true
	}

	// Blocked: re-verify once, retry the same target once, then give up
	// on this dataset's pagination rather than loop against the WAF.
	w.logger.Warn("block detected on page advance", "page", pageNumber+1, "url", target)
	w.verifier.Ensure(page, basename)

	var retryResp *types.Response
	if target == "" {
		// Click-based advance has no URL to re-request; reload in place
		// now that the gate has been re-cleared.
		if err := page.Reload(); err != nil {
			w.logger.Warn("retry reload failed", "error", err)
			return false
		}
	} else {
		r, err := page.Navigate(ctx, target)
		if err != nil {
			w.logger.Warn("retry navigation failed", "url", target, "error", err)
			return false
		}
		retryResp = r
	}
	w.snaps.WriteSnapshot(basename, fmt.Sprintf("page_%d_retry", pageNumber+1), page.HTML())

	if w.blocked(retryResp, page) {
		w.logger.Warn("still blocked after re-verification, stopping pagination", "url", target)
		return false
	}
	return true
}

// findNext locates the next-page control: the specifically-classed
// pagination anchor first, else the first link whose text is or starts
// with "next".
func (w *Walker) findNext(page browser.Page) (browser.Element, bool) {
	if el, ok := page.Element(nextPageSel); ok {
		return el, true
	}
	for _, link := range page.Elements("a") {
		text := strings.ToLower(strings.TrimSpace(link.Text()))
		if text == "next" || strings.HasPrefix(text, "next") {
			return link, true
		}
	}
	return nil, false
}

// advanceByURL navigates to an arithmetically constructed page URL.
func (w *Walker) advanceByURL(ctx context.Context, page browser.Page, datasetURL, basename string, pageNumber int) bool {
	target := fmt.Sprintf("%s?page=%d", datasetURL, pageNumber+1)
	w.logger.Debug("no next page control, trying page-numbered URL", "url", target)

	resp, err := page.Navigate(ctx, target)
	if err != nil {
		w.logger.Warn("page-numbered navigation failed", "url", target, "error", err)
		return false
	}
	w.snaps.WriteSnapshot(basename, fmt.Sprintf("page_%d", pageNumber+1), page.HTML())

	if w.blocked(resp, page) {
		w.logger.Warn("page-numbered navigation blocked", "url", target)
		return false
	}
	return true
}

// blocked checks the response status when one is available, and the
// page body's WAF markers either way.
func (w *Walker) blocked(resp *types.Response, page browser.Page) bool {
	if resp != nil && resp.IsBlocked() {
		return true
	}
	html := strings.ToLower(page.HTML())
	for _, marker := range blockMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return false
}

// resolveURL makes href absolute against the current page URL.
func resolveURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}
