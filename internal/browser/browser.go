// Package browser wraps a controllable Chromium session behind small
// Page/Element interfaces so gate-verification and pagination logic can
// be exercised against fakes.
package browser

import (
	"context"
	"time"

	"github.com/Linghan9/epsteinFilePull/internal/types"
)

// Element is a handle to a single DOM element. Attribute access is
// explicit about absence instead of returning empty strings for both
// "missing" and "empty".
type Element interface {
	// Text returns the element's visible text, or "" when it cannot be read.
	Text() string

	// Attribute returns the attribute value and whether it is present.
	Attribute(name string) (string, bool)

	// Click performs a native click.
	Click() error

	// ScriptClick clicks via injected script, for elements whose native
	// click is intercepted by overlays.
	ScriptClick() error

	// Check sets a checkbox to checked.
	Check() error

	// Visible reports whether the element is rendered (not display:none).
	Visible() bool
}

// Frame is a queryable document: the main document or a nested iframe.
type Frame interface {
	// Element returns the first match for the selector, if any.
	Element(selector string) (Element, bool)

	// Elements returns all matches for the selector.
	Elements(selector string) []Element

	// Eval evaluates a script expression and returns its string value.
	Eval(js string) (string, error)

	// WaitIdle blocks until the network has been quiet for a moment or
	// the timeout expires. Timeout expiry is not an error: some pages
	// never settle, and the crawl proceeds anyway.
	WaitIdle(timeout time.Duration)

	// HTML returns the serialized document content, or "" on failure.
	HTML() string
}

// Page is a loaded document view within a session. A Page is replaced by
// every navigation; verification state must be re-derived from the new
// Page, never cached across navigations.
type Page interface {
	Frame

	// URL returns the page's current URL.
	URL() string

	// Cookies returns the document cookie string.
	Cookies() (string, error)

	// Frames enumerates nested frames.
	Frames() []Frame

	// Navigate loads a URL directly so the HTTP status is observable.
	Navigate(ctx context.Context, url string) (*types.Response, error)

	// Reload reloads the current document.
	Reload() error
}

// Getter fetches a resource through the session's request API (cookies
// and user agent carried over, no full navigation).
type Getter interface {
	Get(ctx context.Context, url string) (*types.Response, error)
}
