package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrNotFound means the server confirmed the resource is gone (404).
	// Never retried.
	ErrNotFound = errors.New("resource not found")

	// ErrRetriesExhausted means the fetch kept failing after gate-clearing
	// was attempted. Terminal for one URL only.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrUnexpectedContentType means the server returned 200 with a body
	// outside the allowed media set, even after gate-clearing.
	ErrUnexpectedContentType = errors.New("unexpected content type")

	// ErrBlocked means a WAF/access-denied response stopped navigation.
	ErrBlocked = errors.New("blocked by access control")

	// ErrNoNextPage means no further catalog page exists. This is the
	// expected terminal state of pagination, not a failure.
	ErrNoNextPage = errors.New("no next page")

	// ErrVerificationFailed means the age/bot gate could not be cleared.
	ErrVerificationFailed = errors.New("page verification failed")
)

// FetchError wraps errors that occur while fetching a resource through
// the browser session.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// NavigationError wraps errors raised while navigating catalog pages.
type NavigationError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NavigationError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("navigation error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("navigation error for %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }
