// Package retry provides bounded retries with exponential backoff and a
// caller-supplied recovery action run between attempts.
package retry

import (
	"context"
	"log/slog"
	"time"
)

// Sleeper abstracts time.Sleep so tests can observe backoff delays.
type Sleeper func(d time.Duration)

// Policy configures a retry loop.
type Policy struct {
	// MaxAttempts is the total number of attempts (>= 1).
	MaxAttempts int

	// BackoffBase is the base delay; attempt N sleeps BackoffBase * 2^(N-1).
	// No jitter: the crawl is single-threaded and the delays are part of
	// the observable contract.
	BackoffBase time.Duration

	// Sleep defaults to time.Sleep.
	Sleep Sleeper

	Logger *slog.Logger
}

func (p Policy) sleeper() Sleeper {
	if p.Sleep != nil {
		return p.Sleep
	}
	return time.Sleep
}

// Do runs op up to MaxAttempts times. On each failure the recovery action
// runs first (gate-clearing, typically), then the loop sleeps with
// exponential backoff before the next attempt. There is no sleep after
// the final failed attempt; the last error is returned verbatim so the
// caller can classify it.
//
// An error from the recovery action is returned immediately: a broken
// recovery action should halt the loop rather than mask the real error.
func Do[T any](ctx context.Context, p Policy, op func() (T, error), recover func(error) error) (T, error) {
	var zero T
	sleep := p.sleeper()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if p.Logger != nil {
			p.Logger.Debug("attempt failed",
				"attempt", attempt,
				"max_attempts", p.MaxAttempts,
				"error", err,
			)
		}

		if recover != nil {
			if rerr := recover(err); rerr != nil {
				return zero, rerr
			}
		}

		if attempt == p.MaxAttempts {
			break
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		sleep(p.BackoffBase * (1 << (attempt - 1)))
	}

	return zero, lastErr
}
