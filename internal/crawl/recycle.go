package crawl

import "time"

// Clock abstracts wall-clock time for the recycle scheduler.
type Clock func() time.Time

// RecycleScheduler decides when the browser session should be torn down
// and recreated to bound memory growth on long crawls. It only answers
// questions; the crawler performs the recycle at a safe point between
// page iterations, never inside an in-flight fetch.
type RecycleScheduler struct {
	interval time.Duration
	now      Clock
	last     time.Time
}

// NewRecycleScheduler creates a scheduler. A zero or negative interval
// disables recycling entirely.
func NewRecycleScheduler(interval time.Duration, now Clock) *RecycleScheduler {
	if now == nil {
		now = time.Now
	}
	return &RecycleScheduler{
		interval: interval,
		now:      now,
		last:     now(),
	}
}

// DueForRecycle reports whether enough wall-clock time has elapsed since
// the last recycle.
func (r *RecycleScheduler) DueForRecycle() bool {
	if r.interval <= 0 {
		return false
	}
	return r.now().Sub(r.last) >= r.interval
}

// MarkRecycled resets the elapsed-time counter.
func (r *RecycleScheduler) MarkRecycled() {
	r.last = r.now()
}
