package tracker

import "time"

// windowCounter is one fixed rate-limit window: a start timestamp and the
// number of events seen since. Per-group counters live inside their group's
// shard entry and share its lock; the global counter has its own mutex in
// the Tracker.
type windowCounter struct {
	start time.Time
	count int
}

// allow resets the window if it has elapsed, counts the event, and reports
// whether it is still under the cap. The counter keeps incrementing past
// the cap so callers can observe overflow, but never resets mid-window.
func (w *windowCounter) allow(now time.Time, window time.Duration, limit int) bool {
	if w.start.IsZero() || now.Sub(w.start) >= window {
		w.start = now
		w.count = 0
	}
	w.count++
	return w.count <= limit
}
