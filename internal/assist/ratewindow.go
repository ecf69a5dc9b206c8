// internal/assist/ratewindow.go
package assist

import (
	"sync"
	"time"
)

// RateWindow keeps the click timestamps seen within the last W and
// extrapolates them to clicks per second.
//
// Timestamps are assumed to arrive in non-decreasing order, so stale entries
// always form a prefix. Eviction happens lazily and mutates the window, which
// is why reads take the same lock as writes.
type RateWindow struct {
	mu     sync.Mutex
	window time.Duration
	stamps []time.Time
	last   time.Time
}

// NewRateWindow creates an empty window of the given duration.
func NewRateWindow(window time.Duration) *RateWindow {
	return &RateWindow{
		window: window,
		stamps: make([]time.Time, 0, 32),
	}
}

// Window returns the configured window duration.
func (w *RateWindow) Window() time.Duration {
	return w.window
}

// Record appends t.
func (w *RateWindow) Record(t time.Time) {
	w.mu.Lock()
	w.recordLocked(t)
	w.mu.Unlock()
}

// RecordAndPrev appends t and returns the timestamp recorded immediately
// before it. ok is false when t is the only retained timestamp.
func (w *RateWindow) RecordAndPrev(t time.Time) (prev time.Time, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.recordLocked(t)
	if n := len(w.stamps); n > 1 {
		return w.stamps[n-2], true
	}
	return time.Time{}, false
}

func (w *RateWindow) recordLocked(t time.Time) {
	// Trimming against the new timestamp bounds memory when nobody reads
	// the rate. It never drops anything a later read would keep.
	w.evictLocked(t)
	w.stamps = append(w.stamps, t)
	w.last = t
}

// CurrentRate evicts timestamps older than now-W and returns count/W in
// clicks per second, or 0 when the window is empty.
func (w *RateWindow) CurrentRate(now time.Time) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.evictLocked(now)
	if len(w.stamps) == 0 || w.window <= 0 {
		return 0
	}
	return float64(len(w.stamps)) / w.window.Seconds()
}

// evictLocked drops the stale prefix. A timestamp exactly W old is kept.
func (w *RateWindow) evictLocked(now time.Time) {
	i := 0
	for i < len(w.stamps) && now.Sub(w.stamps[i]) > w.window {
		i++
	}
	if i == 0 {
		return
	}
	n := copy(w.stamps, w.stamps[i:])
	clear(w.stamps[n:])
	w.stamps = w.stamps[:n]
}

// Len returns the number of retained timestamps without evicting.
func (w *RateWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.stamps)
}

// LastClick returns the most recent recorded timestamp, or the zero time.
// It survives eviction.
func (w *RateWindow) LastClick() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}
