package swapchain

import "time"

// rateCounter is the sliding two-bucket frames-per-second counter each
// virtual swapchain keeps, averaged over two ~1s windows rather than a
// single reset-every-second tally so a report never reads zero right
// after a window boundary.
type rateCounter struct {
	bucket      [2]uint32
	current     int
	windowStart time.Time
}

// record folds one composited frame into the current bucket. It reports
// ready=true at most once per second, at which point fps is the average
// of the two most recently completed buckets.
func (r *rateCounter) record(now time.Time) (fps float64, ready bool) {
	if r.windowStart.IsZero() {
		r.windowStart = now
	}
	r.bucket[r.current]++
	if now.Sub(r.windowStart) < time.Second {
		return 0, false
	}
	fps = float64(r.bucket[0]+r.bucket[1]) / 2
	r.current = 1 - r.current
	r.bucket[r.current] = 0
	r.windowStart = now
	return fps, true
}
