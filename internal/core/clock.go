package core

import "time"

// Clock tracks elapsed wall-clock time since Start, in the same shape as
// the teacher's engine/core/clock.go. The display loop uses a single
// instance, restarted every iteration, to time each composited frame for
// its FrameTimer.
type Clock struct {
	startTime time.Time
	elapsed   time.Duration
}

func NewClock() *Clock {
	return &Clock{}
}

// Update refreshes Elapsed. Has no effect on a clock that hasn't Started.
func (c *Clock) Update() {
	if !c.startTime.IsZero() {
		c.elapsed = time.Since(c.startTime)
	}
}

// Start resets the clock and begins timing.
func (c *Clock) Start() {
	c.startTime = time.Now()
	c.elapsed = 0
}

// Stop freezes Elapsed at its last Update without resetting it.
func (c *Clock) Stop() {
	c.startTime = time.Time{}
}

func (c *Clock) Elapsed() time.Duration {
	return c.elapsed
}
