package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockElapsedAdvancesAfterStart(t *testing.T) {
	c := NewClock()
	assert.Equal(t, time.Duration(0), c.Elapsed())

	c.Start()
	time.Sleep(time.Millisecond)
	c.Update()
	assert.Greater(t, c.Elapsed(), time.Duration(0))
}

func TestClockUpdateNoopBeforeStart(t *testing.T) {
	c := NewClock()
	c.Update()
	assert.Equal(t, time.Duration(0), c.Elapsed())
}

func TestClockStopFreezesElapsed(t *testing.T) {
	c := NewClock()
	c.Start()
	time.Sleep(time.Millisecond)
	c.Update()
	frozen := c.Elapsed()
	c.Stop()
	c.Update()
	assert.Equal(t, frozen, c.Elapsed())
}
