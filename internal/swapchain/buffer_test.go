package swapchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferLegalTransitions(t *testing.T) {
	cases := []struct {
		from, to BufferState
		ok       bool
	}{
		{BufferFree, BufferDequeued, true},
		{BufferDequeued, BufferQueued, true},
		{BufferQueued, BufferFree, true},
		{BufferFree, BufferQueued, false},
		{BufferDequeued, BufferFree, false},
		{BufferQueued, BufferDequeued, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, legalTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestBufferTransitionRejectsIllegalMove(t *testing.T) {
	b := &buffer{state: BufferFree, acquireFenceFd: -1}
	assert.False(t, b.transition(BufferQueued))
	assert.Equal(t, BufferFree, b.state)

	assert.True(t, b.transition(BufferDequeued))
	assert.Equal(t, BufferDequeued, b.state)
}

func TestSetAcquireFenceClosesPriorFd(t *testing.T) {
	b := &buffer{state: BufferFree, acquireFenceFd: -1}
	var closed []int
	closeFd := func(fd int) { closed = append(closed, fd) }

	b.setAcquireFence(closeFd, 5)
	assert.Empty(t, closed)
	assert.Equal(t, 5, b.acquireFenceFd)

	b.setAcquireFence(closeFd, 9)
	assert.Equal(t, []int{5}, closed)
	assert.Equal(t, 9, b.acquireFenceFd)
}

func TestBufferStateString(t *testing.T) {
	assert.Equal(t, "free", BufferFree.String())
	assert.Equal(t, "dequeued", BufferDequeued.String())
	assert.Equal(t, "queued", BufferQueued.String())
}
