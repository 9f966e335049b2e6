package swapchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueFIFOOrder(t *testing.T) {
	rq := newRingQueue(3)
	require.NoError(t, rq.enqueue(1))
	require.NoError(t, rq.enqueue(2))
	require.NoError(t, rq.enqueue(3))

	v, ok := rq.dequeue()
	require.True(t, ok)
	assert.Equal(t, uint32(1), v)

	v, ok = rq.dequeue()
	require.True(t, ok)
	assert.Equal(t, uint32(2), v)
}

func TestRingQueueFullRejectsEnqueue(t *testing.T) {
	rq := newRingQueue(2)
	require.NoError(t, rq.enqueue(1))
	require.NoError(t, rq.enqueue(2))
	assert.Error(t, rq.enqueue(3))
}

func TestRingQueueEmptyDequeueReturnsFalse(t *testing.T) {
	rq := newRingQueue(2)
	_, ok := rq.dequeue()
	assert.False(t, ok)
}

func TestRingQueueWrapsAroundAfterDequeue(t *testing.T) {
	rq := newRingQueue(2)
	require.NoError(t, rq.enqueue(10))
	require.NoError(t, rq.enqueue(20))
	_, _ = rq.dequeue()
	require.NoError(t, rq.enqueue(30))

	v, ok := rq.dequeue()
	require.True(t, ok)
	assert.Equal(t, uint32(20), v)
	v, ok = rq.dequeue()
	require.True(t, ok)
	assert.Equal(t, uint32(30), v)
}
