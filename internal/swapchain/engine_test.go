package swapchain

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vk "github.com/goki/vulkan"

	"github.com/cassia-project/compositor/internal/core"
	"github.com/cassia-project/compositor/internal/gpu"
	"github.com/cassia-project/compositor/internal/gpu/mockdriver"
)

const testFormat = vk.FormatR8g8b8a8Unorm

func newTestEngine(t *testing.T) (*Engine, *mockdriver.Driver) {
	t.Helper()
	drv := mockdriver.New()
	closed := make([]int, 0)
	e := NewEngine(drv, func(fd int) { closed = append(closed, fd) })
	return e, drv
}

func noopSendHandle(gpu.PlatformBuffer) error { return nil }

func TestAllocateRejectsImageCountOutOfRange(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Allocate(testFormat, gpu.Extent2D{Width: 640, Height: 480}, 0, 0, 1, noopSendHandle)
	require.ErrorIs(t, err, core.ErrInvalidBufferState)

	_, err = e.Allocate(testFormat, gpu.Extent2D{Width: 640, Height: 480}, 0, 0, 7, noopSendHandle)
	require.ErrorIs(t, err, core.ErrInvalidBufferState)
}

func TestAllocateAssignsUniqueMonotonicHandles(t *testing.T) {
	e, _ := newTestEngine(t)
	h1, err := e.Allocate(testFormat, gpu.Extent2D{Width: 640, Height: 480}, 0, 0, 3, noopSendHandle)
	require.NoError(t, err)
	h2, err := e.Allocate(testFormat, gpu.Extent2D{Width: 640, Height: 480}, 0, 0, 3, noopSendHandle)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
	assert.Greater(t, h2, h1)
}

func TestAllocateCallsSendHandleBeforeImport(t *testing.T) {
	e, drv := newTestEngine(t)
	var order []string
	var liveAtSend []int
	sendHandle := func(gpu.PlatformBuffer) error {
		order = append(order, "sendHandle")
		liveAtSend = append(liveAtSend, drv.LiveObjectCount())
		return nil
	}
	_, err := e.Allocate(testFormat, gpu.Extent2D{Width: 320, Height: 240}, 0, 0, 2, sendHandle)
	require.NoError(t, err)
	assert.Len(t, order, 2)
	// When a buffer's handle is sent only its image and platform buffer
	// exist; its imported memory and queue semaphore come after. The
	// second send therefore sees the first buffer's 4 objects plus 2.
	assert.Equal(t, []int{2, 6}, liveAtSend)
}

func TestAllocateRollsBackOnSendHandleFailure(t *testing.T) {
	e, drv := newTestEngine(t)
	calls := 0
	failing := func(gpu.PlatformBuffer) error {
		calls++
		if calls == 2 {
			return assert.AnError
		}
		return nil
	}
	_, err := e.Allocate(testFormat, gpu.Extent2D{Width: 320, Height: 240}, 0, 0, 3, failing)
	require.Error(t, err)
	assert.Zero(t, drv.LiveObjectCount())
}

func TestDequeueQueueRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)
	handle, err := e.Allocate(testFormat, gpu.Extent2D{Width: 640, Height: 480}, 0, 0, 2, noopSendHandle)
	require.NoError(t, err)

	idx, fenceFd, err := e.Dequeue(handle, time.Second)
	require.NoError(t, err)
	assert.Equal(t, -1, fenceFd)

	err = e.Queue(handle, idx, -1)
	require.NoError(t, err)
}

func TestQueueRejectsWrongState(t *testing.T) {
	e, _ := newTestEngine(t)
	handle, err := e.Allocate(testFormat, gpu.Extent2D{Width: 640, Height: 480}, 0, 0, 2, noopSendHandle)
	require.NoError(t, err)

	err = e.Queue(handle, 0, -1)
	require.ErrorIs(t, err, core.ErrInvalidBufferState)
}

func TestQueueRejectsOutOfRangeIndex(t *testing.T) {
	e, _ := newTestEngine(t)
	handle, err := e.Allocate(testFormat, gpu.Extent2D{Width: 640, Height: 480}, 0, 0, 2, noopSendHandle)
	require.NoError(t, err)

	err = e.Queue(handle, 99, -1)
	require.ErrorIs(t, err, core.ErrImageIndexOutOfRange)
}

func TestDequeueTimesOutWhenAllBuffersHeld(t *testing.T) {
	e, _ := newTestEngine(t)
	handle, err := e.Allocate(testFormat, gpu.Extent2D{Width: 640, Height: 480}, 0, 0, 2, noopSendHandle)
	require.NoError(t, err)

	_, _, err = e.Dequeue(handle, time.Second)
	require.NoError(t, err)
	_, _, err = e.Dequeue(handle, time.Second)
	require.NoError(t, err)

	start := time.Now()
	_, _, err = e.Dequeue(handle, 30*time.Millisecond)
	elapsed := time.Since(start)
	require.ErrorIs(t, err, core.ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestDequeueUnblocksWhenBufferFreedByBeginFrame(t *testing.T) {
	e, _ := newTestEngine(t)
	handle, err := e.Allocate(testFormat, gpu.Extent2D{Width: 640, Height: 480}, 0, 0, 2, noopSendHandle)
	require.NoError(t, err)

	// Queue buffer A; BeginFrame captures its semaphore into the wait list
	// and frees it immediately, so it becomes last_presented_index while
	// still Free.
	idxA, _, err := e.Dequeue(handle, time.Second)
	require.NoError(t, err)
	require.NoError(t, e.Queue(handle, idxA, -1))
	e.BeginFrame(time.Now(), nil)

	// The rotating cursor now offers the other buffer, B; queue it too.
	idxB, _, err := e.Dequeue(handle, time.Second)
	require.NoError(t, err)
	require.NoError(t, e.Queue(handle, idxB, -1))

	// Re-dequeue A (Free since the first BeginFrame, and the only
	// candidate left) so both buffers are now held: A by this caller, B
	// pending composition. A third Dequeue has nothing to select.
	_, _, err = e.Dequeue(handle, time.Second)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	var gotErr error
	go func() {
		defer wg.Done()
		_, _, gotErr = e.Dequeue(handle, 2*time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	e.BeginFrame(time.Now(), nil) // pops B from the pending queue, freeing it

	wg.Wait()
	assert.NoError(t, gotErr)
}

func TestDestroyUnblocksWaitersWithConnectionClosed(t *testing.T) {
	e, _ := newTestEngine(t)
	handle, err := e.Allocate(testFormat, gpu.Extent2D{Width: 640, Height: 480}, 0, 0, 2, noopSendHandle)
	require.NoError(t, err)

	_, _, err = e.Dequeue(handle, time.Second)
	require.NoError(t, err)
	_, _, err = e.Dequeue(handle, time.Second)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	var gotErr error
	go func() {
		defer wg.Done()
		_, _, gotErr = e.Dequeue(handle, 2*time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	e.Destroy(handle)

	wg.Wait()
	assert.ErrorIs(t, gotErr, core.ErrConnectionClosed)
}

func TestDestroyReleasesAllDriverObjects(t *testing.T) {
	e, drv := newTestEngine(t)
	handle, err := e.Allocate(testFormat, gpu.Extent2D{Width: 640, Height: 480}, 0, 0, 3, noopSendHandle)
	require.NoError(t, err)
	require.Greater(t, drv.LiveObjectCount(), 0)

	e.Destroy(handle)
	assert.Zero(t, drv.LiveObjectCount())
}

func TestUnknownHandleOperationsReturnErrUnknownHandle(t *testing.T) {
	e, _ := newTestEngine(t)
	_, _, err := e.Dequeue(999, time.Second)
	assert.ErrorIs(t, err, core.ErrUnknownHandle)

	err = e.Queue(999, 0, -1)
	assert.ErrorIs(t, err, core.ErrUnknownHandle)
}
