package compositor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/goki/vulkan"

	"github.com/cassia-project/compositor/internal/gpu"
	"github.com/cassia-project/compositor/internal/gpu/mockdriver"
	"github.com/cassia-project/compositor/internal/swapchain"
)

const testPixelFormat = vk.FormatR8g8b8a8Unorm

func TestCompositeFrameBlitsQueuedBuffer(t *testing.T) {
	drv := mockdriver.New()
	engine := swapchain.NewEngine(drv, func(int) {})
	surfaceP := NewSurfaceProvider()
	loop := NewDisplayLoop(drv, surfaceP, engine, 3)

	handle, err := engine.Allocate(testPixelFormat, gpu.Extent2D{Width: 640, Height: 480}, 0, 0, 2, func(gpu.PlatformBuffer) error { return nil })
	require.NoError(t, err)

	idx, _, err := engine.Dequeue(handle, time.Second)
	require.NoError(t, err)
	require.NoError(t, engine.Queue(handle, idx, -1))

	surfaceP.SetSurface(mockdriver.NewSurface(1280, 720))

	surf, epoch, ok := surfaceP.WaitForSurface()
	require.True(t, ok)
	require.NoError(t, loop.recreatePlatformSwapchain(surf, epoch))
	require.NoError(t, loop.compositeFrame())

	assert.EqualValues(t, 1, drv.SubmitCount())

	log := drv.BlitLog()
	require.Len(t, log, 1)
	assert.Equal(t, loop.platformImages[0], log[0].Dst)
	assert.Equal(t, gpu.Extent2D{Width: 640, Height: 480}, log[0].SrcExtent)
	assert.Equal(t, gpu.Extent2D{Width: 1280, Height: 720}, log[0].DstExtent)
}

func TestCompositeFrameHandlesOutOfDateSwapchain(t *testing.T) {
	drv := mockdriver.New()
	engine := swapchain.NewEngine(drv, func(int) {})
	surfaceP := NewSurfaceProvider()
	loop := NewDisplayLoop(drv, surfaceP, engine, 3)

	surfaceP.SetSurface(mockdriver.NewSurface(640, 480))
	surf, epoch, ok := surfaceP.WaitForSurface()
	require.True(t, ok)
	require.NoError(t, loop.recreatePlatformSwapchain(surf, epoch))

	drv.ForceOutOfDate(loop.platformSwapchain)
	require.NoError(t, loop.compositeFrame())
	assert.Nil(t, loop.platformImages)
}

func TestSurfaceProviderWaitForSurfaceBlocksUntilSet(t *testing.T) {
	sp := NewSurfaceProvider()
	done := make(chan struct{})
	go func() {
		sp.WaitForSurface()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitForSurface returned before a surface was set")
	case <-time.After(30 * time.Millisecond):
	}

	sp.SetSurface(mockdriver.NewSurface(100, 100))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitForSurface did not unblock after SetSurface")
	}
}

func TestSurfaceProviderCloseUnblocksWaitersWithNoSurface(t *testing.T) {
	sp := NewSurfaceProvider()
	done := make(chan bool, 1)
	go func() {
		_, _, ok := sp.WaitForSurface()
		done <- ok
	}()

	select {
	case <-done:
		t.Fatal("WaitForSurface returned before Close was called")
	case <-time.After(30 * time.Millisecond):
	}

	sp.Close()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("WaitForSurface did not unblock after Close")
	}
}
