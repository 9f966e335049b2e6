// Package compositor owns the platform display surface and runs the
// single composition thread that blits every active virtual swapchain's
// latest buffer into it. The surface provider half of this package is
// the Go shape of the teacher's external "set_surface" callback: a mutex
// plus condition variable a foreign thread signals, generalized from
// VulkanRenderer.recreateSwapchain's framebuffer-generation check.
package compositor

import (
	"sync"

	"github.com/cassia-project/compositor/internal/core"
	"github.com/cassia-project/compositor/internal/gpu"
)

// SurfaceProvider holds the current display surface (or none) and wakes
// the display loop whenever it changes. set_surface(null) is modeled as
// SetSurface(nil).
type SurfaceProvider struct {
	mu     sync.Mutex
	cv     *sync.Cond
	extent gpu.Extent2D
	surf   gpu.Surface
	epoch  uint64
	closed bool
}

// NewSurfaceProvider returns an empty provider; the display loop blocks
// on WaitForSurface until the first SetSurface call.
func NewSurfaceProvider() *SurfaceProvider {
	sp := &SurfaceProvider{}
	sp.cv = sync.NewCond(&sp.mu)
	return sp
}

// SetSurface installs surf as the current display surface, or clears it
// if surf is nil. Every call bumps the epoch and wakes the display loop;
// a nil surface pauses composition at the next iteration.
func (sp *SurfaceProvider) SetSurface(surf gpu.Surface) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.surf = surf
	if surf != nil {
		sp.extent = surf.CurrentExtent()
		core.LogInfo("compositor: surface set, extent %dx%d", sp.extent.Width, sp.extent.Height)
	} else {
		core.LogInfo("compositor: surface cleared, composition pausing")
	}
	sp.epoch++
	sp.cv.Broadcast()
}

// WaitForSurface blocks until a non-nil surface is installed and returns
// it along with the epoch it was installed at, used by the display loop
// to detect a later change (resize or surface swap) without re-locking
// on every frame. ok is false only when Close has been called and no
// surface is currently set, the signal the display loop uses to exit
// cleanly during shutdown rather than waiting forever on a surface that
// is never coming.
func (sp *SurfaceProvider) WaitForSurface() (surf gpu.Surface, epoch uint64, ok bool) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	for sp.surf == nil && !sp.closed {
		sp.cv.Wait()
	}
	if sp.surf == nil {
		return nil, sp.epoch, false
	}
	return sp.surf, sp.epoch, true
}

// Close unblocks any in-progress or future WaitForSurface call. Safe to
// call more than once.
func (sp *SurfaceProvider) Close() {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.closed = true
	sp.cv.Broadcast()
}
