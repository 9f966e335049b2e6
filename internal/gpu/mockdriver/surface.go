package mockdriver

import (
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/cassia-project/compositor/internal/gpu"
)

// Surface is a mock gpu.Surface backed by a settable extent. Tests use it
// in place of the platform-provided display surface, including resizing
// it mid-test to exercise the display loop's swapchain-recreation path.
type Surface struct {
	mu     sync.Mutex
	extent gpu.Extent2D
}

// NewSurface returns a mock surface with the given initial extent.
func NewSurface(width, height uint32) *Surface {
	return &Surface{extent: gpu.Extent2D{Width: width, Height: height}}
}

func (s *Surface) CurrentExtent() gpu.Extent2D {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extent
}

// Handle satisfies gpu.Surface. The mock surface has no native handle.
func (s *Surface) Handle() gpu.SurfaceHandle {
	return vk.NullSurface
}

// Resize changes the extent the next CreateSwapchain or recreation cycle
// will observe.
func (s *Surface) Resize(width, height uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extent = gpu.Extent2D{Width: width, Height: height}
}
