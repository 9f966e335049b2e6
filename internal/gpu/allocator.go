package gpu

import "fmt"

// UnimplementedAllocator satisfies NativeBufferAllocator with no platform
// backing. Real deployments (Android's AHardwareBuffer, a desktop
// compositor's GBM/dma-buf allocator) supply their own; this package
// never guesses at one, since the actual allocation primitive is
// platform-specific and outside this module's scope. Wiring a real
// allocator into NewVulkanDriver is the integrator's job, the same seam
// original_source/ leaves to the Android NDK at the call site.
type UnimplementedAllocator struct{}

func (UnimplementedAllocator) Allocate(format Format, extent Extent2D) (PlatformBuffer, error) {
	return PlatformBuffer{}, fmt.Errorf("gpu: no platform buffer allocator configured for this build")
}

func (UnimplementedAllocator) Release(buf PlatformBuffer) error {
	return fmt.Errorf("gpu: no platform buffer allocator configured for this build")
}
