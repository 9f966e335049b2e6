// Package gpu wraps the single process-wide graphics context: one
// instance, one physical device, one logical device, and one
// graphics+compute queue serialized by a queue mutex. Everything above
// this package — the virtual swapchain engine and the display loop —
// talks to it through the Driver interface so it can run against a mock
// in tests without a GPU, the same separation of concerns the teacher
// repo draws between engine/renderer/vulkan (the driver) and the systems
// that use it.
package gpu

import (
	vk "github.com/goki/vulkan"
)

// Format, Extent2D, UsageFlags and CompositeAlpha alias the VkFormat,
// VkExtent2D, VkImageUsageFlags and VkCompositeAlphaFlagsKHR types
// clients negotiate over the wire. Aliasing them instead of redeclaring
// keeps the wire codec, the driver, and the client ABI in lockstep.
type (
	Format         = vk.Format
	Extent2D       = vk.Extent2D
	UsageFlags     = vk.ImageUsageFlags
	CompositeAlpha = vk.CompositeAlphaFlagBits
	SurfaceHandle  = vk.Surface
)

// Handles are opaque to callers; only a Driver implementation may mint or
// interpret them. Using plain numeric handles rather than driver-specific
// struct types lets the mock driver and the real one satisfy the same
// interface without either leaking implementation details to the
// swapchain/compositor packages.
type (
	Image         uint64
	DeviceMemory  uint64
	Semaphore     uint64
	Fence         uint64
	CommandPool   uint64
	CommandBuffer uint64
	Swapchain     uint64
)

// PlatformBuffer is the opaque, refcounted GPU memory object allocated by
// the server and transmitted to the client over the socket using the
// platform's out-of-band primitive. Fd is the descriptor that primitive
// actually moves across the wire; the reference rules are documented on
// NativeBufferAllocator.Release.
type PlatformBuffer struct {
	Fd int
}

// Surface abstracts the platform-provided display surface the compositor
// draws into. The concrete implementation is supplied by the host
// application's set-surface callback; this package needs its native
// handle to build a platform swapchain and its current pixel extent to
// size one.
type Surface interface {
	CurrentExtent() Extent2D
	Handle() SurfaceHandle
}

// NativeBufferAllocator is the seam between this package's Vulkan-side
// import/bind logic and the platform's native GPU buffer allocator
// (AHardwareBuffer on Android, a GBM/dma-buf allocator on a Linux desktop
// compositor). A real deployment supplies one at construction time; tests
// do not use one, since gpu/mockdriver implements the Driver's platform
// buffer methods directly.
type NativeBufferAllocator interface {
	// Allocate returns a platform buffer sized and formatted to back a
	// GPU-sampled, GPU-color-output image with no CPU access, matching
	// the usage flags allocate_swapchain records in the engine.
	Allocate(format Format, extent Extent2D) (PlatformBuffer, error)
	// Release drops the allocator's reference to the buffer. The memory
	// itself stays alive as long as any importer (server or client) still
	// holds it, per the platform handle's refcounting contract.
	Release(buf PlatformBuffer) error
}
