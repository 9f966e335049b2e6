package gpu

import "time"

// Driver is the seam the virtual swapchain engine and the display loop
// use to issue GPU work. vulkanDriver (this package) backs it with
// github.com/goki/vulkan for a real deployment; gpu/mockdriver backs it
// with plain Go state for tests that need a mock GPU driver and a mock
// surface instead of real hardware.
//
// All queue-touching methods (QueueSubmit, QueuePresent) serialize
// themselves on the driver's own queue mutex: callers never need to take
// a lock before calling them.
type Driver interface {
	// Image & memory.

	CreateImage(format Format, extent Extent2D, usage UsageFlags) (Image, error)
	DestroyImage(img Image)

	AllocatePlatformBuffer(format Format, extent Extent2D) (PlatformBuffer, error)
	ReleasePlatformBuffer(buf PlatformBuffer) error

	// ImportPlatformBufferAsMemory imports buf as device memory suitable
	// for binding to an image created with CreateImage's external-memory
	// pNext chain.
	ImportPlatformBufferAsMemory(buf PlatformBuffer) (DeviceMemory, error)
	BindImageMemory(img Image, mem DeviceMemory) error
	FreeMemory(mem DeviceMemory)

	// Synchronization primitives.

	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(sem Semaphore)
	// ImportSemaphoreFd imports fd into sem with TEMPORARY semantics: the
	// import is consumed by the next device wait on sem. The driver takes
	// ownership of fd; callers must not close it.
	ImportSemaphoreFd(sem Semaphore, fd int) error
	// ExportSemaphoreFd exports sem's current payload as a new sync-file
	// fd owned by the caller. Known driver quirks (a zero fd meaning the
	// same as -1) are normalized by the caller, not here — that's a
	// display-loop concern, not a driver one.
	ExportSemaphoreFd(sem Semaphore) (int, error)

	CreateFence(signaled bool) (Fence, error)
	DestroyFence(fence Fence)
	WaitForFence(fence Fence, timeout time.Duration) error
	ResetFence(fence Fence) error

	// Command recording & submission.

	CreateCommandPool() (CommandPool, error)
	DestroyCommandPool(pool CommandPool)
	AllocateCommandBuffer(pool CommandPool) (CommandBuffer, error)
	BeginCommandBuffer(cb CommandBuffer) error
	EndCommandBuffer(cb CommandBuffer) error

	// RecordLayoutTransition emits barriers moving every image in images
	// from UNDEFINED to PRESENT_SRC. Called at most once per platform
	// swapchain epoch.
	RecordLayoutTransition(cb CommandBuffer, images []Image)
	// RecordBlit emits the transfer-hazard barrier and blit: src at
	// GENERAL layout, full srcExtent, to dst at PRESENT_SRC layout, full
	// dstExtent, nearest filter.
	RecordBlit(cb CommandBuffer, src Image, srcExtent Extent2D, dst Image, dstExtent Extent2D)

	// QueueSubmit submits cb with the given wait/signal semaphores and
	// fence, serialized on the driver's queue mutex.
	QueueSubmit(cb CommandBuffer, wait []Semaphore, signal []Semaphore, fence Fence) error
	// QueuePresent presents imageIndex on sc after waiting on wait,
	// serialized on the same queue mutex as QueueSubmit.
	QueuePresent(sc Swapchain, imageIndex uint32, wait Semaphore) error

	// Platform swapchain lifecycle.

	CreateSwapchain(surface Surface, imageCount uint32) (Swapchain, []Image, Extent2D, error)
	DestroySwapchain(sc Swapchain)
	AcquireNextImage(sc Swapchain, semaphore Semaphore) (imageIndex uint32, outOfDate bool, err error)

	// Close releases the device, instance, and queue. Called once, after
	// every virtual swapchain has been torn down.
	Close() error
}
