package swapchain

import "github.com/cassia-project/compositor/internal/gpu"

// BufferState is one of Free, Dequeued, Queued. Legal transitions:
// Free -> Dequeued (dequeue), Dequeued -> Queued (queue), Queued -> Free
// (display loop, once the composited frame's wait semaphore ownership has
// moved to the GPU queue).
type BufferState int

const (
	BufferFree BufferState = iota
	BufferDequeued
	BufferQueued
)

func (s BufferState) String() string {
	switch s {
	case BufferFree:
		return "free"
	case BufferDequeued:
		return "dequeued"
	case BufferQueued:
		return "queued"
	default:
		return "unknown"
	}
}

func legalTransition(from, to BufferState) bool {
	switch from {
	case BufferFree:
		return to == BufferDequeued
	case BufferDequeued:
		return to == BufferQueued
	case BufferQueued:
		return to == BufferFree
	default:
		return false
	}
}

// buffer is one slot in a virtual swapchain's image pool.
type buffer struct {
	image          gpu.Image
	memory         gpu.DeviceMemory
	platformHandle gpu.PlatformBuffer
	queueSemaphore gpu.Semaphore
	state          BufferState

	// acquireFenceFd is the sync-file fd signaled when the GPU is done
	// reading this buffer, handed to the client on the next dequeue. -1
	// means "already signaled" (no composition has touched it yet).
	acquireFenceFd int
}

func (b *buffer) transition(to BufferState) bool {
	if !legalTransition(b.state, to) {
		return false
	}
	b.state = to
	return true
}

// setAcquireFence closes the previously stored fd (if any) and replaces
// it, matching the "close on overwrite" rule every fence slot follows.
func (b *buffer) setAcquireFence(closeFd func(int), fd int) {
	if b.acquireFenceFd >= 0 {
		closeFd(b.acquireFenceFd)
	}
	b.acquireFenceFd = fd
}
