// Package swapchain implements the virtual swapchain engine: the image
// pool, buffer state machine, per-swapchain pending queue, and frame-rate
// counters shared by every connected client. One Engine is a process-wide
// singleton; its mutex and condition variable are the coarse
// synchronization point between connection handlers and the display loop.
package swapchain

import (
	"math"
	"sync"
	"time"

	"github.com/cassia-project/compositor/internal/core"
	"github.com/cassia-project/compositor/internal/gpu"
)

const (
	minImageCount = 2
	maxImageCount = 6
)

// Engine owns every live virtual swapchain. Operations take mu; dequeue
// waiters block on cv until the display loop (via BeginFrame) frees a
// buffer or the owning swapchain is destroyed out from under them.
type Engine struct {
	mu sync.Mutex
	cv *sync.Cond

	driver  gpu.Driver
	closeFd func(int)

	nextHandle uint32
	swapchains map[uint32]*VirtualSwapchain
}

// NewEngine returns an Engine backed by driver. closeFd releases a raw fd
// (an acquire fence being overwritten or a swapchain being torn down);
// callers inject it so this package never needs a syscall import of its
// own.
func NewEngine(driver gpu.Driver, closeFd func(int)) *Engine {
	e := &Engine{
		driver:     driver,
		closeFd:    closeFd,
		swapchains: make(map[uint32]*VirtualSwapchain),
	}
	e.cv = sync.NewCond(&e.mu)
	return e
}

// Allocate creates imageCount images, each backed by a platform buffer
// imported as device memory, and inserts a new virtual swapchain under
// the next monotonically increasing handle. sendHandle is invoked once
// per image, in order, before that image's platform buffer is imported —
// the ordering the wire protocol's compound allocate reply depends on.
// Any failure rolls back every object this call created.
func (e *Engine) Allocate(format gpu.Format, extent gpu.Extent2D, usage gpu.UsageFlags, alpha gpu.CompositeAlpha, imageCount int, sendHandle func(gpu.PlatformBuffer) error) (uint32, error) {
	if imageCount < minImageCount || imageCount > maxImageCount {
		return 0, core.ErrInvalidBufferState
	}
	if _, err := gpu.ToPlatformFormat(format); err != nil {
		return 0, err
	}

	buffers := make([]*buffer, 0, imageCount)
	rollback := func(partial *buffer) {
		all := buffers
		if partial != nil {
			all = append(all, partial)
		}
		for _, b := range all {
			if b.queueSemaphore != 0 {
				e.driver.DestroySemaphore(b.queueSemaphore)
			}
			if b.memory != 0 {
				e.driver.FreeMemory(b.memory)
			}
			if b.platformHandle.Fd != 0 {
				e.driver.ReleasePlatformBuffer(b.platformHandle)
			}
			if b.image != 0 {
				e.driver.DestroyImage(b.image)
			}
		}
	}

	for i := 0; i < imageCount; i++ {
		b := &buffer{state: BufferFree, acquireFenceFd: -1}

		img, err := e.driver.CreateImage(format, extent, usage)
		if err != nil {
			rollback(nil)
			return 0, err
		}
		b.image = img

		pbuf, err := e.driver.AllocatePlatformBuffer(format, extent)
		if err != nil {
			rollback(b)
			return 0, err
		}
		b.platformHandle = pbuf

		if err := sendHandle(pbuf); err != nil {
			rollback(b)
			return 0, err
		}

		mem, err := e.driver.ImportPlatformBufferAsMemory(pbuf)
		if err != nil {
			rollback(b)
			return 0, err
		}
		b.memory = mem

		if err := e.driver.BindImageMemory(img, mem); err != nil {
			rollback(b)
			return 0, err
		}

		sem, err := e.driver.CreateSemaphore()
		if err != nil {
			rollback(b)
			return 0, err
		}
		b.queueSemaphore = sem

		buffers = append(buffers, b)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextHandle++
	handle := e.nextHandle
	e.swapchains[handle] = newVirtualSwapchain(handle, extent, format, usage, alpha, buffers)
	return handle, nil
}

// Dequeue blocks until a buffer is Free or timeout elapses. A timeout of
// 2^63-1 nanoseconds or more waits indefinitely. On success the selected
// buffer moves to Dequeued and its stored acquire fence transfers to the
// caller, replaced in the buffer with -1.
func (e *Engine) Dequeue(handle uint32, timeout time.Duration) (imageIndex uint32, fenceFd int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	vs, ok := e.swapchains[handle]
	if !ok {
		return 0, -1, core.ErrUnknownHandle
	}

	waitForever := timeout >= time.Duration(math.MaxInt64)
	deadline := time.Now().Add(timeout)

	for {
		if vs.closed {
			return 0, -1, core.ErrConnectionClosed
		}
		if idx, ok := vs.selectFreeBuffer(); ok {
			buf := vs.buffers[idx]
			buf.transition(BufferDequeued)
			fd := buf.acquireFenceFd
			buf.acquireFenceFd = -1
			return idx, fd, nil
		}
		if waitForever {
			e.cv.Wait()
			continue
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, -1, core.ErrTimeout
		}
		e.waitTimeout(remaining)
	}
}

// waitTimeout waits on e.cv for at most d, re-locking mu as sync.Cond.Wait
// always does. Callers must recheck their condition on return regardless
// of whether the wake came from a real signal or the timer.
func (e *Engine) waitTimeout(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		e.mu.Lock()
		e.cv.Broadcast()
		e.mu.Unlock()
	})
	defer timer.Stop()
	e.cv.Wait()
}

// Queue marks imageIndex Queued, imports syncFd into its queue semaphore
// with TEMPORARY/sync-fd semantics (the driver takes ownership of syncFd),
// appends the index to the swapchain's pending queue, and wakes any
// dequeue waiter.
func (e *Engine) Queue(handle uint32, imageIndex uint32, syncFd int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	vs, ok := e.swapchains[handle]
	if !ok {
		return core.ErrUnknownHandle
	}
	if imageIndex >= uint32(len(vs.buffers)) {
		return core.ErrImageIndexOutOfRange
	}
	buf := vs.buffers[imageIndex]
	if buf.state != BufferDequeued {
		return core.ErrInvalidBufferState
	}
	if err := e.driver.ImportSemaphoreFd(buf.queueSemaphore, syncFd); err != nil {
		return err
	}
	buf.transition(BufferQueued)
	if err := vs.pendingQueue.enqueue(imageIndex); err != nil {
		return err
	}
	e.cv.Broadcast()
	return nil
}

// Destroy tears down every GPU object and fd owned by handle and cancels
// any in-flight dequeue wait on it. Called when a connection closes.
func (e *Engine) Destroy(handle uint32) {
	e.mu.Lock()
	vs, ok := e.swapchains[handle]
	if ok {
		vs.closed = true
		delete(e.swapchains, handle)
	}
	e.cv.Broadcast()
	e.mu.Unlock()

	if !ok {
		return
	}
	for _, b := range vs.buffers {
		if b.acquireFenceFd >= 0 {
			e.closeFd(b.acquireFenceFd)
		}
		e.driver.DestroySemaphore(b.queueSemaphore)
		e.driver.FreeMemory(b.memory)
		e.driver.ReleasePlatformBuffer(b.platformHandle)
		e.driver.DestroyImage(b.image)
	}
}

// CompositionTarget is one virtual swapchain's contribution to a single
// composited frame.
type CompositionTarget struct {
	Handle        uint32
	Image         gpu.Image
	Extent        gpu.Extent2D
	WaitSemaphore gpu.Semaphore // zero if this swapchain queued nothing new this frame
}

// BeginFrame advances every virtual swapchain's pending queue by at most
// one entry, frees a buffer the instant its queue_semaphore is captured
// into this frame's wait list (ownership has moved to the GPU queue, so
// it is safe to both blit and re-dequeue), and returns the set of
// buffers the display loop should blit this frame (those whose
// last-presented buffer is currently Free, meaning it holds a stable,
// already-released image).
func (e *Engine) BeginFrame(now time.Time, onRate func(handle uint32, fps float64)) []CompositionTarget {
	e.mu.Lock()
	defer e.mu.Unlock()

	targets := make([]CompositionTarget, 0, len(e.swapchains))
	for _, vs := range e.swapchains {
		var wait gpu.Semaphore
		if idx, ok := vs.pendingQueue.dequeue(); ok {
			newBuf := vs.buffers[idx]
			if prev := vs.buffers[vs.lastPresentedIndex]; prev != newBuf && prev.state == BufferQueued {
				prev.transition(BufferFree)
			}
			vs.lastPresentedIndex = idx
			wait = newBuf.queueSemaphore
			if newBuf.state == BufferQueued {
				newBuf.transition(BufferFree)
			}
		}

		buf := vs.buffers[vs.lastPresentedIndex]
		if buf.state != BufferFree {
			continue
		}
		targets = append(targets, CompositionTarget{
			Handle:        vs.Handle,
			Image:         buf.image,
			Extent:        vs.Extent,
			WaitSemaphore: wait,
		})
		if fps, ready := vs.rate.record(now); ready && onRate != nil {
			onRate(vs.Handle, fps)
		}
	}
	e.cv.Broadcast()
	return targets
}

// EndFrame stores a fresh acquire fence on every handle's composited
// buffer, closing whatever fence was there before. newFenceFd is called
// once per handle and must return an independent fd (a dup of the
// frame's exported semaphore fd) so each buffer keeps exclusive
// ownership of its own descriptor.
func (e *Engine) EndFrame(handles []uint32, newFenceFd func() (int, error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, h := range handles {
		vs, ok := e.swapchains[h]
		if !ok {
			continue
		}
		fd, err := newFenceFd()
		if err != nil {
			continue
		}
		vs.buffers[vs.lastPresentedIndex].setAcquireFence(e.closeFd, fd)
	}
}
