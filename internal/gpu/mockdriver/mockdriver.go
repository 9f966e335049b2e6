// Package mockdriver provides a gpu.Driver and gpu.Surface implementation
// backed entirely by Go state, the mock GPU driver and mock surface used
// to exercise the swapchain engine and the display loop without real
// hardware. It mirrors the shape of the teacher's real driver closely
// enough that swapping one for the other requires no caller changes.
package mockdriver

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/cassia-project/compositor/internal/core"
	"github.com/cassia-project/compositor/internal/gpu"
)

// Driver is a single-process, allocation-free stand-in for a real Vulkan
// context. Every handle minted is unique and never reused while the
// underlying object is live, so tests can assert on handle identity the
// same way they would against the real driver.
type Driver struct {
	mu sync.Mutex

	images      map[gpu.Image]imageState
	memories    map[gpu.DeviceMemory]struct{}
	semaphores  map[gpu.Semaphore]*semaphoreState
	fences      map[gpu.Fence]*fenceState
	pools       map[gpu.CommandPool]struct{}
	buffers     map[gpu.CommandBuffer]struct{}
	swapchains  map[gpu.Swapchain]*swapchainState
	platformBuf map[int]struct{}

	nextHandle atomic.Uint64

	submitCount atomic.Int64
	presentErr  error
	blits       []BlitRecord
}

type imageState struct {
	format gpu.Format
	extent gpu.Extent2D
}

type semaphoreState struct {
	importedFd int
	hasImport  bool
}

type fenceState struct {
	signaled bool
}

type swapchainState struct {
	images      []gpu.Image
	extent      gpu.Extent2D
	nextAcquire uint32
	outOfDate   bool
}

// New returns an empty mock driver.
func New() *Driver {
	return &Driver{
		images:      make(map[gpu.Image]imageState),
		memories:    make(map[gpu.DeviceMemory]struct{}),
		semaphores:  make(map[gpu.Semaphore]*semaphoreState),
		fences:      make(map[gpu.Fence]*fenceState),
		pools:       make(map[gpu.CommandPool]struct{}),
		buffers:     make(map[gpu.CommandBuffer]struct{}),
		swapchains:  make(map[gpu.Swapchain]*swapchainState),
		platformBuf: make(map[int]struct{}),
	}
}

func (d *Driver) newHandle() uint64 {
	return d.nextHandle.Add(1)
}

// newPipeFd mints a genuinely open fd, a pipe's read end with the write end
// closed immediately, so callers that pass it through real SCM_RIGHTS
// transmission or dup/close it directly (the display loop does both) see
// the same fd lifetime a real driver's buffers and sync-file exports would
// have. A bare counter value would satisfy the map-keyed bookkeeping in this
// file but fail the instant it reached an actual sendmsg or dup syscall.
func newPipeFd() (int, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return -1, fmt.Errorf("mockdriver: mint fd: %w", err)
	}
	unix.Close(fds[1])
	return fds[0], nil
}

// ForceOutOfDate makes the next AcquireNextImage call against sc report
// outOfDate, simulating a resized or lost platform surface.
func (d *Driver) ForceOutOfDate(sc gpu.Swapchain) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.swapchains[sc]; ok {
		s.outOfDate = true
	}
}

// SetPresentError makes every subsequent QueuePresent call fail with err,
// simulating a lost device mid-frame.
func (d *Driver) SetPresentError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presentErr = err
}

// SubmitCount reports how many QueueSubmit calls have completed, useful
// for asserting the display loop drained exactly the frames it should.
func (d *Driver) SubmitCount() int64 {
	return d.submitCount.Load()
}

// LiveObjectCount sums every tracked object still outstanding, the fd and
// handle leak check the display loop and swapchain engine tests rely on.
func (d *Driver) LiveObjectCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.images) + len(d.memories) + len(d.semaphores) + len(d.fences) +
		len(d.pools) + len(d.buffers) + len(d.swapchains) + len(d.platformBuf)
}

func (d *Driver) CreateImage(format gpu.Format, extent gpu.Extent2D, usage gpu.UsageFlags) (gpu.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpu.Image(d.newHandle())
	d.images[id] = imageState{format: format, extent: extent}
	return id, nil
}

func (d *Driver) DestroyImage(img gpu.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.images, img)
}

func (d *Driver) AllocatePlatformBuffer(format gpu.Format, extent gpu.Extent2D) (gpu.PlatformBuffer, error) {
	if _, err := gpu.ToPlatformFormat(format); err != nil {
		return gpu.PlatformBuffer{}, err
	}
	fd, err := newPipeFd()
	if err != nil {
		return gpu.PlatformBuffer{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.platformBuf[fd] = struct{}{}
	return gpu.PlatformBuffer{Fd: fd}, nil
}

func (d *Driver) ReleasePlatformBuffer(buf gpu.PlatformBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.platformBuf[buf.Fd]; !ok {
		return core.ErrUnknownHandle
	}
	delete(d.platformBuf, buf.Fd)
	unix.Close(buf.Fd)
	return nil
}

func (d *Driver) ImportPlatformBufferAsMemory(buf gpu.PlatformBuffer) (gpu.DeviceMemory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.platformBuf[buf.Fd]; !ok {
		return 0, core.ErrUnknownHandle
	}
	id := gpu.DeviceMemory(d.newHandle())
	d.memories[id] = struct{}{}
	return id, nil
}

func (d *Driver) BindImageMemory(img gpu.Image, mem gpu.DeviceMemory) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.images[img]; !ok {
		return core.ErrUnknownHandle
	}
	if _, ok := d.memories[mem]; !ok {
		return core.ErrUnknownHandle
	}
	return nil
}

func (d *Driver) FreeMemory(mem gpu.DeviceMemory) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.memories, mem)
}

func (d *Driver) CreateSemaphore() (gpu.Semaphore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpu.Semaphore(d.newHandle())
	d.semaphores[id] = &semaphoreState{}
	return id, nil
}

func (d *Driver) DestroySemaphore(sem gpu.Semaphore) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.semaphores, sem)
}

// ImportSemaphoreFd records fd against sem with TEMPORARY semantics: a
// second import before the first is consumed (via QueueSubmit) overwrites
// it, matching the real driver's documented behavior.
func (d *Driver) ImportSemaphoreFd(sem gpu.Semaphore, fd int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.semaphores[sem]
	if !ok {
		return core.ErrUnknownHandle
	}
	s.importedFd = fd
	s.hasImport = true
	return nil
}

func (d *Driver) ExportSemaphoreFd(sem gpu.Semaphore) (int, error) {
	d.mu.Lock()
	_, ok := d.semaphores[sem]
	d.mu.Unlock()
	if !ok {
		return -1, core.ErrUnknownHandle
	}
	return newPipeFd()
}

func (d *Driver) CreateFence(signaled bool) (gpu.Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpu.Fence(d.newHandle())
	d.fences[id] = &fenceState{signaled: signaled}
	return id, nil
}

func (d *Driver) DestroyFence(fence gpu.Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.fences, fence)
}

func (d *Driver) WaitForFence(fence gpu.Fence, timeout time.Duration) error {
	d.mu.Lock()
	f, ok := d.fences[fence]
	d.mu.Unlock()
	if !ok {
		return core.ErrUnknownHandle
	}
	if f.signaled {
		return nil
	}
	return fmt.Errorf("mockdriver: fence wait timed out after %s", timeout)
}

func (d *Driver) ResetFence(fence gpu.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.fences[fence]
	if !ok {
		return core.ErrUnknownHandle
	}
	f.signaled = false
	return nil
}

func (d *Driver) CreateCommandPool() (gpu.CommandPool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpu.CommandPool(d.newHandle())
	d.pools[id] = struct{}{}
	return id, nil
}

func (d *Driver) DestroyCommandPool(pool gpu.CommandPool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pools, pool)
}

func (d *Driver) AllocateCommandBuffer(pool gpu.CommandPool) (gpu.CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pools[pool]; !ok {
		return 0, core.ErrUnknownHandle
	}
	id := gpu.CommandBuffer(d.newHandle())
	d.buffers[id] = struct{}{}
	return id, nil
}

func (d *Driver) BeginCommandBuffer(cb gpu.CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.buffers[cb]; !ok {
		return core.ErrUnknownHandle
	}
	return nil
}

func (d *Driver) EndCommandBuffer(cb gpu.CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.buffers[cb]; !ok {
		return core.ErrUnknownHandle
	}
	return nil
}

func (d *Driver) RecordLayoutTransition(cb gpu.CommandBuffer, images []gpu.Image) {}

// BlitRecord is one recorded RecordBlit call, kept in submission order so
// tests can reconstruct cross-frame composition order (the FIFO-per-
// swapchain property) without a real GPU to read back from.
type BlitRecord struct {
	Src, Dst           gpu.Image
	SrcExtent, DstExtent gpu.Extent2D
}

func (d *Driver) RecordBlit(cb gpu.CommandBuffer, src gpu.Image, srcExtent gpu.Extent2D, dst gpu.Image, dstExtent gpu.Extent2D) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.blits = append(d.blits, BlitRecord{Src: src, Dst: dst, SrcExtent: srcExtent, DstExtent: dstExtent})
}

// BlitLog returns every RecordBlit call observed so far, oldest first.
func (d *Driver) BlitLog() []BlitRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]BlitRecord(nil), d.blits...)
}

func (d *Driver) QueueSubmit(cb gpu.CommandBuffer, wait []gpu.Semaphore, signal []gpu.Semaphore, fence gpu.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.buffers[cb]; !ok {
		return core.ErrUnknownHandle
	}
	for _, sem := range wait {
		s, ok := d.semaphores[sem]
		if !ok {
			return core.ErrUnknownHandle
		}
		s.hasImport = false
	}
	for _, sem := range signal {
		if _, ok := d.semaphores[sem]; !ok {
			return core.ErrUnknownHandle
		}
	}
	if fence != 0 {
		f, ok := d.fences[fence]
		if !ok {
			return core.ErrUnknownHandle
		}
		f.signaled = true
	}
	d.submitCount.Add(1)
	return nil
}

func (d *Driver) QueuePresent(sc gpu.Swapchain, imageIndex uint32, wait gpu.Semaphore) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.presentErr != nil {
		return d.presentErr
	}
	s, ok := d.swapchains[sc]
	if !ok {
		return core.ErrUnknownHandle
	}
	if int(imageIndex) >= len(s.images) {
		return core.ErrImageIndexOutOfRange
	}
	if _, ok := d.semaphores[wait]; !ok {
		return core.ErrUnknownHandle
	}
	return nil
}

func (d *Driver) CreateSwapchain(surface gpu.Surface, imageCount uint32) (gpu.Swapchain, []gpu.Image, gpu.Extent2D, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	extent := surface.CurrentExtent()
	images := make([]gpu.Image, imageCount)
	for i := range images {
		id := gpu.Image(d.newHandle())
		d.images[id] = imageState{extent: extent}
		images[i] = id
	}
	id := gpu.Swapchain(d.newHandle())
	d.swapchains[id] = &swapchainState{images: images, extent: extent}
	return id, images, extent, nil
}

func (d *Driver) DestroySwapchain(sc gpu.Swapchain) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.swapchains[sc]
	if !ok {
		return
	}
	for _, img := range s.images {
		delete(d.images, img)
	}
	delete(d.swapchains, sc)
}

func (d *Driver) AcquireNextImage(sc gpu.Swapchain, semaphore gpu.Semaphore) (uint32, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.swapchains[sc]
	if !ok {
		return 0, false, core.ErrUnknownHandle
	}
	if _, ok := d.semaphores[semaphore]; !ok {
		return 0, false, core.ErrUnknownHandle
	}
	if s.outOfDate {
		s.outOfDate = false
		return 0, true, nil
	}
	index := s.nextAcquire
	s.nextAcquire = (s.nextAcquire + 1) % uint32(len(s.images))
	return index, false, nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := len(d.images) + len(d.memories) + len(d.semaphores) + len(d.fences) +
		len(d.pools) + len(d.buffers) + len(d.swapchains) + len(d.platformBuf); n != 0 {
		return fmt.Errorf("mockdriver: %d objects still live at close", n)
	}
	return nil
}
